package postgres

import (
	"context"
	"time"
)

// startKeepAlive launches the probe loop for h. Callers hold s.mu.
// The loop exits when h is closed.
func (s *Supervisor) startKeepAlive(h *Handle) {
	s.keepAliveWG.Add(1)
	go func() {
		defer s.keepAliveWG.Done()
		s.keepAlive(h, s.cfg.ConnectionDetails.KeepAliveInterval)
	}()
}

func (s *Supervisor) keepAlive(h *Handle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			s.probe(h)
		}
	}
}

// probe issues the no-op statement against h. A failure is only logged:
// recovery belongs to the retry path of the next real operation.
func (s *Supervisor) probe(h *Handle) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ConnectionDetails.ConnectTimeout)
	defer cancel()

	start := time.Now()
	err := h.ping(ctx)
	if h.Closed() {
		return
	}
	s.observeOperation("keepalive", time.Since(start), err)
	if err != nil {
		s.logger.Warn("PostgreSQL keep-alive probe failed", err, map[string]interface{}{
			"generation": h.generation,
		})
		return
	}
	s.markHealthy()
}

package postgres

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Connection string parameters understood by pgxpool.ParseConfig.
const (
	paramPoolMaxConns   = "pool_max_conns"
	paramConnectTimeout = "connect_timeout"
)

// augmentConnectionString appends the fixed pool sizing parameters to raw.
// Parameters already present in raw are overwritten so the process-wide
// bounds always win.
func augmentConnectionString(raw string, details ConnectionDetails) (string, error) {
	raw = strings.TrimSpace(raw)
	poolSize := strconv.Itoa(details.PoolSize)
	connectTimeout := strconv.Itoa(timeoutSeconds(details.ConnectTimeout))

	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		u, err := url.Parse(raw)
		if err != nil {
			// url.Error echoes the input, which carries the password.
			return "", fmt.Errorf("%w: malformed database url", ErrInvalidConfig)
		}
		q := u.Query()
		q.Set(paramPoolMaxConns, poolSize)
		q.Set(paramConnectTimeout, connectTimeout)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	fields := strings.Fields(raw)
	kept := fields[:0]
	for _, f := range fields {
		if strings.HasPrefix(f, paramPoolMaxConns+"=") || strings.HasPrefix(f, paramConnectTimeout+"=") {
			continue
		}
		kept = append(kept, f)
	}
	kept = append(kept, paramPoolMaxConns+"="+poolSize, paramConnectTimeout+"="+connectTimeout)
	return strings.Join(kept, " "), nil
}

// timeoutSeconds rounds d up to whole seconds. libpq treats 0 as "wait forever",
// so any positive duration maps to at least 1.
func timeoutSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// redact hides the password of a URL-form connection string for logging.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return "<redacted>"
	}
	return u.Redacted()
}

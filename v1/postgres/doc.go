// Package postgres owns the process-wide PostgreSQL connection.
//
// A Supervisor lazily opens a single pooled handle (gorm over a pgx pool),
// probes it every keep-alive interval and replaces it on demand. Concurrent
// Acquire calls during initialization share one connection attempt, and
// concurrent Reconnect calls share one reconnect sequence. A replaced handle
// is released in the background once its in-flight sessions return.
//
// Database work goes through an Executor, which retries operations that fail
// with connection errors after reconnecting, using a linear backoff:
//
//	sup, err := postgres.NewSupervisor(postgres.Config{URL: os.Getenv("DATABASE_URL")},
//		postgres.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	defer sup.GracefulShutdown()
//
//	exec := postgres.NewExecutor(sup, postgres.WithExecutorLogger(log))
//	count, err := postgres.WithRetry(ctx, exec, func(ctx context.Context, h *postgres.Handle) (int64, error) {
//		var n int64
//		err := h.Session(ctx, func(tx *gorm.DB) error {
//			return tx.Table("users").Count(&n).Error
//		})
//		return n, err
//	})
//
// Whether an error is a connection error is decided by a Classifier:
// driver sentinels, pgconn connect errors, SQLSTATE class 08 and the
// shutdown codes 57P01 to 57P03, and a configurable list of message markers.
// Everything else is returned to the caller on the first attempt.
//
// Code that must hold a client reference before initialization can use
// Supervisor.Sync. Its accessors return a *NotInitializedError until the
// handle is ready.
//
// The connection string is extended with pool_max_conns and connect_timeout.
// Obtaining a pooled connection inside Handle.Session is bounded by the pool
// timeout and fails with ErrPoolTimeout.
//
// FX Integration:
//
//	app := fx.New(
//		logger.FXModule,
//		postgres.FXModule,
//		fx.Provide(func() postgres.Config { return cfg.PostgresConfig() }),
//	)
package postgres

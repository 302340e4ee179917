// Package auditlog persists structured log events to the database without
// letting logging failures reach the caller.
//
// Sink.Record writes every event to the process logger synchronously, then
// queues it for a background worker that inserts it into system_logs through
// a postgres.Executor with a tight retry policy. Persistence is off until
// Enable is called, and a breaker pauses it for 30 seconds after three
// consecutive connection failures. Data errors do not count toward the breaker.
//
//	sink := auditlog.NewSink(exec, log, auditlog.Config{})
//	sink.Start()
//	if sup.CheckConnection(ctx) {
//		sink.Enable()
//	}
//	defer sink.Stop(ctx)
//
//	sink.Record(auditlog.Event{
//		UserID:         auditlog.UserID(42),
//		ScreenName:     "billing",
//		CallerFunction: "InvoiceService.Issue",
//		LogType:        auditlog.Success,
//		Message:        "invoice issued",
//		Metadata:       map[string]interface{}{"invoice_id": "inv_123"},
//	})
//
// Events referencing a user that no longer exists are stored with a null user_id.
package auditlog

// Package testdoubles provides test doubles for the collaborators of the domainevents pipeline.
//
//   - PublisherSpy: records every published batch, optionally failing or blocking
//   - UnitOfWorkFake: an in-memory UnitOfWork with a scriptable commit outcome
//   - MetricsCollectorSpy: captures metrics recording calls for verification
//   - TracingCollectorSpy: captures started and finished spans
//   - ContextualLoggerSpy: captures structured logging with context
//   - LogHandlerSpy: captures slog records, usable with slog.New as a domainevents.Logger
package testdoubles

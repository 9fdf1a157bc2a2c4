// Package domainevents captures domain events raised by entities during a unit of work
// and publishes them to subscribers only after the unit of work has committed.
//
// Entities embed a Recorder (or implement EventSource otherwise) and queue events from
// their business methods, either as concrete event values or as type tokens which are
// resolved from the entity's state by a Mapper at capture time.
//
// A save cycle runs through three phases:
//   - Capture: before commit, every tracked entity is drained, type tokens are resolved,
//     correlation metadata (sourceType, sourceKeys) is attached to events exposing
//     AdditionalDataCarrier, and the events are staged.
//   - Commit: the UnitOfWork persists its changes. Nothing in this package takes part in the
//     transaction itself.
//   - Dispatch: only after a successful commit, the staged batch is handed to every registered
//     Publisher and the staging buffer is cleared, whether publishing succeeds or not.
//
// Delivery is at most once. There is no outbox and no retry; a crash between commit and
// dispatch loses the batch.
//
// Common usage pattern:
//
//	dispatcher, err := domainevents.NewDispatcher(
//		domainevents.WithPublisher(publisher),
//		domainevents.WithMapper(domainevents.NewJSONMapper()),
//		domainevents.WithLogger(slog.Default()),
//	)
//	if err != nil {
//		// handle error
//	}
//
//	session, err := dispatcher.NewSession(unitOfWork)
//	if err != nil {
//		// handle error
//	}
//	defer session.Close(ctx)
//
//	root.AddChild("A1") // queues an event on root
//	err = session.SaveChanges(ctx)
package domainevents

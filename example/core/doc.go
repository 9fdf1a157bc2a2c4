// Package core holds the demo domain: a Root aggregate that owns Child entities.
//
// Root and Child are persisted by postgresuow. Root records its events while its methods run,
// the domainevents pipeline publishes them after the unit of work has been committed:
// EntityAddedEvent is queued as a concrete event, RootCreatedEvent as a type token that a
// JSONMapper fills from the Root's state at capture time.
package core

// Package postgresuow provides a PostgreSQL unit of work that plugs into the domainevents pipeline.
//
// A Store wraps a pgx.Pool, sql.DB or sqlx.DB. Each Session tracks entities that were added or
// removed and writes them in one transaction on Commit: tracked entities are upserted, removed
// entities are deleted. The SQL is built with goqu using the postgres dialect.
//
// Session implements domainevents.UnitOfWork, so a domainevents.Session can capture the events
// of the tracked entities before Commit and dispatch them after it:
//
//	store, err := postgresuow.NewStoreFromPGXPool(pool, postgresuow.WithLogger(logger))
//	uow := store.NewSession()
//	_ = uow.Add(root)
//	session, err := dispatcher.NewSession(uow)
//	err = session.SaveChanges(ctx)
package postgresuow

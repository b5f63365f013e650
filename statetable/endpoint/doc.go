// Package endpoint is a data and write endpoint for statetable tables, backed by a SQL table.
//
// GET requests answer the resultset protocol: sort, desc, page and page_size plus the
// parameters of the search, filter, active, download and tablemeta roles. POST requests store
// the preferences posted by the preference role.
//
// The server runs on a pgx pool, a sql.DB or a sqlx.DB and builds its SQL with goqu for the
// postgres or sqlite3 dialect.
//
//	db, _ := pgxpool.New(ctx, dsn)
//	server, _ := endpoint.NewServerFromPGXPool(db, endpoint.WithTableConfig(cfg))
//	http.Handle("/people", server)
package endpoint

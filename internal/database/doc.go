// Package database provides database connectivity for the Renunganku API.
//
// Two stores are used:
//
//   - SurrealDB, behind the Database interface, for every mutable record.
//   - SQLite, via OpenSQLite, for the static Alkitab corpus. The schema is
//     embedded and applied on open.
//
// # Connection Management
//
//	db := database.NewSurrealDB(database.Config{
//	    Host:      "localhost",
//	    Port:      "8000",
//	    Namespace: "renunganku",
//	    Database:  "main",
//	    User:      "root",
//	    Password:  "root",
//	})
//	if err := db.Connect(ctx); err != nil { ... }
//
//	bible, err := database.OpenSQLite(ctx, "./data/alkitab.db")
//
// # Error Types
//
//   - ErrNotFound: Record does not exist
//   - ErrDuplicate: Unique index violation
//   - ErrConnection: Database connection failed
//   - ErrQuery: Statement failed
package database

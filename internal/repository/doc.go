// Package repository implements the data access layer for the Renunganku API.
//
// Every repository except AlkitabRepository talks to SurrealDB through the
// database.Database interface. AlkitabRepository reads the Bible corpus from
// SQLite.
//
// # Conventions
//
//   - Constructor function (NewXxxRepository) accepts a database connection
//   - Ids are full record ids ("post:abc"); bare keys are accepted too
//   - A Get of a missing record returns (nil, nil)
//   - Writes that span tables go through database.AtomicBatch
//   - Paged lists return (rows, total, err) from a SELECT plus a count() statement
//   - Records are decoded with decodeRecord/decodeList, which normalize driver
//     types (record ids, datetimes) before a JSON round trip into model structs
//
// # Deterministic Keys
//
// A follow edge and a direct conversation get a record key derived from the
// user pair, so a pair never holds two of them and writes can be upserts.
//
// # Example Usage
//
//	repo := NewPostRepository(db)
//	post, err := repo.GetByID(ctx, "post:abc123")
//	if err != nil {
//	    return err
//	}
//	if post == nil {
//	    // not found
//	}
package repository

// Package clients provides the local persistence layer for shop clients.
//
// Every mutation stamps updated_at and clears is_synced so the push engine
// picks the row up; soft-deleted rows (is_deleted=1) stay in the table as
// tombstones and are hidden from every read.
//
// Typical Usage
//
//	repo := clients.NewSQLiteRepository(db)
//	_ = repo.Insert(ctx, c)
//	list, _ := repo.Search(ctx, orgID, "0711", 10)
//	_ = repo.SoftDelete(ctx, c.ID, now)
package clients

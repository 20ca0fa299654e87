// Package database owns the SQLite file behind the delivery journal.
//
// It is only opened when the journal is enabled. Open sets up the single
// connection pool and WAL; Migrate brings the schema up to date from an
// fs.FS of YYYYMMDD_HHMMSS_name.{up,down}.sql files:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//	err = db.Migrate(ctx, migrations.FS)
//
// The file is chmodded to 0600. Statements always bind parameters.
package database

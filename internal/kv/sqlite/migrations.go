package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database. These run on
// startup to ensure the tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS kv (
    k TEXT PRIMARY KEY,
    v BLOB NOT NULL,
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS kv_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    seq INTEGER NOT NULL
);

INSERT OR IGNORE INTO kv_meta (id, seq) VALUES (1, 0);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

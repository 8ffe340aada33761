package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
//
// Amounts are stored as canonical two-decimal strings and summed in Go
// with exact decimal arithmetic; SQLite's floating-point SUM never
// touches a balance. Moments are Unix timestamps.
//
// The accounts CHECK enforces the endpoint invariant at the lowest
// level: an account belongs to exactly one of a user, an association or
// a special purpose. The UNIQUE constraints enforce one account per
// holder.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    user_id TEXT UNIQUE,
    association_id TEXT UNIQUE,
    special TEXT UNIQUE,
    created_at INTEGER NOT NULL,
    CHECK ((user_id IS NOT NULL) + (association_id IS NOT NULL) + (special IS NOT NULL) = 1)
);

CREATE TABLE IF NOT EXISTS fixed_transactions (
    id TEXT PRIMARY KEY,
    source_id TEXT,
    target_id TEXT NOT NULL,
    amount TEXT NOT NULL,
    order_moment INTEGER NOT NULL,
    confirm_moment INTEGER NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL DEFAULT '',
    cancelled INTEGER,
    cancelled_by TEXT,
    FOREIGN KEY (source_id) REFERENCES accounts(id),
    FOREIGN KEY (target_id) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS pending_transactions (
    id TEXT PRIMARY KEY,
    source_id TEXT,
    target_id TEXT NOT NULL,
    amount TEXT NOT NULL,
    order_moment INTEGER NOT NULL,
    confirm_moment INTEGER NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (source_id) REFERENCES accounts(id),
    FOREIGN KEY (target_id) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS dining_lists (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    date INTEGER NOT NULL,
    kitchen_cost TEXT NOT NULL,
    collection_account TEXT NOT NULL,
    FOREIGN KEY (collection_account) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS dining_entries (
    id TEXT PRIMARY KEY,
    list_id TEXT NOT NULL,
    account_id TEXT NOT NULL,
    cost TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    transaction_id TEXT,
    FOREIGN KEY (list_id) REFERENCES dining_lists(id) ON DELETE CASCADE,
    FOREIGN KEY (account_id) REFERENCES accounts(id),
    FOREIGN KEY (transaction_id) REFERENCES fixed_transactions(id)
);

CREATE TABLE IF NOT EXISTS dining_trackers (
    list_id TEXT PRIMARY KEY,
    FOREIGN KEY (list_id) REFERENCES dining_lists(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_fixed_source ON fixed_transactions(source_id);
CREATE INDEX IF NOT EXISTS idx_fixed_target ON fixed_transactions(target_id);
CREATE INDEX IF NOT EXISTS idx_pending_source ON pending_transactions(source_id);
CREATE INDEX IF NOT EXISTS idx_pending_target ON pending_transactions(target_id);
CREATE INDEX IF NOT EXISTS idx_pending_confirm ON pending_transactions(confirm_moment);
CREATE INDEX IF NOT EXISTS idx_dining_entries_list ON dining_entries(list_id);
CREATE INDEX IF NOT EXISTS idx_dining_entries_account ON dining_entries(account_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

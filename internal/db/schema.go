package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    full_name     TEXT,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS customers (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    email      TEXT,
    phone      TEXT,
    address    TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS suppliers (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    contact    TEXT,
    phone      TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS categories (
    id              INTEGER PRIMARY KEY,
    name            TEXT NOT NULL UNIQUE,
    requires_serial INTEGER NOT NULL DEFAULT 0,
    requires_mac    INTEGER NOT NULL DEFAULT 0,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS product_models (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    brand         TEXT,
    category_id   INTEGER NOT NULL REFERENCES categories(id),
    selling_price REAL NOT NULL DEFAULT 0 CHECK (selling_price >= 0),
    image         BLOB,
    image_mime    TEXT,
    thumbnail     BLOB,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sales (
    id           INTEGER PRIMARY KEY,
    customer_id  INTEGER NOT NULL REFERENCES customers(id),
    sold_by_id   INTEGER NOT NULL REFERENCES users(id),
    subtotal     REAL NOT NULL,
    vat_amount   REAL NOT NULL,
    total        REAL NOT NULL,
    status       TEXT NOT NULL DEFAULT 'COMPLETED' CHECK (status IN ('COMPLETED', 'VOIDED')),
    notes        TEXT,
    void_reason  TEXT,
    voided_at    DATETIME,
    voided_by_id INTEGER REFERENCES users(id),
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id               INTEGER PRIMARY KEY,
    item_type        TEXT NOT NULL CHECK (item_type IN ('SALE', 'ASSET')),
    status           TEXT NOT NULL CHECK (status IN ('IN_STOCK', 'IN_WAREHOUSE', 'RESERVED', 'SOLD', 'BORROWED',
                                                     'ASSIGNED', 'REPAIRING', 'DEFECTIVE', 'DECOMMISSIONED',
                                                     'RETURNED_TO_CUSTOMER')),
    owner_type       TEXT NOT NULL DEFAULT 'COMPANY' CHECK (owner_type IN ('COMPANY', 'CUSTOMER')),
    serial_number    TEXT,
    mac_address      TEXT,
    asset_code       TEXT,
    product_model_id INTEGER NOT NULL REFERENCES product_models(id),
    supplier_id      INTEGER REFERENCES suppliers(id),
    customer_id      INTEGER REFERENCES customers(id),
    sale_id          INTEGER REFERENCES sales(id),
    added_by_id      INTEGER NOT NULL REFERENCES users(id),
    notes            TEXT,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_items_serial ON items(serial_number) WHERE serial_number IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_items_mac ON items(mac_address) WHERE mac_address IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_items_asset_code ON items(asset_code) WHERE asset_code IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_items_status ON items(item_type, status);

CREATE TABLE IF NOT EXISTS sale_items (
    sale_id    INTEGER NOT NULL REFERENCES sales(id),
    item_id    INTEGER NOT NULL REFERENCES items(id),
    unit_price REAL NOT NULL,
    PRIMARY KEY (sale_id, item_id)
);

CREATE TABLE IF NOT EXISTS borrowings (
    id           INTEGER PRIMARY KEY,
    customer_id  INTEGER NOT NULL REFERENCES customers(id),
    approved_by_id INTEGER NOT NULL REFERENCES users(id),
    status       TEXT NOT NULL DEFAULT 'BORROWED' CHECK (status IN ('BORROWED', 'PARTIALLY_RETURNED', 'RETURNED')),
    due_date     DATETIME,
    notes        TEXT,
    borrowed_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    returned_at  DATETIME
);

CREATE TABLE IF NOT EXISTS borrowing_items (
    borrowing_id   INTEGER NOT NULL REFERENCES borrowings(id),
    item_id        INTEGER NOT NULL REFERENCES items(id),
    returned_at    DATETIME,
    returned_by_id INTEGER REFERENCES users(id),
    PRIMARY KEY (borrowing_id, item_id)
);

CREATE TABLE IF NOT EXISTS assignments (
    id             INTEGER PRIMARY KEY,
    assignee_id    INTEGER NOT NULL REFERENCES users(id),
    assigned_by_id INTEGER NOT NULL REFERENCES users(id),
    status         TEXT NOT NULL DEFAULT 'ASSIGNED' CHECK (status IN ('ASSIGNED', 'PARTIALLY_RETURNED', 'RETURNED')),
    due_date       DATETIME,
    notes          TEXT,
    assigned_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    returned_at    DATETIME
);

CREATE TABLE IF NOT EXISTS assignment_items (
    assignment_id  INTEGER NOT NULL REFERENCES assignments(id),
    item_id        INTEGER NOT NULL REFERENCES items(id),
    returned_at    DATETIME,
    returned_by_id INTEGER REFERENCES users(id),
    PRIMARY KEY (assignment_id, item_id)
);

CREATE TABLE IF NOT EXISTS repairs (
    id               INTEGER PRIMARY KEY,
    sender_address   TEXT NOT NULL,
    receiver_address TEXT NOT NULL,
    customer_id      INTEGER REFERENCES customers(id),
    created_by_id    INTEGER NOT NULL REFERENCES users(id),
    status           TEXT NOT NULL DEFAULT 'OPEN' CHECK (status IN ('OPEN', 'PARTIALLY_RETURNED', 'COMPLETED')),
    notes            TEXT,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at     DATETIME
);

CREATE TABLE IF NOT EXISTS repair_items (
    repair_id        INTEGER NOT NULL REFERENCES repairs(id),
    item_id          INTEGER NOT NULL REFERENCES items(id),
    is_customer_item INTEGER NOT NULL DEFAULT 0,
    problem          TEXT,
    returned_at      DATETIME,
    outcome          TEXT CHECK (outcome IN ('REPAIRED_SUCCESSFULLY', 'UNREPAIRABLE')),
    returned_by_id   INTEGER REFERENCES users(id),
    PRIMARY KEY (repair_id, item_id)
);

CREATE TABLE IF NOT EXISTS item_events (
    id         INTEGER PRIMARY KEY,
    item_id    INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    user_id    INTEGER NOT NULL REFERENCES users(id),
    event_type TEXT NOT NULL,
    details    TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_item_events_item ON item_events(item_id, created_at);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

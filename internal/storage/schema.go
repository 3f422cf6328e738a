package storage

// The links table is the durable dedup set: one row per discovered URL,
// inserted once and never updated. id only records discovery order.
const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL
);
`

const postgresSchemaSQL = `
CREATE TABLE IF NOT EXISTS links (
    id BIGSERIAL PRIMARY KEY,
    url TEXT UNIQUE NOT NULL
);
`

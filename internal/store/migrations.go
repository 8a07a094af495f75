package store

const schema = `
CREATE TABLE IF NOT EXISTS watchlists (
    id             TEXT PRIMARY KEY CHECK(id <> ''),
    name           TEXT NOT NULL CHECK(name <> ''),
    symbols        TEXT NOT NULL DEFAULT '[]',
    pinned_symbols TEXT NOT NULL DEFAULT '[]',
    created_at     DATETIME NOT NULL,
    updated_at     DATETIME NOT NULL,
    is_default     BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_watchlists_created_at ON watchlists(created_at);
`

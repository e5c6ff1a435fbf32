package store

const schema = `
CREATE TABLE IF NOT EXISTS packages (
    attr TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    version TEXT,
    description TEXT
);

CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_packages_name ON packages(name);
`

const (
	dropNameIndex   = `DROP INDEX IF EXISTS idx_packages_name`
	createNameIndex = `CREATE INDEX IF NOT EXISTS idx_packages_name ON packages(name)`
)

// meta keys written by Rebuild.
const (
	metaIndexedAt    = "indexed_at"
	metaPackageCount = "package_count"
	metaSource       = "source"
)

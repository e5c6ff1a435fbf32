// Package snapshots exports the index as snapshot JSON and keeps rotating
// backups of it.
package snapshots

import (
	"time"

	"github.com/blackwell-systems/neix/internal/store"
)

// DefaultKeep is how many backups survive cleanup when no limit is configured.
const DefaultKeep = 5

// entry is one exported record. The shape matches `nix search --json` so an
// export can be fed back through the file source.
type entry struct {
	PName       string  `json:"pname"`
	Version     *string `json:"version,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Backup describes a backup file on disk.
type Backup struct {
	Path      string
	CreatedAt time.Time
	Size      int64
}

// Manager writes exports and manages the backup directory.
type Manager struct {
	store     *store.Store
	backupDir string
	keep      int
	now       func() time.Time
}

// New creates a snapshot Manager. keep <= 0 means DefaultKeep.
func New(st *store.Store, backupDir string, keep int) *Manager {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Manager{
		store:     st,
		backupDir: backupDir,
		keep:      keep,
		now:       time.Now,
	}
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.backupDir
}

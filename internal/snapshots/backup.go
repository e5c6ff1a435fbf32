package snapshots

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const timestampFormat = "2006-01-02-150405"

// ErrNoBackups is returned by Latest when the backup directory is empty.
var ErrNoBackups = errors.New("no backups found")

// Backup exports the index to a new timestamped file in the backup directory
// and then removes all but the newest backups. It returns the new file's path.
func (m *Manager) Backup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(m.backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	path := m.nextPath()
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}

	if _, err := m.Export(ctx, f); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize backup file: %w", err)
	}

	if err := m.Cleanup(); err != nil {
		return path, err
	}
	return path, nil
}

// nextPath picks <dir>/<timestamp>.json, adding a counter when two backups
// land in the same second.
func (m *Manager) nextPath() string {
	stamp := m.now().Format(timestampFormat)
	path := filepath.Join(m.backupDir, stamp+".json")
	for i := 1; fileExists(path); i++ {
		path = filepath.Join(m.backupDir, fmt.Sprintf("%s_%02d.json", stamp, i))
	}
	return path
}

// List returns the backups, newest first.
func (m *Manager) List() ([]Backup, error) {
	entries, err := os.ReadDir(m.backupDir)
	if os.IsNotExist(err) {
		return []Backup{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []Backup{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Backup{
			Path:      filepath.Join(m.backupDir, e.Name()),
			CreatedAt: info.ModTime(),
			Size:      info.Size(),
		})
	}

	// Timestamped names sort chronologically.
	sort.Slice(backups, func(i, j int) bool {
		return filepath.Base(backups[i].Path) > filepath.Base(backups[j].Path)
	})
	return backups, nil
}

// Latest returns the newest backup.
func (m *Manager) Latest() (*Backup, error) {
	backups, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(backups) == 0 {
		return nil, ErrNoBackups
	}
	return &backups[0], nil
}

// Cleanup removes every backup beyond the newest keep.
func (m *Manager) Cleanup() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	if len(backups) <= m.keep {
		return nil
	}

	for _, b := range backups[m.keep:] {
		if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete backup %s: %w", b.Path, err)
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

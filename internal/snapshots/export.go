package snapshots

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Export writes every record in the index to w as a snapshot JSON object
// keyed by attr. It returns the number of records written.
func (m *Manager) Export(ctx context.Context, w io.Writer) (int, error) {
	pkgs, err := m.store.ListPackages(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list packages: %w", err)
	}

	out := make(map[string]entry, len(pkgs))
	for _, p := range pkgs {
		out[p.Attr] = entry{PName: p.Name, Version: p.Version, Description: p.Description}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return 0, fmt.Errorf("failed to write snapshot JSON: %w", err)
	}
	return len(pkgs), nil
}

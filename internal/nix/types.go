package nix

import "sort"

// Entry is one package in a snapshot. Version and Description are nil when
// nixpkgs provides no value.
type Entry struct {
	Name        string
	Version     *string
	Description *string
}

// Snapshot maps attribute paths to their metadata. Attrs are unique by
// construction.
type Snapshot map[string]Entry

// Attrs returns the snapshot's attribute paths in ascending order.
func (s Snapshot) Attrs() []string {
	attrs := make([]string, 0, len(s))
	for attr := range s {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	return attrs
}

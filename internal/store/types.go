package store

import "time"

// Package is one indexed package build, keyed by its attribute path.
// Version and Description are nil when upstream provides no value.
type Package struct {
	Attr        string  `json:"attr"`
	Name        string  `json:"name"`
	Version     *string `json:"version"`
	Description *string `json:"description"`
}

// VersionOr returns the version, or def when absent.
func (p Package) VersionOr(def string) string {
	if p.Version == nil {
		return def
	}
	return *p.Version
}

// DescriptionOr returns the description, or def when absent.
func (p Package) DescriptionOr(def string) string {
	if p.Description == nil {
		return def
	}
	return *p.Description
}

// Info summarizes the index for the info command.
type Info struct {
	Packages  int
	Names     int
	IndexedAt time.Time // zero if never reindexed
	Source    string

	// LastSnapshot is the number of entries the last reindex wrote. It is
	// below Packages when kept records from older snapshots remain.
	LastSnapshot int
}

// Str returns a pointer to s, or nil when s is empty.
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

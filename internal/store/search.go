package store

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// DefaultLimit caps query results when the caller passes a non-positive limit.
const DefaultLimit = 10

// ErrEmptyTerm is returned by Query for an empty search term.
var ErrEmptyTerm = errors.New("search term must not be empty")

// Tier is the relevance class of a name match. Lower is better.
type Tier int

const (
	TierExact Tier = iota
	TierPrefix
	TierSubstring
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierPrefix:
		return "prefix"
	case TierSubstring:
		return "substring"
	default:
		return "none"
	}
}

// MatchTier classifies name against term. The exact tier is case-sensitive;
// the prefix and substring tiers ignore ASCII case, as SQLite's LIKE does.
func MatchTier(name, term string) (Tier, bool) {
	if name == term {
		return TierExact, true
	}
	lname, lterm := lowerASCII(name), lowerASCII(term)
	switch {
	case strings.HasPrefix(lname, lterm):
		return TierPrefix, true
	case strings.Contains(lname, lterm):
		return TierSubstring, true
	default:
		return 0, false
	}
}

// lowerASCII folds A-Z only, matching SQLite's built-in lower().
func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

// Query returns the latest record of every version family whose name matches
// term, ordered exact > prefix > substring and then by attr, capped at limit.
// No match yields an empty slice and a nil error.
func (s *Store) Query(ctx context.Context, term string, limit int) ([]Package, error) {
	if term == "" {
		return nil, ErrEmptyTerm
	}

	// Every member of a family shares the name, so filtering on the name
	// keeps whole families together for latest-version selection.
	rows, err := s.db.QueryContext(ctx, `
		SELECT attr, name, version, description
		FROM packages
		WHERE instr(lower(name), lower(?)) > 0
	`, term)
	if err != nil {
		return nil, readErr("failed to query packages", err)
	}
	defer rows.Close()

	candidates, err := scanPackages(rows)
	if err != nil {
		return nil, readErr("failed to read query results", err)
	}

	return Rank(candidates, term, s.order, limit), nil
}

// Rank applies latest-version selection and three-tier ordering to records.
// Records whose name does not contain term are dropped.
func Rank(records []Package, term string, order VersionOrder, limit int) []Package {
	if limit <= 0 {
		limit = DefaultLimit
	}

	type ranked struct {
		pkg  Package
		tier Tier
	}

	latest := LatestPerName(records, order)
	matches := make([]ranked, 0, len(latest))
	for _, pkg := range latest {
		if tier, ok := MatchTier(pkg.Name, term); ok {
			matches = append(matches, ranked{pkg: pkg, tier: tier})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].tier != matches[j].tier {
			return matches[i].tier < matches[j].tier
		}
		return matches[i].pkg.Attr < matches[j].pkg.Attr
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Package, len(matches))
	for i, m := range matches {
		out[i] = m.pkg
	}
	return out
}

// LatestPerName keeps exactly one record per name: the one with the greatest
// version, ties broken by the smallest attr.
func LatestPerName(records []Package, order VersionOrder) []Package {
	best := make(map[string]Package, len(records))
	for _, pkg := range records {
		cur, seen := best[pkg.Name]
		if !seen || newer(pkg, cur, order) {
			best[pkg.Name] = pkg
		}
	}

	out := make([]Package, 0, len(best))
	for _, pkg := range best {
		out = append(out, pkg)
	}
	return out
}

func newer(a, b Package, order VersionOrder) bool {
	if c := CompareVersions(a.Version, b.Version, order); c != 0 {
		return c > 0
	}
	return a.Attr < b.Attr
}

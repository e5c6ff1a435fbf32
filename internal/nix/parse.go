package nix

import (
	"encoding/json"
	"fmt"

	"github.com/blackwell-systems/neix/internal/errdefs"
)

// wireEntry is one value of `nix search --json` and `nix eval --json` output.
// Both shapes are a JSON object keyed by attr path.
type wireEntry struct {
	PName       *string `json:"pname"`
	Name        *string `json:"name"`
	Version     *string `json:"version"`
	Description *string `json:"description"`
}

// ParseOptions controls how loosely entries are interpreted.
type ParseOptions struct {
	// NameFromAttr uses the attr path as the name when an entry has neither
	// pname nor name. `nix eval` over a hand-written expression often only
	// yields version and description.
	NameFromAttr bool
}

// Parse decodes a snapshot. Null entries are skipped. Empty version and
// description strings are treated as absent. An entry without a resolvable
// name fails the whole snapshot.
func Parse(data []byte, opts ParseOptions) (Snapshot, error) {
	var raw map[string]*wireEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errdefs.Snapshot(errdefs.PhaseParse, "failed to decode snapshot JSON", err)
	}

	snap := make(Snapshot, len(raw))
	for attr, w := range raw {
		if w == nil {
			continue
		}
		if attr == "" {
			return nil, errdefs.Snapshot(errdefs.PhaseParse, "snapshot contains an empty attr path", nil)
		}

		name := firstNonEmpty(w.PName, w.Name)
		if name == "" && opts.NameFromAttr {
			name = attr
		}
		if name == "" {
			return nil, errdefs.Snapshot(errdefs.PhaseParse, fmt.Sprintf("entry %s has no pname or name", attr), nil)
		}

		snap[attr] = Entry{
			Name:        name,
			Version:     nonEmpty(w.Version),
			Description: nonEmpty(w.Description),
		}
	}
	return snap, nil
}

func firstNonEmpty(vals ...*string) string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

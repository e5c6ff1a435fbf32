package store

import (
	"fmt"
	"strings"
)

// VersionOrder selects the total order over version strings used to pick the
// latest record of a version family.
type VersionOrder string

const (
	// OrderLexical compares version strings bytewise, matching SQLite's
	// MAX(version) over TEXT. "9" sorts above "10".
	OrderLexical VersionOrder = "lexical"

	// OrderNatural compares digit runs numerically and everything else
	// bytewise, so "1.10" sorts above "1.9".
	OrderNatural VersionOrder = "natural"
)

// ParseVersionOrder validates a configured ordering name. Empty means lexical.
func ParseVersionOrder(s string) (VersionOrder, error) {
	switch VersionOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderLexical:
		return OrderLexical, nil
	case OrderNatural:
		return OrderNatural, nil
	default:
		return "", fmt.Errorf("unknown version order %q (want %q or %q)", s, OrderLexical, OrderNatural)
	}
}

// CompareVersions orders two optional versions. An absent version sorts
// below every present one, including the empty string.
func CompareVersions(a, b *string, order VersionOrder) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if order == OrderNatural {
		return compareNatural(*a, *b)
	}
	return strings.Compare(*a, *b)
}

// compareNatural splits both strings into runs of digits and non-digits and
// compares them pairwise. Strings that are numerically equal but spelled
// differently ("01" vs "1") fall back to a bytewise compare so the order
// stays total.
func compareNatural(a, b string) int {
	x, y := a, b
	for x != "" && y != "" {
		cx, restX := nextRun(x)
		cy, restY := nextRun(y)

		var c int
		if isDigit(cx[0]) && isDigit(cy[0]) {
			c = compareDigits(cx, cy)
		} else {
			c = strings.Compare(cx, cy)
		}
		if c != 0 {
			return c
		}
		x, y = restX, restY
	}

	switch {
	case x == "" && y == "":
		return strings.Compare(a, b)
	case x == "":
		return -1
	default:
		return 1
	}
}

func nextRun(s string) (run, rest string) {
	digit := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}
	return s[:i], s[i:]
}

func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

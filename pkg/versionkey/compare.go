// Package versionkey compares free-form APK version strings by their numeric
// segments.
//
// A version is reduced to a key by dropping ASCII letters, treating '-' and
// '_' as '.', splitting on '.', and reading every segment as a non-negative
// integer (empty segments count as zero). Two keys are compared segment by
// segment after padding the shorter one with zeros, so "1.2" equals "1.2.0"
// and "1.2b" equals "1.2".
//
// The key says nothing about the shape of a version: "1.2-beta3" and
// "1.2.3" reduce to the same key.
package versionkey

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// ErrEmpty is returned by Compare when either version is empty. Such
// versions have no key; callers compare them with CompareWithFallback.
var ErrEmpty = errors.New("empty version")

// ErrMalformed is returned when a segment is not an integer once letters
// have been removed.
var ErrMalformed = errors.New("malformed version segment")

// Ordering is the result of comparing two versions.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "<"
	case Greater:
		return ">"
	default:
		return "="
	}
}

var letters = regexp.MustCompile(`[A-Za-z]+`)

var separators = strings.NewReplacer("-", ".", "_", ".")

// Key is the ordered numeric form of a version string.
type Key []*big.Int

func (k Key) fetch(n int) *big.Int {
	if n >= len(k) {
		return big.NewInt(0)
	}
	return k[n]
}

// Compare orders k against other, zero-filling the shorter key.
func (k Key) Compare(other Key) Ordering {
	for i, n := 0, max(len(k), len(other)); i < n; i++ {
		if diff := k.fetch(i).Cmp(other.fetch(i)); diff != 0 {
			return Ordering(diff)
		}
	}
	return Equal
}

func (k Key) String() string {
	parts := make([]string, len(k))
	for i, n := range k {
		parts[i] = n.String()
	}
	return strings.Join(parts, ".")
}

// Parse reduces v to its numeric key.
func Parse(v string) (Key, error) {
	stripped := letters.ReplaceAllString(separators.Replace(v), "")
	segments := strings.Split(stripped, ".")

	key := make(Key, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			key = append(key, big.NewInt(0))
			continue
		}
		n, ok := new(big.Int).SetString(seg, 10)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("%w: %q in %q", ErrMalformed, seg, v)
		}
		key = append(key, n)
	}
	return key, nil
}

// Compare orders version a against version b. Both must be non-empty.
func Compare(a, b string) (Ordering, error) {
	if a == "" || b == "" {
		return Equal, ErrEmpty
	}
	ka, err := Parse(a)
	if err != nil {
		return Equal, err
	}
	kb, err := Parse(b)
	if err != nil {
		return Equal, err
	}
	return ka.Compare(kb), nil
}

// CompareWithFallback behaves like Compare unless either version is empty,
// in which case fallbackA and fallbackB (usually the package identifiers)
// are compared as plain strings.
func CompareWithFallback(a, b, fallbackA, fallbackB string) (Ordering, error) {
	if a == "" || b == "" {
		return Ordering(strings.Compare(fallbackA, fallbackB)), nil
	}
	return Compare(a, b)
}

// Max returns the highest of versions, skipping entries that fail to parse.
// The second result reports the skipped entries.
func Max(versions []string) (string, []string) {
	var (
		best    string
		bestKey Key
		skipped []string
	)
	for _, v := range versions {
		k, err := Parse(v)
		if err != nil {
			skipped = append(skipped, v)
			continue
		}
		if bestKey == nil || k.Compare(bestKey) == Greater {
			best, bestKey = v, k
		}
	}
	return best, skipped
}

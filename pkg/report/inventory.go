// Package report loads the inventory of locally held APKs and decides which
// newly discovered releases are worth downloading.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/huanfeng/apkcrawler/pkg/models"
)

// ErrEmptyInventory is returned when a report yields no tracked packages.
var ErrEmptyInventory = errors.New("inventory contains no packages")

// errMalformedLine marks a data line whose columns cannot be read.
var errMalformedLine = errors.New("malformed report line")

// Version codes used by factory images rather than real releases.
var factoryImageCodes = map[int64]bool{
	1: true, 19: true, 21: true, 22: true, 23: true, 24: true,
	25: true, 26: true, 27: true, 28: true, 29: true,
}

// Inventory maps a case-normalized package identifier to the records held
// for it. It is not safe for concurrent mutation; the crawler only reads a
// loaded inventory.
type Inventory struct {
	records   map[string][]models.PackageRecord
	skipped   int
	malformed int
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{records: make(map[string][]models.PackageRecord)}
}

// LoadInventory parses a report of held APKs. Each data line holds the
// columns name|arch|sdk|dpi|version|versionCode followed by an optional
// size column and the signature. Lines whose first column does not start
// with a lowercase letter (headers, rulers) are ignored; data lines with a
// non-numeric versionCode are counted as malformed and skipped.
func LoadInventory(r io.Reader) (*Inventory, error) {
	inv := NewInventory()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		rec, ok, err := parseLine(scanner.Text())
		if err != nil {
			inv.malformed++
			continue
		}
		if !ok {
			continue
		}
		if factoryImageCodes[rec.VersionCode] {
			inv.skipped++
			continue
		}
		inv.Add(rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}
	return inv, nil
}

// LoadInventoryFile reads a report from path, or from stdin when path is
// empty or "-".
func LoadInventoryFile(path string) (*Inventory, error) {
	if path == "" || path == "-" {
		return LoadInventory(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadInventory(f)
}

func parseLine(line string) (models.PackageRecord, bool, error) {
	cols := strings.Split(line, "|")
	if len(cols) < 7 || len(cols) > 8 {
		return models.PackageRecord{}, false, nil
	}
	name := strings.TrimSpace(cols[0])
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		return models.PackageRecord{}, false, nil
	}
	code := strings.TrimSpace(cols[5])
	for _, c := range code {
		if c < '0' || c > '9' {
			return models.PackageRecord{}, false, fmt.Errorf("%w: %s: versionCode %q", errMalformedLine, name, code)
		}
	}

	return models.NewPackageRecord(models.RecordInput{
		PackageID:    name,
		Architecture: cols[1],
		MinSDK:       cols[2],
		Density:      cols[3],
		Version:      cols[4],
		VersionCode:  code,
		SourceLabel:  "inventory",
	}), true, nil
}

// Add appends rec under its package key.
func (inv *Inventory) Add(rec models.PackageRecord) {
	key := rec.Key()
	inv.records[key] = append(inv.records[key], rec)
}

// Has reports whether pkg is tracked.
func (inv *Inventory) Has(pkg string) bool {
	_, ok := inv.records[strings.ToLower(pkg)]
	return ok
}

// Records returns the records held for pkg.
func (inv *Inventory) Records(pkg string) []models.PackageRecord {
	return inv.records[strings.ToLower(pkg)]
}

// Packages returns every tracked package key, sorted.
func (inv *Inventory) Packages() []string {
	keys := make([]string, 0, len(inv.records))
	for k := range inv.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PackageIDs returns the identifiers to crawl. Beta lineages are included
// only when includeBeta is set.
func (inv *Inventory) PackageIDs(includeBeta bool) []string {
	var ids []string
	for _, k := range inv.Packages() {
		if !includeBeta && strings.HasSuffix(k, models.BetaSuffix) {
			continue
		}
		ids = append(ids, inv.records[k][0].PackageID)
	}
	return ids
}

// Len returns the number of tracked packages.
func (inv *Inventory) Len() int {
	return len(inv.records)
}

// RecordCount returns the number of held records across all packages.
func (inv *Inventory) RecordCount() int {
	n := 0
	for _, recs := range inv.records {
		n += len(recs)
	}
	return n
}

// Skipped returns how many factory-image lines were ignored while loading.
func (inv *Inventory) Skipped() int {
	return inv.skipped
}

// Malformed returns how many data lines were skipped because a column
// could not be read.
func (inv *Inventory) Malformed() int {
	return inv.malformed
}

// Validate returns ErrEmptyInventory when nothing is tracked.
func (inv *Inventory) Validate() error {
	if inv.Len() == 0 {
		return ErrEmptyInventory
	}
	return nil
}

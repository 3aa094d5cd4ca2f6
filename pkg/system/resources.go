// Package system inspects the local machine and network for the doctor
// command.
package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// Logger is the subset of utils.Logger the checkers write to.
type Logger interface {
	Debug(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

// ResourceChecker checks disk space and permissions of crawler paths.
type ResourceChecker struct {
	logger Logger
}

// NewResourceChecker creates a resource checker. logger may be nil.
func NewResourceChecker(logger Logger) *ResourceChecker {
	return &ResourceChecker{logger: logger}
}

// DiskUsage is raw file system usage in bytes.
type DiskUsage struct {
	Total     uint64
	Used      uint64
	Free      uint64
	Available uint64
}

// DiskSpaceInfo describes the file system holding Path.
type DiskSpaceInfo struct {
	Path      string  `json:"path"`
	Total     uint64  `json:"total"`
	Available uint64  `json:"available"`
	Used      uint64  `json:"used"`
	UsedPct   float64 `json:"used_pct"`
}

func (d DiskSpaceInfo) String() string {
	return fmt.Sprintf("%s: %.1f%% used, %s available", d.Path, d.UsedPct, humanize.IBytes(d.Available))
}

// PathCheck is the outcome of checking one directory.
type PathCheck struct {
	Path     string
	Exists   bool
	Writable bool
	Disk     *DiskSpaceInfo
	Problems []string
}

// OK reports whether the directory can take downloads.
func (p PathCheck) OK() bool {
	return len(p.Problems) == 0
}

// CheckDiskSpace returns usage of the file system containing path. A
// missing path is measured at its nearest existing parent.
func (rc *ResourceChecker) CheckDiskSpace(path string) (*DiskSpaceInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	usage, err := getDiskUsage(existingParent(absPath))
	if err != nil {
		return nil, err
	}

	info := &DiskSpaceInfo{
		Path:      absPath,
		Total:     usage.Total,
		Available: usage.Available,
		Used:      usage.Used,
	}
	if usage.Total > 0 {
		info.UsedPct = float64(usage.Used) / float64(usage.Total) * 100
	}

	if rc.logger != nil {
		rc.logger.Debug("disk space for %s: %.2f%% used (%s / %s)",
			absPath, info.UsedPct, humanize.IBytes(usage.Used), humanize.IBytes(usage.Total))
	}
	return info, nil
}

// CheckOutputDir checks that dir exists (or can be created), is writable
// and has at least minFree bytes available.
func (rc *ResourceChecker) CheckOutputDir(dir string, minFree uint64) PathCheck {
	check := PathCheck{Path: dir}

	st, err := os.Stat(dir)
	switch {
	case err == nil && !st.IsDir():
		check.Problems = append(check.Problems, fmt.Sprintf("%s is not a directory", dir))
		return check
	case err == nil:
		check.Exists = true
		if err := checkWritePermission(dir); err != nil {
			check.Problems = append(check.Problems, fmt.Sprintf("%s is not writable: %v", dir, err))
		} else {
			check.Writable = true
		}
	case os.IsNotExist(err):
		// created on first download; the parent has to be writable
		parent := existingParent(dir)
		if err := checkWritePermission(parent); err != nil {
			check.Problems = append(check.Problems, fmt.Sprintf("cannot create %s under %s: %v", dir, parent, err))
		} else {
			check.Writable = true
		}
	default:
		check.Problems = append(check.Problems, fmt.Sprintf("cannot access %s: %v", dir, err))
		return check
	}

	disk, err := rc.CheckDiskSpace(dir)
	if err != nil {
		if rc.logger != nil {
			rc.logger.Warn("disk space check failed for %s: %v", dir, err)
		}
		return check
	}
	check.Disk = disk
	if minFree > 0 && disk.Available < minFree {
		check.Problems = append(check.Problems, fmt.Sprintf("only %s available in %s, need %s",
			humanize.IBytes(disk.Available), dir, humanize.IBytes(minFree)))
	}
	return check
}

func checkWritePermission(dir string) error {
	f, err := os.CreateTemp(dir, ".apkcrawler_write_test")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func existingParent(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

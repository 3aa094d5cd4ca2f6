//go:build windows

package system

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func getDiskUsage(path string) (*DiskUsage, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, fmt.Errorf("failed to convert path to UTF-16: %w", err)
	}

	var available, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(p, &available, &total, &free); err != nil {
		return nil, fmt.Errorf("GetDiskFreeSpaceEx failed: %w", err)
	}
	return &DiskUsage{
		Total:     total,
		Used:      total - free,
		Free:      free,
		Available: available,
	}, nil
}

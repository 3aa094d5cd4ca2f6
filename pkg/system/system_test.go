package system

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCheckOutputDir(t *testing.T) {
	rc := NewResourceChecker(nil)
	dir := t.TempDir()

	check := rc.CheckOutputDir(dir, 0)
	if !check.OK() || !check.Exists || !check.Writable {
		t.Fatalf("CheckOutputDir(existing) = %+v, want ok", check)
	}
	if check.Disk == nil || check.Disk.Total == 0 {
		t.Errorf("Disk = %+v, want usage", check.Disk)
	}

	missing := filepath.Join(dir, "a", "b")
	check = rc.CheckOutputDir(missing, 0)
	if !check.OK() || check.Exists || !check.Writable {
		t.Errorf("CheckOutputDir(missing) = %+v, want creatable", check)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if check := rc.CheckOutputDir(file, 0); check.OK() {
		t.Error("CheckOutputDir(file) reported ok")
	}

	if check := rc.CheckOutputDir(dir, ^uint64(0)); check.OK() {
		t.Error("CheckOutputDir with impossible free space reported ok")
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{context.DeadlineExceeded, CategoryTimeout},
		{fmt.Errorf("get: %w", &net.DNSError{Err: "no such host", Name: "x.invalid"}), CategoryDNS},
		{errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), CategoryRefused},
		{errors.New("proxyconnect tcp: proxy refused"), CategoryProxy},
		{errors.New("something odd"), CategoryUnknown},
	}
	for _, tt := range tests {
		if got := CategorizeError(tt.err); got != tt.want {
			t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, got, tt.want)
		}
		if tt.err != nil && len(Suggestions(CategorizeError(tt.err))) == 0 {
			t.Errorf("no suggestions for %v", tt.err)
		}
	}
}

func TestCheckSites(t *testing.T) {
	nc := NewNetworkChecker(nil, time.Second)
	reach := func(ctx context.Context, url string) (int, error) {
		switch url {
		case "http://up":
			return 301, nil
		case "http://broken":
			return 503, nil
		}
		return 0, errors.New("connection refused")
	}

	got := nc.CheckSites(context.Background(), []SiteTarget{
		{Name: "c", URL: "http://down"},
		{Name: "a", URL: "http://up"},
		{Name: "b", URL: "http://broken"},
	}, reach)

	if len(got) != 3 || got[0].Name != "a" || got[1].Name != "b" || got[2].Name != "c" {
		t.Fatalf("CheckSites order = %+v", got)
	}
	if !got[0].Reachable() {
		t.Error("redirecting site reported unreachable")
	}
	if got[1].Reachable() || got[1].Category != CategoryHTTP {
		t.Errorf("broken site = %+v", got[1])
	}
	if got[2].Reachable() || got[2].Category != CategoryRefused {
		t.Errorf("down site = %+v", got[2])
	}
}

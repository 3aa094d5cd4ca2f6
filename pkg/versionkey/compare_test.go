package versionkey

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want Ordering
	}{
		{"1.2", "1.2.0", Equal},
		{"1.2b", "1.2", Equal},
		{"1-2-3", "1.2.3", Equal},
		{"1_2", "1.2", Equal},
		{"1.10", "1.9", Greater},
		{"1.9", "1.10", Less},
		{"6.0.25", "6.0.3", Greater},
		{"1..2", "1.0.2", Equal},
		{"2.0", "10.0", Less},
		{"7.5.1", "7.5.1", Equal},
		{"v3.1", "3.1.0.0", Equal},
		{"1.2-beta3", "1.2.3", Equal},
		{"1.2-beta_3", "1.2.0.3", Equal},
		{"99999999999999999999.1", "99999999999999999999.0", Greater},
	}

	for _, tt := range tests {
		got, err := Compare(tt.a, tt.b)
		if err != nil {
			t.Errorf("Compare(%q, %q) error: %v", tt.a, tt.b, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Compare(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareReflexiveAndAntisymmetric(t *testing.T) {
	versions := []string{"1", "1.0", "1.2.3", "4.1.0-beta", "2015_05_01", "0.0.1"}

	for _, v := range versions {
		got, err := Compare(v, v)
		if err != nil {
			t.Fatalf("Compare(%q, %q) error: %v", v, v, err)
		}
		if got != Equal {
			t.Errorf("Compare(%q, %q) = %v, want =", v, v, got)
		}
	}

	for _, a := range versions {
		for _, b := range versions {
			ab, errA := Compare(a, b)
			ba, errB := Compare(b, a)
			if errA != nil || errB != nil {
				continue
			}
			if ab != -ba {
				t.Errorf("Compare(%q, %q) = %v but Compare(%q, %q) = %v", a, b, ab, b, a, ba)
			}
		}
	}
}

func TestCompareMalformed(t *testing.T) {
	for _, v := range []string{"1.2 (arm)", "1.2+3", "1.2/4"} {
		if _, err := Compare(v, "1.0"); !errors.Is(err, ErrMalformed) {
			t.Errorf("Compare(%q, 1.0) error = %v, want ErrMalformed", v, err)
		}
		if _, err := Compare("1.0", v); !errors.Is(err, ErrMalformed) {
			t.Errorf("Compare(1.0, %q) error = %v, want ErrMalformed", v, err)
		}
	}
}

func TestCompareEmpty(t *testing.T) {
	for _, pair := range [][2]string{{"", "1.0"}, {"1.0", ""}, {"", "0"}, {"", ""}} {
		if _, err := Compare(pair[0], pair[1]); !errors.Is(err, ErrEmpty) {
			t.Errorf("Compare(%q, %q) error = %v, want ErrEmpty", pair[0], pair[1], err)
		}
	}

	got, err := CompareWithFallback("", "0", "com.b", "com.b")
	if err != nil || got != Equal {
		t.Errorf("CompareWithFallback(same fallback) = %v, %v; want =", got, err)
	}
}

func TestCompareWithFallback(t *testing.T) {
	got, err := CompareWithFallback("", "1.0", "com.a", "com.b")
	if err != nil {
		t.Fatalf("CompareWithFallback error: %v", err)
	}
	if got != Less {
		t.Errorf("CompareWithFallback(empty) = %v, want <", got)
	}

	got, err = CompareWithFallback("2.0", "1.0", "com.z", "com.a")
	if err != nil {
		t.Fatalf("CompareWithFallback error: %v", err)
	}
	if got != Greater {
		t.Errorf("CompareWithFallback = %v, want >", got)
	}
}

func TestParse(t *testing.T) {
	k, err := Parse("5.1.2-beta_7")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if diff := cmp.Diff("5.1.2.0.7", k.String()); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestMax(t *testing.T) {
	best, skipped := Max([]string{"1.2", "1.10", "bad value", "1.9.9"})
	if best != "1.10" {
		t.Errorf("Max = %q, want 1.10", best)
	}
	if diff := cmp.Diff([]string{"bad value"}, skipped); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}
}

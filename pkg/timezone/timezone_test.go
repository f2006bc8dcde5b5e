package timezone

import (
	"testing"
	"time"
)

// go test -v --run TestLoad
func TestLoad(t *testing.T) {
	ref := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		wantOffset int
	}{
		{"", 0},
		{"UTC", 0},
		{"jst", 9 * 3600},
		{"JST", 9 * 3600},
		{"EST", -5 * 3600},
		{"Asia/Tokyo", 9 * 3600},
	}
	for _, tt := range tests {
		loc, err := Load(tt.name)
		if err != nil {
			t.Fatalf("Load(%q) unexpected error: %v", tt.name, err)
		}
		if _, off := ref.In(loc).Zone(); off != tt.wantOffset {
			t.Errorf("Load(%q) offset = %d, want %d", tt.name, off, tt.wantOffset)
		}
	}

	if _, err := Load("Mars/Olympus"); err == nil {
		t.Error("expected error for unknown zone")
	}
}

// go test -v --run TestAbbreviation
func TestAbbreviation(t *testing.T) {
	if loc, ok := Abbreviation("gmt"); !ok || loc != time.UTC {
		t.Errorf("Abbreviation(gmt) = %v, %v", loc, ok)
	}
	if _, ok := Abbreviation("XYZ"); ok {
		t.Error("Abbreviation(XYZ) should not resolve")
	}
}

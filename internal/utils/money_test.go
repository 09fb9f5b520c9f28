package utils

import "testing"

func TestFormatMinor(t *testing.T) {
	cases := []struct {
		minor int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{100, "1.00"},
		{12345, "123.45"},
		{-12345, "-123.45"},
	}
	for _, tc := range cases {
		if got := FormatMinor(tc.minor); got != tc.want {
			t.Fatalf("FormatMinor(%d) = %q, want %q", tc.minor, got, tc.want)
		}
	}
}

func TestParseMinor(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"123.45", 12345, false},
		{"123", 12300, false},
		{"123.4", 12340, false},
		{"-1.05", -105, false},
		{".99", 99, false},
		{"0", 0, false},
		{"", 0, true},
		{"1.234", 0, true},
		{"abc", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseMinor(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseMinor(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseMinor(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseMinor(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestNewIDIsUniqueAndSortable(t *testing.T) {
	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 1000; i++ {
		id := NewID()
		if len(id) != 26 {
			t.Fatalf("unexpected id length %d for %q", len(id), id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
		if prev != "" && id < prev {
			t.Fatalf("ids not monotonically ordered: %q after %q", id, prev)
		}
		prev = id
	}
}

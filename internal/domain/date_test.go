package domain

import "testing"

// TestFormatDate tests the D/M/Y frame label.
func TestFormatDate(t *testing.T) {
	if got := FormatDate("20030415"); got != "15/04/2003" {
		t.Errorf("FormatDate: expected 15/04/2003, got %s", got)
	}
	if got := FormatDate("2003"); got != "2003" {
		t.Errorf("FormatDate short input: expected unchanged, got %s", got)
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"20010101", "20010101", false},
		{" 20010102 ", "20010102", false},
		{"20010103.0", "20010103", false},
		{"2001-01-01", "", true},
		{"20011301", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeDate(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeDate(%q): expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NormalizeDate(%q): unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("NormalizeDate(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

// TestDecodeTimeAxis_DateIntegers tests fixed-width date values without units.
func TestDecodeTimeAxis_DateIntegers(t *testing.T) {
	got, err := DecodeTimeAxis([]float64{20010101, 20010102}, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got[0] != "20010101" || got[1] != "20010102" {
		t.Errorf("expected [20010101 20010102], got %v", got)
	}
}

// TestDecodeTimeAxis_CFUnits tests offset axes with CF units.
func TestDecodeTimeAxis_CFUnits(t *testing.T) {
	got, err := DecodeTimeAxis([]float64{0, 1, 31}, "days since 2001-01-01 00:00:00")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := []string{"20010101", "20010102", "20010201"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	hours, err := DecodeTimeAxis([]float64{48}, "hours since 2001-01-01")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if hours[0] != "20010103" {
		t.Errorf("expected 20010103, got %s", hours[0])
	}

	if _, err := DecodeTimeAxis([]float64{1}, "fortnights since 2001-01-01"); err == nil {
		t.Error("expected error for unsupported unit")
	}
}

func TestParseEventRecord(t *testing.T) {
	rec, err := ParseEventRecord(3, "20010101", "20010102.0", " 5.5", "10", " flood ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rec.Row != 3 || rec.LastDate != "20010102" || rec.Latitude != 5.5 || rec.Longitude != 10 || rec.Text != "flood" {
		t.Errorf("unexpected record: %+v", rec)
	}

	bad := [][5]string{
		{"2001", "20010102", "5", "10", "x"},
		{"20010101", "", "5", "10", "x"},
		{"20010101", "20010102", "north", "10", "x"},
		{"20010101", "20010102", "5", "east", "x"},
		{"20010101", "20010102", "95", "10", "x"},
	}
	for _, b := range bad {
		if _, err := ParseEventRecord(1, b[0], b[1], b[2], b[3], b[4]); err == nil {
			t.Errorf("expected error for row %v", b)
		}
	}
}

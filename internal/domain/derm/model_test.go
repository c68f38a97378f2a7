package derm

import (
	"testing"
	"time"
)

func TestParseSex(t *testing.T) {
	cases := []struct {
		in      string
		want    Sex
		wantErr bool
	}{
		{"male", SexMale, false},
		{"female", SexFemale, false},
		{"Male", SexMale, false},
		{"FEMALE", SexFemale, false},
		{" male ", SexMale, false},
		{"", "", true},
		{"other", "", true},
	}

	for _, tc := range cases {
		got, err := ParseSex(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseSex(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSex(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSex(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSexTitle(t *testing.T) {
	if got := SexMale.Title(); got != "Male" {
		t.Errorf("Title() = %q, want Male", got)
	}
	if got := SexFemale.Title(); got != "Female" {
		t.Errorf("Title() = %q, want Female", got)
	}
}

func TestParseLocation(t *testing.T) {
	for _, loc := range Locations() {
		got, err := ParseLocation(string(loc))
		if err != nil {
			t.Errorf("ParseLocation(%q) unexpected error: %v", loc, err)
		}
		if got != loc {
			t.Errorf("ParseLocation(%q) = %q", loc, got)
		}
	}

	// Case-insensitive
	got, err := ParseLocation("Head & Neck")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != LocationHeadNeck {
		t.Errorf("ParseLocation(Head & Neck) = %q", got)
	}

	if _, err := ParseLocation("elbow"); err == nil {
		t.Error("expected error for unknown location")
	}
}

func TestLocationCode(t *testing.T) {
	cases := map[Location]string{
		LocationHeadNeck:   "HN",
		LocationTorsoFront: "FT",
		LocationTorsoBack:  "BT",
		LocationLeftLeg:    "LL",
		LocationRightLeg:   "RL",
		LocationLeftArm:    "LA",
		LocationRightArm:   "RA",
	}
	for loc, want := range cases {
		got, err := loc.Code()
		if err != nil {
			t.Errorf("Code(%q) unexpected error: %v", loc, err)
			continue
		}
		if got != want {
			t.Errorf("Code(%q) = %q, want %q", loc, got, want)
		}
	}

	if _, err := Location("scalp").Code(); err == nil {
		t.Error("expected error for unknown location code")
	}
}

func TestAgeAt(t *testing.T) {
	now := time.Date(2025, 1, 26, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		dob  string
		want int
	}{
		{"26/01/2025", 0},
		{"27/01/2000", 24}, // birthday tomorrow
		{"26/01/2000", 25}, // birthday today
		{"25/01/2000", 25},
		{"01/01/1990", 35},
	}
	for _, tc := range cases {
		dob, err := ParseDOB(tc.dob)
		if err != nil {
			t.Fatalf("ParseDOB(%q): %v", tc.dob, err)
		}
		if got := AgeAt(dob, now); got != tc.want {
			t.Errorf("AgeAt(%s) = %d, want %d", tc.dob, got, tc.want)
		}
	}
}

func TestAgeFromDOB_CorruptDate(t *testing.T) {
	if _, err := AgeFromDOB("1990-01-01", time.Now()); err == nil {
		t.Error("expected data-integrity error for ISO date in stored field")
	}
}

package derm

import (
	"regexp"
	"testing"
	"time"
)

func TestPatientID(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := PatientID(now); got != "PAT-20240101120000" {
		t.Errorf("PatientID = %q, want PAT-20240101120000", got)
	}
}

func TestLesionID_ExplicitCounter(t *testing.T) {
	now := time.Now()

	got, err := LesionID(LocationLeftLeg, 1, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "LESION_LL_001" {
		t.Errorf("LesionID = %q, want LESION_LL_001", got)
	}

	got, err = LesionID(LocationHeadNeck, 42, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "LESION_HN_042" {
		t.Errorf("LesionID = %q, want LESION_HN_042", got)
	}
}

func TestLesionID_TimestampCounter(t *testing.T) {
	// 14:30:25 -> last three digits of 143025 are 025
	now := time.Date(2025, 1, 26, 14, 30, 25, 0, time.UTC)
	got, err := LesionID(LocationRightArm, 0, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "LESION_RA_025" {
		t.Errorf("LesionID = %q, want LESION_RA_025", got)
	}
}

func TestLesionID_FormatForAllLocations(t *testing.T) {
	pattern := regexp.MustCompile(`^LESION_[A-Z]{2}_\d{3}$`)
	now := time.Now()
	for _, loc := range Locations() {
		id, err := LesionID(loc, 0, now)
		if err != nil {
			t.Errorf("LesionID(%q) unexpected error: %v", loc, err)
			continue
		}
		if !pattern.MatchString(id) {
			t.Errorf("LesionID(%q) = %q, does not match LESION_XX_NNN", loc, id)
		}
	}
}

func TestLesionID_Errors(t *testing.T) {
	now := time.Now()

	if _, err := LesionID(Location("forehead"), 1, now); err == nil {
		t.Error("expected error for unrecognized location")
	}
	if _, err := LesionID(LocationLeftLeg, 1000, now); err == nil {
		t.Error("expected error for counter > 999")
	}
	if _, err := LesionID(LocationLeftLeg, -5, now); err == nil {
		t.Error("expected error for negative counter")
	}
}

// Package derm holds the clinical vocabulary shared by the workflow and the
// backend clients: patient sex, the seven anatomical locations the models were
// trained on, the wire date format, and the identifier schemes.
package derm

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the DD/MM/YYYY layout used for dates of birth end-to-end,
// on the wire and in the UI.
const DateFormat = "02/01/2006"

// MaxAgeYears is the highest plausible patient age accepted at capture.
const MaxAgeYears = 120

// Sex is the two-value patient sex enumeration, lowercase on the wire.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// ParseSex normalizes a user- or wire-supplied sex value.
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return SexMale, nil
	case "female":
		return SexFemale, nil
	}
	return "", fmt.Errorf("sex must be %q or %q, got %q", SexMale, SexFemale, s)
}

// Title returns the UI form of the sex value ("Male", "Female").
func (s Sex) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Location is an anatomical location in its wire form, e.g. "left leg".
type Location string

const (
	LocationHeadNeck   Location = "head & neck"
	LocationTorsoFront Location = "torso front"
	LocationTorsoBack  Location = "torso back"
	LocationLeftLeg    Location = "left leg"
	LocationRightLeg   Location = "right leg"
	LocationLeftArm    Location = "left arm"
	LocationRightArm   Location = "right arm"
)

// locations maps each wire value to its 2-letter code and display name.
// The codes appear inside generated lesion identifiers (LESION_LL_001).
var locations = map[Location]struct {
	code    string
	display string
}{
	LocationHeadNeck:   {"HN", "Head and Neck"},
	LocationTorsoFront: {"FT", "Torso Front"},
	LocationTorsoBack:  {"BT", "Torso Back"},
	LocationLeftLeg:    {"LL", "Left Leg"},
	LocationRightLeg:   {"RL", "Right Leg"},
	LocationLeftArm:    {"LA", "Left Arm"},
	LocationRightArm:   {"RA", "Right Arm"},
}

// Locations returns all valid locations in a fixed order.
func Locations() []Location {
	return []Location{
		LocationHeadNeck,
		LocationTorsoFront,
		LocationTorsoBack,
		LocationLeftLeg,
		LocationRightLeg,
		LocationLeftArm,
		LocationRightArm,
	}
}

// ParseLocation matches a location value case-insensitively against the
// seven-value enumeration.
func ParseLocation(s string) (Location, error) {
	loc := Location(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := locations[loc]; !ok {
		return "", fmt.Errorf("unknown anatomical location %q", s)
	}
	return loc, nil
}

// Code returns the 2-letter anatomical location code (e.g. LL for left leg).
func (l Location) Code() (string, error) {
	info, ok := locations[l]
	if !ok {
		return "", fmt.Errorf("unknown anatomical location %q", string(l))
	}
	return info.code, nil
}

// DisplayName returns the UI form of the location, or the raw value when the
// location is not part of the enumeration.
func (l Location) DisplayName() string {
	if info, ok := locations[l]; ok {
		return info.display
	}
	return string(l)
}

// ParseDOB parses a DD/MM/YYYY date of birth.
func ParseDOB(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, expected DD/MM/YYYY (e.g. 23/07/1980)")
	}
	return t, nil
}

// AgeAt returns the whole-year age at the given instant for a date of birth.
func AgeAt(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	anniversary := dob.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// AgeFromDOB derives the current whole-year age from a stored DD/MM/YYYY date
// of birth. A parse failure here means a record already persisted with a bad
// date, which is a data-integrity condition rather than a user input error.
func AgeFromDOB(dateOfBirth string, now time.Time) (int, error) {
	dob, err := ParseDOB(dateOfBirth)
	if err != nil {
		return 0, fmt.Errorf("stored date of birth %q is corrupt: %w", dateOfBirth, err)
	}
	return AgeAt(dob, now), nil
}

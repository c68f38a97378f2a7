package derm

import (
	"fmt"
	"time"
)

// Identifier formats. A patient ID encodes the creation instant to one-second
// resolution; a lesion ID combines the location code with a 3-digit counter.
// Both schemes are timestamp-based and non-atomic: two generations within the
// same second can collide. That window is accepted for this single-operator
// tool because the backend rejects duplicate identifiers on create.
const (
	patientIDPrefix    = "PAT-"
	patientIDTimestamp = "20060102150405"
	lesionIDPrefix     = "LESION_"
)

// PatientID generates a patient identifier, e.g. PAT-20250126143025.
func PatientID(now time.Time) string {
	return patientIDPrefix + now.Format(patientIDTimestamp)
}

// LesionID generates a lesion identifier, e.g. LESION_LL_001.
//
// The counter must be 1-999. Passing 0 falls back to the last three digits of
// the current HHMMSS time of day, which is a heuristic uniqueness mechanism,
// not a strict sequence.
func LesionID(location Location, counter int, now time.Time) (string, error) {
	code, err := location.Code()
	if err != nil {
		return "", err
	}

	var suffix string
	switch {
	case counter == 0:
		hhmmss := now.Format("150405")
		suffix = hhmmss[len(hhmmss)-3:]
	case counter >= 1 && counter <= 999:
		suffix = fmt.Sprintf("%03d", counter)
	default:
		return "", fmt.Errorf("lesion counter must be between 1 and 999, got %d", counter)
	}

	return lesionIDPrefix + code + "_" + suffix, nil
}

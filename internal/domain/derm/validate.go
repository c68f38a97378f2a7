package derm

import (
	"fmt"
	"strings"
	"time"
)

// Lesion size bounds for analysis submissions, in millimeters. These mirror
// the input range the feature-based model was trained on; lesion registration
// accepts any positive size.
const (
	MinAnalysisSizeMM = 0.0
	MaxAnalysisSizeMM = 200.0
)

// ValidatePatientName checks a patient's full name. The trimmed name must be
// at least 3 characters.
func ValidatePatientName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("patient name is required")
	}
	if len(trimmed) < 3 {
		return fmt.Errorf("name must be at least 3 characters long")
	}
	return nil
}

// ValidateDateOfBirth checks a DD/MM/YYYY date of birth against format,
// future dates and the maximum plausible age.
func ValidateDateOfBirth(dateOfBirth string, now time.Time) error {
	if strings.TrimSpace(dateOfBirth) == "" {
		return fmt.Errorf("date of birth is required")
	}
	dob, err := ParseDOB(dateOfBirth)
	if err != nil {
		return err
	}
	if dob.After(now) {
		return fmt.Errorf("date of birth cannot be in the future")
	}
	if AgeAt(dob, now) > MaxAgeYears {
		return fmt.Errorf("age cannot exceed %d years", MaxAgeYears)
	}
	return nil
}

// ValidateSex checks the two-value sex enumeration.
func ValidateSex(sex string) error {
	if strings.TrimSpace(sex) == "" {
		return fmt.Errorf("sex is required")
	}
	if _, err := ParseSex(sex); err != nil {
		return err
	}
	return nil
}

// ValidateLocation checks an anatomical location against the seven-value
// enumeration, case-insensitively.
func ValidateLocation(location string) error {
	if strings.TrimSpace(location) == "" {
		return fmt.Errorf("lesion location is required")
	}
	if _, err := ParseLocation(location); err != nil {
		return err
	}
	return nil
}

// ValidateInitialSize checks the lesion size recorded at registration.
// Any positive size is accepted; there is no upper bound at this stage.
func ValidateInitialSize(sizeMM float64) error {
	if sizeMM <= 0 {
		return fmt.Errorf("lesion size must be greater than 0 mm")
	}
	return nil
}

// ValidateCurrentSize checks the lesion size supplied at analysis time. The
// models impose an inclusive input range that registration does not.
func ValidateCurrentSize(sizeMM float64) error {
	if sizeMM < MinAnalysisSizeMM {
		return fmt.Errorf("lesion size for analysis must be at least %g mm", MinAnalysisSizeMM)
	}
	if sizeMM > MaxAnalysisSizeMM {
		return fmt.Errorf("lesion size for analysis cannot exceed %g mm", MaxAnalysisSizeMM)
	}
	return nil
}

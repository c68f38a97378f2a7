// Package triage implements the analysis workflow: patient capture, lesion
// capture, image analysis and result display, with persistence deferred until
// the analysis itself succeeds ("create-on-analysis").
package triage

import (
	"time"

	"github.com/google/uuid"

	"github.com/skintriage/skintriage/internal/platform/backend"
)

// Stage is the workflow's primary state. Each stage gates the next; the
// explanation toggle lives orthogonally inside StageResultsShown.
type Stage int

const (
	StageNoPatient Stage = iota
	StagePatientChosen
	StageLesionChosen
	StageAnalysisRunning
	StageResultsShown
)

func (s Stage) String() string {
	switch s {
	case StageNoPatient:
		return "no_patient"
	case StagePatientChosen:
		return "patient_chosen"
	case StageLesionChosen:
		return "lesion_chosen"
	case StageAnalysisRunning:
		return "analysis_running"
	case StageResultsShown:
		return "results_shown"
	}
	return "unknown"
}

// PatientDraft is the workflow's view of a patient. New marks a draft that
// exists only in workflow memory; it flips to false the moment the backend
// accepts the record, so a retried analysis reuses the persisted identifier.
type PatientDraft struct {
	New         bool   `json:"new"`
	PatientID   string `json:"patient_id,omitempty"`
	FullName    string `json:"full_name"`
	Sex         string `json:"sex"`
	DateOfBirth string `json:"date_of_birth"`
}

// LesionDraft is the workflow's view of a lesion. A draft lesion may only
// exist while its patient is a draft or already persisted.
type LesionDraft struct {
	New           bool    `json:"new"`
	LesionID      string  `json:"lesion_id,omitempty"`
	Location      string  `json:"location"`
	InitialSizeMM float64 `json:"initial_size_mm"`
}

// Workflow is the transient per-session aggregate: drafts, the uploaded
// image, and the last analysis outcome. It is exclusively owned by one
// interactive session and never shared across sessions.
type Workflow struct {
	ID    uuid.UUID `json:"id"`
	Stage Stage     `json:"-"`

	Patient *PatientDraft `json:"patient,omitempty"`
	Lesion  *LesionDraft  `json:"lesion,omitempty"`

	Image         *backend.ImageUpload `json:"-"`
	CurrentSizeMM float64              `json:"current_size_mm,omitempty"`

	Result          *backend.PredictionResult `json:"result,omitempty"`
	Explanation     *backend.Explanation      `json:"explanation,omitempty"`
	ShowExplanation bool                      `json:"show_explanation"`

	// Steps records the persistence steps that succeeded during the last
	// analyze attempt, so a partial failure can surface "patient created"
	// alongside the failing step's error.
	Steps []string `json:"steps,omitempty"`

	// lastRequest holds the metadata of the last successful prediction so
	// the explain call re-submits identical inputs.
	lastRequest backend.PredictRequest

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// reset clears everything except the session identity.
func (w *Workflow) reset(now time.Time) {
	w.Stage = StageNoPatient
	w.Patient = nil
	w.Lesion = nil
	w.Image = nil
	w.CurrentSizeMM = 0
	w.Result = nil
	w.Explanation = nil
	w.ShowExplanation = false
	w.Steps = nil
	w.lastRequest = backend.PredictRequest{}
	w.UpdatedAt = now
}

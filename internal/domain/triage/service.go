package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skintriage/skintriage/internal/domain/derm"
	"github.com/skintriage/skintriage/internal/platform/backend"
)

var (
	// ErrSessionNotFound means the session identifier has no live workflow.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStage marks an operation attempted out of order, e.g. capturing a
	// lesion before a patient is chosen.
	ErrStage = errors.New("workflow stage does not allow this operation")
	// ErrNotFound means a selected patient or lesion does not exist on the
	// backend. Distinct from lookup 404s inside the clients, which mean
	// "no results": selecting a specific record that is gone IS a failure.
	ErrNotFound = errors.New("record not found")
)

// RegistryAPI is the slice of the registry client the workflow needs.
type RegistryAPI interface {
	CreatePatient(ctx context.Context, p backend.Patient) (*backend.Patient, error)
	CreateLesion(ctx context.Context, l backend.Lesion) (*backend.Lesion, error)
	GetPatient(ctx context.Context, patientID string) (*backend.Patient, error)
	GetLesion(ctx context.Context, lesionID string) (*backend.Lesion, error)
}

// PredictionAPI is the slice of the prediction client the workflow needs.
type PredictionAPI interface {
	Predict(ctx context.Context, img backend.ImageUpload, req backend.PredictRequest) (*backend.PredictionResult, error)
	Explain(ctx context.Context, img backend.ImageUpload, req backend.PredictRequest) (*backend.Explanation, error)
}

// Service drives the analysis workflow for all live sessions.
type Service struct {
	registry   RegistryAPI
	prediction PredictionAPI
	store      SessionStore
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService wires the workflow service.
func NewService(registry RegistryAPI, prediction PredictionAPI, store SessionStore, logger zerolog.Logger) *Service {
	return &Service{
		registry:   registry,
		prediction: prediction,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

// Start creates a fresh, empty workflow and registers it in the store.
func (s *Service) Start() (*Workflow, error) {
	now := s.now()
	w := &Workflow{
		ID:        uuid.New(),
		Stage:     StageNoPatient,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(w); err != nil {
		return nil, err
	}
	s.logger.Info().Str("session_id", w.ID.String()).Msg("workflow session started")
	return w, nil
}

// Get returns the live workflow for a session.
func (s *Service) Get(sessionID uuid.UUID) (*Workflow, error) {
	return s.store.Get(sessionID)
}

// PatientInput is the form payload for a new patient draft.
type PatientInput struct {
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
	Sex         string `json:"sex"`
}

// CapturePatient validates a fresh patient draft and holds it in workflow
// memory. Nothing is persisted until the analysis succeeds.
func (s *Service) CapturePatient(sessionID uuid.UUID, in PatientInput) (*Workflow, error) {
	w, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	if err := derm.ValidatePatientName(in.FullName); err != nil {
		return nil, err
	}
	if err := derm.ValidateDateOfBirth(in.DateOfBirth, s.now()); err != nil {
		return nil, err
	}
	sex, err := derm.ParseSex(in.Sex)
	if err != nil {
		return nil, err
	}

	w.Patient = &PatientDraft{
		New:         true,
		FullName:    in.FullName,
		Sex:         string(sex),
		DateOfBirth: in.DateOfBirth,
	}
	s.clearLesion(w)
	w.Stage = StagePatientChosen
	w.UpdatedAt = s.now()
	return w, nil
}

// SelectPatient attaches an existing, persisted patient to the workflow.
func (s *Service) SelectPatient(ctx context.Context, sessionID uuid.UUID, patientID string) (*Workflow, error) {
	w, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	p, err := s.registry.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: patient %s", ErrNotFound, patientID)
	}

	w.Patient = &PatientDraft{
		New:         false,
		PatientID:   p.PatientID,
		FullName:    p.FullName,
		Sex:         string(p.Sex),
		DateOfBirth: p.DateOfBirth,
	}
	s.clearLesion(w)
	w.Stage = StagePatientChosen
	w.UpdatedAt = s.now()
	return w, nil
}

// ClearPatient drops the patient choice and, with it, everything downstream.
func (s *Service) ClearPatient(sessionID uuid.UUID) (*Workflow, error) {
	w, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	w.Patient = nil
	s.clearLesion(w)
	w.Stage = StageNoPatient
	w.UpdatedAt = s.now()
	return w, nil
}

// LesionInput is the form payload for a new lesion draft.
type LesionInput struct {
	Location      string  `json:"location"`
	InitialSizeMM float64 `json:"initial_size_mm"`
}

// CaptureLesion validates a fresh lesion draft and holds it in workflow
// memory.
func (s *Service) CaptureLesion(sessionID uuid.UUID, in LesionInput) (*Workflow, error) {
	w, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if w.Stage < StagePatientChosen || w.Patient == nil {
		return nil, fmt.Errorf("%w: choose a patient first", ErrStage)
	}

	loc, err := derm.ParseLocation(in.Location)
	if err != nil {
		return nil, err
	}
	if err := derm.ValidateInitialSize(in.InitialSizeMM); err != nil {
		return nil, err
	}

	w.Lesion = &LesionDraft{
		New:           true,
		Location:      string(loc),
		InitialSizeMM: in.InitialSizeMM,
	}
	s.clearAnalysis(w)
	w.Stage = StageLesionChosen
	w.UpdatedAt = s.now()
	return w, nil
}

// SelectLesion attaches an existing lesion. A brand-new patient cannot
// already have lesions, so lesion mode is forced to "new" until the patient
// is persisted: selecting is rejected for a draft patient.
func (s *Service) SelectLesion(ctx context.Context, sessionID uuid.UUID, lesionID string) (*Workflow, error) {
	w, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if w.Stage < StagePatientChosen || w.Patient == nil {
		return nil, fmt.Errorf("%w: choose a patient first", ErrStage)
	}
	if w.Patient.New {
		return nil, fmt.Errorf("%w: a new patient cannot have existing lesions", ErrStage)
	}

	l, err := s.registry.GetLesion(ctx, lesionID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("%w: lesion %s", ErrNotFound, lesionID)
	}
	if l.PatientID != w.Patient.PatientID {
		return nil, fmt.Errorf("lesion %s belongs to patient %s, not %s", lesionID, l.PatientID, w.Patient.PatientID)
	}

	w.Lesion = &LesionDraft{
		New:           false,
		LesionID:      l.LesionID,
		Location:      string(l.Location),
		InitialSizeMM: l.InitialSizeMM,
	}
	s.clearAnalysis(w)
	w.Stage = StageLesionChosen
	w.UpdatedAt = s.now()
	return w, nil
}

// ClearLesion drops the lesion choice, returning to the patient step.
func (s *Service) ClearLesion(sessionID uuid.UUID) (*Workflow, error) {
	w, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if w.Patient == nil {
		return nil, fmt.Errorf("%w: no patient chosen", ErrStage)
	}
	s.clearLesion(w)
	w.Stage = StagePatientChosen
	w.UpdatedAt = s.now()
	return w, nil
}

// AttachImage stores the uploaded dermoscopic image and the lesion's current
// size for the next analysis run.
func (s *Service) AttachImage(sessionID uuid.UUID, filename string, data []byte, currentSizeMM float64) (*Workflow, error) {
	w, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if w.Stage != StageLesionChosen || w.Lesion == nil {
		return nil, fmt.Errorf("%w: choose a lesion before uploading an image", ErrStage)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("an image is required for analysis")
	}
	if err := derm.ValidateCurrentSize(currentSizeMM); err != nil {
		return nil, err
	}

	w.Image = &backend.ImageUpload{Filename: filename, Data: data}
	w.CurrentSizeMM = currentSizeMM
	w.UpdatedAt = s.now()
	return w, nil
}

// Analyze runs the create-on-analysis sequence, strictly ordered and
// non-parallel: persist the patient if new, persist the lesion if new, then
// submit the prediction. Each step's success is a precondition for the next;
// a failing step aborts the rest and its error is surfaced verbatim.
//
// Records persisted by a failed attempt are NOT rolled back. Their drafts
// flip to non-new as soon as the backend accepts them, so a retry reuses the
// existing identifiers. A persisted patient/lesion with zero analyses is
// valid transient state.
func (s *Service) Analyze(ctx context.Context, sessionID uuid.UUID) (*Workflow, error) {
	w, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if w.Stage != StageLesionChosen || w.Patient == nil || w.Lesion == nil {
		return nil, fmt.Errorf("%w: complete the patient and lesion steps first", ErrStage)
	}
	if w.Image == nil {
		return nil, fmt.Errorf("an image is required for analysis")
	}

	age, err := derm.AgeFromDOB(w.Patient.DateOfBirth, s.now())
	if err != nil {
		return nil, err
	}

	w.Stage = StageAnalysisRunning
	w.Steps = nil

	fail := func(stepErr error) (*Workflow, error) {
		w.Stage = StageLesionChosen
		w.UpdatedAt = s.now()
		return w, stepErr
	}

	// Step 1: patient
	if w.Patient.New {
		created, err := s.registry.CreatePatient(ctx, backend.Patient{
			PatientID:   derm.PatientID(s.now()),
			FullName:    w.Patient.FullName,
			Sex:         derm.Sex(w.Patient.Sex),
			DateOfBirth: w.Patient.DateOfBirth,
		})
		if err != nil {
			return fail(err)
		}
		w.Patient.PatientID = created.PatientID
		w.Patient.New = false
		w.Steps = append(w.Steps, fmt.Sprintf("patient created: %s (%s)", created.FullName, created.PatientID))
		s.logger.Info().
			Str("session_id", sessionID.String()).
			Str("patient_id", created.PatientID).
			Msg("patient persisted during analysis")
	}

	// Step 2: lesion
	if w.Lesion.New {
		lesionID, err := derm.LesionID(derm.Location(w.Lesion.Location), 0, s.now())
		if err != nil {
			return fail(err)
		}
		created, err := s.registry.CreateLesion(ctx, backend.Lesion{
			LesionID:      lesionID,
			PatientID:     w.Patient.PatientID,
			Location:      derm.Location(w.Lesion.Location),
			InitialSizeMM: w.Lesion.InitialSizeMM,
		})
		if err != nil {
			return fail(err)
		}
		w.Lesion.LesionID = created.LesionID
		w.Lesion.New = false
		w.Steps = append(w.Steps, fmt.Sprintf("lesion created: %s", created.LesionID))
		s.logger.Info().
			Str("session_id", sessionID.String()).
			Str("lesion_id", created.LesionID).
			Msg("lesion persisted during analysis")
	}

	// Step 3: prediction
	req := backend.PredictRequest{
		Age:        age,
		Sex:        derm.Sex(w.Patient.Sex),
		Location:   derm.Location(w.Lesion.Location),
		DiameterMM: w.CurrentSizeMM,
		PatientID:  w.Patient.PatientID,
		LesionID:   w.Lesion.LesionID,
	}
	result, err := s.prediction.Predict(ctx, *w.Image, req)
	if err != nil {
		return fail(err)
	}

	w.Result = result
	w.Explanation = nil
	w.ShowExplanation = false
	w.lastRequest = req
	w.Stage = StageResultsShown
	w.UpdatedAt = s.now()
	return w, nil
}

// Explain fetches the feature-contribution explanation for the last analysis,
// re-submitting the held image bytes with identical metadata, and turns the
// explanation toggle on.
func (s *Service) Explain(ctx context.Context, sessionID uuid.UUID) (*Workflow, error) {
	w, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if w.Stage != StageResultsShown || w.Image == nil {
		return nil, fmt.Errorf("%w: no analysis results to explain", ErrStage)
	}

	req := w.lastRequest
	req.PatientID = ""
	req.LesionID = ""
	exp, err := s.prediction.Explain(ctx, *w.Image, req)
	if err != nil {
		return nil, err
	}

	w.Explanation = exp
	w.ShowExplanation = true
	w.UpdatedAt = s.now()
	return w, nil
}

// HideExplanation turns the explanation toggle off without leaving the
// results stage.
func (s *Service) HideExplanation(sessionID uuid.UUID) (*Workflow, error) {
	w, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if w.Stage != StageResultsShown {
		return nil, fmt.Errorf("%w: no analysis results shown", ErrStage)
	}
	w.ShowExplanation = false
	w.UpdatedAt = s.now()
	return w, nil
}

// Reset wipes the workflow back to its initial empty state.
func (s *Service) Reset(sessionID uuid.UUID) (*Workflow, error) {
	w, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	w.reset(s.now())
	s.logger.Info().Str("session_id", sessionID.String()).Msg("workflow reset")
	return w, nil
}

func (s *Service) clearLesion(w *Workflow) {
	w.Lesion = nil
	s.clearAnalysis(w)
}

func (s *Service) clearAnalysis(w *Workflow) {
	w.Image = nil
	w.CurrentSizeMM = 0
	w.Result = nil
	w.Explanation = nil
	w.ShowExplanation = false
	w.Steps = nil
	w.lastRequest = backend.PredictRequest{}
}

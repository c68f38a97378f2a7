package backend

import (
	"context"
	"unicode/utf8"

	"github.com/skintriage/skintriage/internal/domain/derm"
)

// minSearchLength gates name search: shorter terms return an empty result
// without touching the network.
const minSearchLength = 2

// Patient is a persisted patient record as the backend returns it.
type Patient struct {
	PatientID   string   `json:"patient_id"`
	FullName    string   `json:"patient_full_name"`
	Sex         derm.Sex `json:"sex"`
	DateOfBirth string   `json:"date_of_birth"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// Lesion is a persisted lesion record as the backend returns it.
type Lesion struct {
	LesionID      string        `json:"lesion_id"`
	PatientID     string        `json:"patient_id"`
	Location      derm.Location `json:"lesion_location"`
	InitialSizeMM float64       `json:"initial_size_mm"`
	CreatedAt     string        `json:"created_at,omitempty"`
}

// RegistryClient creates and looks up patient and lesion records.
type RegistryClient struct {
	*Client
}

// NewRegistryClient wraps the shared core for the patient/lesion endpoints.
func NewRegistryClient(core *Client) *RegistryClient {
	return &RegistryClient{Client: core}
}

// CreatePatient persists a new patient. The identifier is client-generated
// and becomes immutable once the backend accepts it.
func (c *RegistryClient) CreatePatient(ctx context.Context, p Patient) (*Patient, error) {
	var created Patient
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(p).
		SetResult(&created).
		Post("/api/patients")
	if err != nil {
		return nil, connErr(err)
	}
	if !resp.IsSuccess() {
		return nil, apiErr(resp)
	}

	c.logger.Info().Str("patient_id", created.PatientID).Msg("patient created")
	return &created, nil
}

// SearchPatientsByName searches patients by (partial) name. Terms shorter
// than two characters yield an empty list without a network call. A 404 from
// the backend also means "no matches", not a failure.
func (c *RegistryClient) SearchPatientsByName(ctx context.Context, term string) ([]Patient, error) {
	if utf8.RuneCountInString(term) < minSearchLength {
		return []Patient{}, nil
	}

	var patients []Patient
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("name", term).
		SetResult(&patients).
		Get("/api/patients/search/by-name")
	if err != nil {
		return nil, connErr(err)
	}
	if notFound(resp) {
		return []Patient{}, nil
	}
	if !resp.IsSuccess() {
		return nil, apiErr(resp)
	}
	return patients, nil
}

// GetPatient fetches a patient by identifier. A missing patient returns
// (nil, nil).
func (c *RegistryClient) GetPatient(ctx context.Context, patientID string) (*Patient, error) {
	var p Patient
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&p).
		Get("/api/patients/" + patientID)
	if err != nil {
		return nil, connErr(err)
	}
	if notFound(resp) {
		return nil, nil
	}
	if !resp.IsSuccess() {
		return nil, apiErr(resp)
	}
	return &p, nil
}

// CreateLesion persists a new lesion under an existing patient.
func (c *RegistryClient) CreateLesion(ctx context.Context, l Lesion) (*Lesion, error) {
	var created Lesion
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(l).
		SetResult(&created).
		Post("/api/lesions")
	if err != nil {
		return nil, connErr(err)
	}
	if !resp.IsSuccess() {
		return nil, apiErr(resp)
	}

	c.logger.Info().
		Str("lesion_id", created.LesionID).
		Str("patient_id", created.PatientID).
		Msg("lesion created")
	return &created, nil
}

// LesionsForPatient lists the lesions registered under a patient. A 404
// means the patient has none.
func (c *RegistryClient) LesionsForPatient(ctx context.Context, patientID string) ([]Lesion, error) {
	var lesions []Lesion
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&lesions).
		Get("/api/patients/" + patientID + "/lesions")
	if err != nil {
		return nil, connErr(err)
	}
	if notFound(resp) {
		return []Lesion{}, nil
	}
	if !resp.IsSuccess() {
		return nil, apiErr(resp)
	}
	return lesions, nil
}

// GetLesion fetches a lesion by identifier. A missing lesion returns
// (nil, nil).
func (c *RegistryClient) GetLesion(ctx context.Context, lesionID string) (*Lesion, error) {
	var l Lesion
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&l).
		Get("/api/lesions/" + lesionID)
	if err != nil {
		return nil, connErr(err)
	}
	if notFound(resp) {
		return nil, nil
	}
	if !resp.IsSuccess() {
		return nil, apiErr(resp)
	}
	return &l, nil
}

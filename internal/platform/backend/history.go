package backend

import (
	"context"
	"sort"
	"strings"
	"time"
)

// HistoryClient reads historical analyses and the cosmetic lookups the
// history views need.
type HistoryClient struct {
	*Client
}

// NewHistoryClient wraps the shared core for the analysis-history endpoints.
func NewHistoryClient(core *Client) *HistoryClient {
	return &HistoryClient{Client: core}
}

// Analysis is one historical analysis flattened from the backend's nested
// response. Every field sourced from an optional sub-object has a documented
// zero default: ages and sizes default to 0, probabilities to 0.0, the
// capture date to the record's created_at, SHAP fields to nil.
type Analysis struct {
	ID                 string
	AnalysisID         string
	PatientID          string
	LesionID           string
	CreatedAt          string
	CaptureDate        string
	CaptureTime        time.Time // zero when the capture date does not parse
	DaysSinceFirstObs  int
	AgeAtCapture       int
	LesionSizeMM       float64
	ModelAProbability  float64
	ModelCProbability  float64
	ImageFilename      string
	ImagePath          string
	SHAPPrediction     *float64
	SHAPBaseValue      *float64
	SHAPFeatures       []FeatureContribution
	ExtractedFeatures  []float64
}

// analysisWire mirrors the nested shape GET /api/lesions/{id}/analyses
// returns. Every sub-object is optional.
type analysisWire struct {
	ID           string `json:"_id"`
	AnalysisID   string `json:"analysis_id"`
	PatientID    string `json:"patient_id"`
	LesionID     string `json:"lesion_id"`
	CreatedAt    string `json:"created_at"`
	ClinicalData *struct {
		AgeAtCapture int     `json:"age_at_capture"`
		LesionSizeMM float64 `json:"lesion_size_mm"`
	} `json:"clinical_data"`
	ModelOutputs *struct {
		ImageOnlyModel *struct {
			MalignantProbability float64 `json:"malignant_probability"`
		} `json:"image_only_model"`
		ClinicalMLModel *struct {
			MalignantProbability float64 `json:"malignant_probability"`
		} `json:"clinical_ml_model"`
		ExtractedFeatures []float64 `json:"extracted_features"`
	} `json:"model_outputs"`
	TemporalData *struct {
		CaptureDate               string `json:"capture_date"`
		DaysSinceFirstObservation int    `json:"days_since_first_observation"`
	} `json:"temporal_data"`
	Image *struct {
		Filename string `json:"filename"`
		Path     string `json:"path"`
	} `json:"image"`
	SHAPAnalysis *struct {
		Prediction *float64              `json:"prediction"`
		BaseValue  *float64              `json:"base_value"`
		Features   []FeatureContribution `json:"features"`
	} `json:"shap_analysis"`
}

func (w analysisWire) flatten() Analysis {
	a := Analysis{
		ID:          w.ID,
		AnalysisID:  w.AnalysisID,
		PatientID:   w.PatientID,
		LesionID:    w.LesionID,
		CreatedAt:   w.CreatedAt,
		CaptureDate: w.CreatedAt,
	}
	if w.ClinicalData != nil {
		a.AgeAtCapture = w.ClinicalData.AgeAtCapture
		a.LesionSizeMM = w.ClinicalData.LesionSizeMM
	}
	if w.ModelOutputs != nil {
		if w.ModelOutputs.ImageOnlyModel != nil {
			a.ModelAProbability = w.ModelOutputs.ImageOnlyModel.MalignantProbability
		}
		if w.ModelOutputs.ClinicalMLModel != nil {
			a.ModelCProbability = w.ModelOutputs.ClinicalMLModel.MalignantProbability
		}
		a.ExtractedFeatures = w.ModelOutputs.ExtractedFeatures
	}
	if w.TemporalData != nil {
		if w.TemporalData.CaptureDate != "" {
			a.CaptureDate = w.TemporalData.CaptureDate
		}
		a.DaysSinceFirstObs = w.TemporalData.DaysSinceFirstObservation
	}
	if w.Image != nil {
		a.ImageFilename = w.Image.Filename
		a.ImagePath = w.Image.Path
	}
	if w.SHAPAnalysis != nil {
		a.SHAPPrediction = w.SHAPAnalysis.Prediction
		a.SHAPBaseValue = w.SHAPAnalysis.BaseValue
		a.SHAPFeatures = w.SHAPAnalysis.Features
	}
	a.CaptureTime = parseCaptureDate(a.CaptureDate)
	return a
}

// parseCaptureDate accepts RFC3339 timestamps with or without a trailing Z
// or zone. An unparseable date yields the zero time, which keeps the record's
// encounter order under the stable sort.
func parseCaptureDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, strings.TrimSuffix(s, "Z")+"Z"); err == nil {
			return t
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// LesionAnalyses fetches all analyses for a lesion, sorted ascending by
// capture time. The sort happens client-side; the backend's ordering is not
// assumed. Ties and unparseable dates preserve encounter order. A 404 means
// the lesion has no analyses yet.
func (c *HistoryClient) LesionAnalyses(ctx context.Context, lesionID string) ([]Analysis, error) {
	var wire []analysisWire
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&wire).
		Get("/api/lesions/" + lesionID + "/analyses")
	if err != nil {
		return nil, connErr(err)
	}
	if notFound(resp) {
		return []Analysis{}, nil
	}
	if !resp.IsSuccess() {
		return nil, apiErr(resp)
	}

	analyses := make([]Analysis, 0, len(wire))
	for _, w := range wire {
		analyses = append(analyses, w.flatten())
	}
	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].CaptureTime.Before(analyses[j].CaptureTime)
	})
	return analyses, nil
}

// ListPatients fetches all patients.
func (c *HistoryClient) ListPatients(ctx context.Context) ([]Patient, error) {
	var patients []Patient
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&patients).
		Get("/api/patients")
	if err != nil {
		return nil, connErr(err)
	}
	if !resp.IsSuccess() {
		return nil, apiErr(resp)
	}
	return patients, nil
}

// AnalysisImageURL builds the direct URL for an analysis's stored image.
// Returns "" for an empty analysis id.
func (c *HistoryClient) AnalysisImageURL(analysisID string) string {
	if analysisID == "" {
		return ""
	}
	return c.baseURL + "/api/analyses/" + analysisID + "/image"
}

// FeatureDisplayNames fetches the technical-name to display-name mapping.
// This is a cosmetic lookup: on any failure (404 included) it degrades to an
// empty map. The error is still returned so callers can log why the mapping
// is missing, but the map is always usable.
func (c *HistoryClient) FeatureDisplayNames(ctx context.Context) (map[string]string, error) {
	names := map[string]string{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&names).
		Get("/api/feature-names")
	if err != nil {
		return map[string]string{}, connErr(err)
	}
	if !resp.IsSuccess() {
		return map[string]string{}, apiErr(resp)
	}
	if names == nil {
		names = map[string]string{}
	}
	return names, nil
}

// Health probes the backend's /health endpoint.
func (c *HistoryClient) Health(ctx context.Context) (map[string]string, error) {
	var status map[string]string
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&status).
		Get("/health")
	if err != nil {
		return nil, connErr(err)
	}
	if !resp.IsSuccess() {
		return nil, apiErr(resp)
	}
	return status, nil
}

// Info fetches the backend's root information document.
func (c *HistoryClient) Info(ctx context.Context) (map[string]any, error) {
	var info map[string]any
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&info).
		Get("/")
	if err != nil {
		return nil, connErr(err)
	}
	if !resp.IsSuccess() {
		return nil, apiErr(resp)
	}
	return info, nil
}

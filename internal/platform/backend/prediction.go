package backend

import (
	"context"
	"fmt"
	"strconv"

	"github.com/skintriage/skintriage/internal/domain/derm"
)

// PredictionClient submits dermoscopic images for inference and explanation.
type PredictionClient struct {
	*Client
}

// NewPredictionClient wraps the shared core for the predict/explain endpoints.
func NewPredictionClient(core *Client) *PredictionClient {
	return &PredictionClient{Client: core}
}

// PredictRequest carries the capture metadata submitted alongside the image.
// PatientID and LesionID are required for Predict (the backend persists the
// analysis against them) and must be empty for Explain.
type PredictRequest struct {
	Age        int
	Sex        derm.Sex
	Location   derm.Location
	DiameterMM float64
	PatientID  string
	LesionID   string
}

// PredictionResult is the typed /api/predict response.
type PredictionResult struct {
	ModelAProbability float64        `json:"model_a_probability"`
	ModelCProbability float64        `json:"model_c_probability"`
	ExtractedFeatures []float64      `json:"extracted_features"`
	AnalysisID        string         `json:"analysis_id"`
	Metadata          map[string]any `json:"metadata"`
}

// FeatureContribution is one entry of an explanation: how far a single
// feature moved the feature-based model's output from its baseline.
type FeatureContribution struct {
	FeatureName  string  `json:"feature_name"`
	DisplayName  string  `json:"display_name"`
	SHAPValue    float64 `json:"shap_value"`
	FeatureValue float64 `json:"feature_value"`
	Impact       string  `json:"impact"`
}

// Explanation is the typed /api/explain response.
type Explanation struct {
	Prediction           float64               `json:"prediction"`
	BaseValue            float64               `json:"base_value"`
	FeatureContributions []FeatureContribution `json:"feature_contributions"`
	Metadata             map[string]any        `json:"metadata"`
}

// Predict runs inference on the image and persists the resulting analysis
// against the supplied patient and lesion identifiers. Both must already
// exist on the backend.
func (c *PredictionClient) Predict(ctx context.Context, img ImageUpload, req PredictRequest) (*PredictionResult, error) {
	if req.PatientID == "" || req.LesionID == "" {
		return nil, fmt.Errorf("predict requires patient and lesion identifiers")
	}

	fields := formFields(req)
	fields["patient_id"] = req.PatientID
	fields["lesion_id"] = req.LesionID

	var result PredictionResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("image", img.Filename, img.ContentType(), img.Reader()).
		SetMultipartFormData(fields).
		SetResult(&result).
		Post("/api/predict")
	if err != nil {
		return nil, connErr(err)
	}
	if !resp.IsSuccess() {
		return nil, apiErr(resp)
	}

	c.logger.Info().
		Str("analysis_id", result.AnalysisID).
		Str("patient_id", req.PatientID).
		Str("lesion_id", req.LesionID).
		Float64("model_a", result.ModelAProbability).
		Float64("model_c", result.ModelCProbability).
		Msg("prediction completed")

	return &result, nil
}

// Explain runs inference plus a full feature-contribution explanation without
// persisting anything. Identical inputs yield equivalent output; nothing is
// cached across calls.
func (c *PredictionClient) Explain(ctx context.Context, img ImageUpload, req PredictRequest) (*Explanation, error) {
	var result Explanation
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("image", img.Filename, img.ContentType(), img.Reader()).
		SetMultipartFormData(formFields(req)).
		SetResult(&result).
		Post("/api/explain")
	if err != nil {
		return nil, connErr(err)
	}
	if !resp.IsSuccess() {
		return nil, apiErr(resp)
	}

	c.logger.Info().
		Int("contributions", len(result.FeatureContributions)).
		Float64("base_value", result.BaseValue).
		Msg("explanation completed")

	return &result, nil
}

func formFields(req PredictRequest) map[string]string {
	return map[string]string{
		"age":      strconv.Itoa(req.Age),
		"sex":      string(req.Sex),
		"location": string(req.Location),
		"diameter": strconv.FormatFloat(req.DiameterMM, 'f', -1, 64),
	}
}

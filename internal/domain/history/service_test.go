package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/skintriage/skintriage/internal/platform/backend"
)

type mockReader struct {
	patients  []backend.Patient
	analyses  []backend.Analysis
	names     map[string]string
	namesErr  error
	healthErr error
}

func (m *mockReader) ListPatients(context.Context) ([]backend.Patient, error) {
	return m.patients, nil
}

func (m *mockReader) LesionAnalyses(context.Context, string) ([]backend.Analysis, error) {
	return m.analyses, nil
}

func (m *mockReader) FeatureDisplayNames(context.Context) (map[string]string, error) {
	if m.namesErr != nil {
		return map[string]string{}, m.namesErr
	}
	return m.names, nil
}

func (m *mockReader) AnalysisImageURL(analysisID string) string {
	if analysisID == "" {
		return ""
	}
	return "http://backend/api/analyses/" + analysisID + "/image"
}

func (m *mockReader) Health(context.Context) (map[string]string, error) {
	if m.healthErr != nil {
		return nil, m.healthErr
	}
	return map[string]string{"status": "healthy"}, nil
}

type mockSearch struct {
	patients []backend.Patient
	lesions  []backend.Lesion
}

func (m *mockSearch) SearchPatientsByName(context.Context, string) ([]backend.Patient, error) {
	return m.patients, nil
}

func (m *mockSearch) LesionsForPatient(context.Context, string) ([]backend.Lesion, error) {
	return m.lesions, nil
}

func newTestService(reader *mockReader, search *mockSearch) *Service {
	return NewService(reader, search, zerolog.Nop())
}

func TestLesionAnalyses_EnrichesDisplayNames(t *testing.T) {
	reader := &mockReader{
		analyses: []backend.Analysis{{
			AnalysisID: "AN-1",
			SHAPFeatures: []backend.FeatureContribution{
				{FeatureName: "tbp_lv_deltaLBnorm", SHAPValue: 0.12},
				{FeatureName: "unmapped_feature", SHAPValue: -0.03},
				{FeatureName: "age_approx", DisplayName: "Age", SHAPValue: 0.01},
			},
		}},
		names: map[string]string{"tbp_lv_deltaLBnorm": "Contrast Between Lesion and Skin"},
	}
	svc := newTestService(reader, &mockSearch{})

	got, err := svc.LesionAnalyses(context.Background(), "LESION_LL_001")
	if err != nil {
		t.Fatalf("lesion analyses: %v", err)
	}

	features := got[0].SHAPFeatures
	if features[0].DisplayName != "Contrast Between Lesion and Skin" {
		t.Errorf("mapped name = %q", features[0].DisplayName)
	}
	if features[1].DisplayName != "unmapped_feature" {
		t.Errorf("unmapped feature should fall back to its technical name, got %q", features[1].DisplayName)
	}
	if features[2].DisplayName != "Age" {
		t.Errorf("existing display name must not be overwritten, got %q", features[2].DisplayName)
	}
}

func TestLesionAnalyses_NameLookupFailureIsCosmetic(t *testing.T) {
	reader := &mockReader{
		analyses: []backend.Analysis{{
			AnalysisID:   "AN-1",
			SHAPFeatures: []backend.FeatureContribution{{FeatureName: "age_approx"}},
		}},
		namesErr: fmt.Errorf("names endpoint down"),
	}
	svc := newTestService(reader, &mockSearch{})

	got, err := svc.LesionAnalyses(context.Background(), "LESION_LL_001")
	if err != nil {
		t.Fatalf("a failed name lookup must not fail the request: %v", err)
	}
	if got[0].SHAPFeatures[0].DisplayName != "age_approx" {
		t.Errorf("display name = %q, want the technical name", got[0].SHAPFeatures[0].DisplayName)
	}
}

func TestFeatureNames_DegradesToEmptyMap(t *testing.T) {
	svc := newTestService(&mockReader{namesErr: fmt.Errorf("down")}, &mockSearch{})

	names := svc.FeatureNames(context.Background())
	if names == nil {
		t.Fatal("mapping must always be usable")
	}
	if len(names) != 0 {
		t.Errorf("mapping = %v, want empty", names)
	}
}

func TestImageURL(t *testing.T) {
	svc := newTestService(&mockReader{}, &mockSearch{})

	if got := svc.ImageURL("AN-1"); got != "http://backend/api/analyses/AN-1/image" {
		t.Errorf("url = %q", got)
	}
	if got := svc.ImageURL(""); got != "" {
		t.Errorf("empty id should yield an empty url, got %q", got)
	}
}

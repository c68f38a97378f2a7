// Package history exposes read-only views over previously persisted patients,
// lesions and analyses. It never writes; everything here is a pass-through to
// the backend with light enrichment.
package history

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/skintriage/skintriage/internal/platform/backend"
)

// ReaderAPI is the slice of the history client the views need.
type ReaderAPI interface {
	ListPatients(ctx context.Context) ([]backend.Patient, error)
	LesionAnalyses(ctx context.Context, lesionID string) ([]backend.Analysis, error)
	FeatureDisplayNames(ctx context.Context) (map[string]string, error)
	AnalysisImageURL(analysisID string) string
	Health(ctx context.Context) (map[string]string, error)
}

// SearchAPI is the slice of the registry client the views need.
type SearchAPI interface {
	SearchPatientsByName(ctx context.Context, term string) ([]backend.Patient, error)
	LesionsForPatient(ctx context.Context, patientID string) ([]backend.Lesion, error)
}

// Service serves the history views.
type Service struct {
	reader   ReaderAPI
	registry SearchAPI
	logger   zerolog.Logger
}

// NewService wires the history service.
func NewService(reader ReaderAPI, registry SearchAPI, logger zerolog.Logger) *Service {
	return &Service{reader: reader, registry: registry, logger: logger}
}

// Patients lists every registered patient.
func (s *Service) Patients(ctx context.Context) ([]backend.Patient, error) {
	return s.reader.ListPatients(ctx)
}

// SearchPatients searches patients by partial name. Short terms and empty
// result sets both come back as an empty list.
func (s *Service) SearchPatients(ctx context.Context, term string) ([]backend.Patient, error) {
	return s.registry.SearchPatientsByName(ctx, term)
}

// PatientLesions lists the lesions registered under a patient.
func (s *Service) PatientLesions(ctx context.Context, patientID string) ([]backend.Lesion, error) {
	return s.registry.LesionsForPatient(ctx, patientID)
}

// LesionAnalyses returns a lesion's analyses in ascending capture order, with
// feature display names resolved where the stored records carry only the
// technical names. The name lookup is cosmetic: when it fails the analyses
// are returned untouched and the failure is only logged.
func (s *Service) LesionAnalyses(ctx context.Context, lesionID string) ([]backend.Analysis, error) {
	analyses, err := s.reader.LesionAnalyses(ctx, lesionID)
	if err != nil {
		return nil, err
	}

	names, err := s.reader.FeatureDisplayNames(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("feature display names unavailable, using technical names")
	}
	for i := range analyses {
		for j := range analyses[i].SHAPFeatures {
			f := &analyses[i].SHAPFeatures[j]
			if f.DisplayName == "" {
				if display, ok := names[f.FeatureName]; ok {
					f.DisplayName = display
				} else {
					f.DisplayName = f.FeatureName
				}
			}
		}
	}
	return analyses, nil
}

// FeatureNames returns the technical-to-display name mapping, empty when the
// backend cannot provide one.
func (s *Service) FeatureNames(ctx context.Context) map[string]string {
	names, err := s.reader.FeatureDisplayNames(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("feature display names unavailable")
	}
	return names
}

// ImageURL resolves the direct URL for an analysis's stored image.
func (s *Service) ImageURL(analysisID string) string {
	return s.reader.AnalysisImageURL(analysisID)
}

// Health reports whether the backend is reachable and healthy.
func (s *Service) Health(ctx context.Context) (map[string]string, error) {
	return s.reader.Health(ctx)
}

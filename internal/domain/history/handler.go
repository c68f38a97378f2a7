package history

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/skintriage/skintriage/internal/platform/backend"
)

// Handler exposes the history views over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler creates the history handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the read-only history endpoints.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.Patients)
	api.GET("/patients/search", h.SearchPatients)
	api.GET("/patients/:id/lesions", h.PatientLesions)
	api.GET("/lesions/:id/analyses", h.LesionAnalyses)
	api.GET("/feature-names", h.FeatureNames)
	api.GET("/analyses/:id/image-url", h.ImageURL)
	api.GET("/healthz", h.Health)
}

// Patients handles GET /patients.
func (h *Handler) Patients(c echo.Context) error {
	patients, err := h.svc.Patients(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, patients)
}

// SearchPatients handles GET /patients/search?name=term.
func (h *Handler) SearchPatients(c echo.Context) error {
	patients, err := h.svc.SearchPatients(c.Request().Context(), c.QueryParam("name"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, patients)
}

// PatientLesions handles GET /patients/:id/lesions.
func (h *Handler) PatientLesions(c echo.Context) error {
	lesions, err := h.svc.PatientLesions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, lesions)
}

// LesionAnalyses handles GET /lesions/:id/analyses.
func (h *Handler) LesionAnalyses(c echo.Context) error {
	analyses, err := h.svc.LesionAnalyses(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, analyses)
}

// FeatureNames handles GET /feature-names. Always succeeds; a backend failure
// yields an empty mapping.
func (h *Handler) FeatureNames(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.FeatureNames(c.Request().Context()))
}

// ImageURL handles GET /analyses/:id/image-url.
func (h *Handler) ImageURL(c echo.Context) error {
	url := h.svc.ImageURL(c.Param("id"))
	if url == "" {
		return echo.NewHTTPError(http.StatusNotFound, "analysis has no stored image")
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

// Health handles GET /healthz by probing the backend.
func (h *Handler) Health(c echo.Context) error {
	status, err := h.svc.Health(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "backend unreachable")
	}
	return c.JSON(http.StatusOK, status)
}

func httpError(err error) error {
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		return echo.NewHTTPError(http.StatusBadGateway, apiErr.Detail)
	case errors.Is(err, backend.ErrConnection):
		return echo.NewHTTPError(http.StatusBadGateway, "analysis backend is unreachable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

package triage

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/skintriage/skintriage/internal/platform/backend"
	"github.com/skintriage/skintriage/internal/platform/session"
)

// maxImageBytes caps uploaded dermoscopic images at 10 MB.
const maxImageBytes = 10 << 20

type Handler struct {
	svc    *Service
	tokens *session.Manager
}

func NewHandler(svc *Service, tokens *session.Manager) *Handler {
	return &Handler{svc: svc, tokens: tokens}
}

// RegisterRoutes mounts the workflow endpoints. Everything under the
// sessioned group requires a valid session token.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/sessions", h.StartSession)

	sessioned := api.Group("/session", h.tokens.Middleware())
	sessioned.GET("", h.GetWorkflow)
	sessioned.DELETE("", h.ResetWorkflow)

	sessioned.POST("/patient", h.CapturePatient)
	sessioned.POST("/patient/select", h.SelectPatient)
	sessioned.DELETE("/patient", h.ClearPatient)

	sessioned.POST("/lesion", h.CaptureLesion)
	sessioned.POST("/lesion/select", h.SelectLesion)
	sessioned.DELETE("/lesion", h.ClearLesion)

	sessioned.POST("/image", h.AttachImage)
	sessioned.POST("/analyze", h.Analyze)
	sessioned.POST("/explain", h.Explain)
	sessioned.DELETE("/explain", h.HideExplanation)
}

// workflowView is the JSON shape returned for every workflow-mutating call.
type workflowView struct {
	SessionID       string                    `json:"session_id"`
	Stage           string                    `json:"stage"`
	Patient         *PatientDraft             `json:"patient,omitempty"`
	Lesion          *LesionDraft              `json:"lesion,omitempty"`
	HasImage        bool                      `json:"has_image"`
	CurrentSizeMM   float64                   `json:"current_size_mm,omitempty"`
	Result          *backend.PredictionResult `json:"result,omitempty"`
	Explanation     *backend.Explanation      `json:"explanation,omitempty"`
	ShowExplanation bool                      `json:"show_explanation"`
	Steps           []string                  `json:"steps,omitempty"`
}

func view(w *Workflow) workflowView {
	return workflowView{
		SessionID:       w.ID.String(),
		Stage:           w.Stage.String(),
		Patient:         w.Patient,
		Lesion:          w.Lesion,
		HasImage:        w.Image != nil,
		CurrentSizeMM:   w.CurrentSizeMM,
		Result:          w.Result,
		Explanation:     w.Explanation,
		ShowExplanation: w.ShowExplanation,
		Steps:           w.Steps,
	}
}

// httpError maps workflow failures onto status codes: stage violations are
// conflicts, missing records are 404s, backend trouble is a bad gateway, and
// everything else is a validation failure.
func httpError(err error) *echo.HTTPError {
	var apiError *backend.APIError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusUnauthorized, "unknown session")
	case errors.Is(err, ErrStage):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &apiError):
		return echo.NewHTTPError(http.StatusBadGateway, apiError.Detail)
	case errors.Is(err, backend.ErrConnection):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func (h *Handler) StartSession(c echo.Context) error {
	w, err := h.svc.Start()
	if err != nil {
		return httpError(err)
	}
	token, err := h.tokens.Issue(w.ID, time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue session token")
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"session_id": w.ID.String(),
		"token":      token,
		"stage":      w.Stage.String(),
	})
}

func (h *Handler) GetWorkflow(c echo.Context) error {
	id, _ := session.FromContext(c)
	w, err := h.svc.Get(id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view(w))
}

func (h *Handler) ResetWorkflow(c echo.Context) error {
	id, _ := session.FromContext(c)
	w, err := h.svc.Reset(id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view(w))
}

func (h *Handler) CapturePatient(c echo.Context) error {
	id, _ := session.FromContext(c)
	var in PatientInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w, err := h.svc.CapturePatient(id, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view(w))
}

func (h *Handler) SelectPatient(c echo.Context) error {
	id, _ := session.FromContext(c)
	var in struct {
		PatientID string `json:"patient_id"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w, err := h.svc.SelectPatient(c.Request().Context(), id, in.PatientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view(w))
}

func (h *Handler) ClearPatient(c echo.Context) error {
	id, _ := session.FromContext(c)
	w, err := h.svc.ClearPatient(id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view(w))
}

func (h *Handler) CaptureLesion(c echo.Context) error {
	id, _ := session.FromContext(c)
	var in LesionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w, err := h.svc.CaptureLesion(id, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view(w))
}

func (h *Handler) SelectLesion(c echo.Context) error {
	id, _ := session.FromContext(c)
	var in struct {
		LesionID string `json:"lesion_id"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w, err := h.svc.SelectLesion(c.Request().Context(), id, in.LesionID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view(w))
}

func (h *Handler) ClearLesion(c echo.Context) error {
	id, _ := session.FromContext(c)
	w, err := h.svc.ClearLesion(id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view(w))
}

// AttachImage accepts a multipart form with the image file and the lesion's
// current size in millimeters.
func (h *Handler) AttachImage(c echo.Context) error {
	id, _ := session.FromContext(c)

	sizeStr := c.FormValue("current_size_mm")
	size, err := strconv.ParseFloat(sizeStr, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "current_size_mm must be a number")
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "an image file is required")
	}
	if fileHeader.Size > maxImageBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image exceeds the 10 MB limit")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded image")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded image")
	}

	w, err := h.svc.AttachImage(id, fileHeader.Filename, data, size)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view(w))
}

func (h *Handler) Analyze(c echo.Context) error {
	id, _ := session.FromContext(c)
	w, err := h.svc.Analyze(c.Request().Context(), id)
	if err != nil {
		// Surface steps that did succeed alongside the failing step's
		// error, so a partial persistence is visible to the operator.
		httpErr := httpError(err)
		if w != nil && len(w.Steps) > 0 {
			httpErr.Message = map[string]any{
				"error": httpErr.Message,
				"steps": w.Steps,
			}
		}
		return httpErr
	}
	return c.JSON(http.StatusOK, view(w))
}

func (h *Handler) Explain(c echo.Context) error {
	id, _ := session.FromContext(c)
	w, err := h.svc.Explain(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view(w))
}

func (h *Handler) HideExplanation(c echo.Context) error {
	id, _ := session.FromContext(c)
	w, err := h.svc.HideExplanation(id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view(w))
}

package httpapi

import (
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/regform/internal/core/domain"
	"github.com/atvirokodosprendimai/regform/internal/core/usecase"
)

const (
	timeFormat      = "2006-01-02T15:04:05.999999999Z07:00"
	maxJSONBodySize = 1 << 20
	maxFormBodySize = 64 << 10

	// DefaultStampLayout renders submission times like the en-US locale default.
	DefaultStampLayout = "1/2/2006, 3:04:05 PM"
)

type Config struct {
	// Limiter throttles session creation and submissions per client IP. Nil
	// disables throttling.
	Limiter *RateLimiter
	// Metrics is mounted at /metrics when set.
	Metrics     http.Handler
	Logger      *zap.Logger
	StampLayout string
}

type Handler struct {
	registrations *usecase.RegistrationService
	schemas       *usecase.SchemaService
	limiter       *RateLimiter
	metrics       http.Handler
	log           *zap.Logger
	stampLayout   string
	page          *template.Template
}

func NewHandler(registrations *usecase.RegistrationService, schemas *usecase.SchemaService, cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.StampLayout == "" {
		cfg.StampLayout = DefaultStampLayout
	}
	return &Handler{
		registrations: registrations,
		schemas:       schemas,
		limiter:       cfg.Limiter,
		metrics:       cfg.Metrics,
		log:           cfg.Logger.Named("http"),
		stampLayout:   cfg.StampLayout,
		page:          formTemplate,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", h.healthz)
	r.Get("/openapi.json", h.openapi)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	// Every route that writes a row, including the session opened by a page
	// load, is throttled.
	r.With(h.limiter.Middleware).Get("/", h.showForm)
	r.Post("/reset", h.resetForm)
	r.With(h.limiter.Middleware).Post("/registrations", h.submitForm)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/validate", h.validate)
		v1.With(h.limiter.Middleware).Post("/sessions", h.createSession)
		v1.Get("/sessions/{session}/registrations", h.listRegistrations)
		v1.With(h.limiter.Middleware).Post("/sessions/{session}/registrations", h.submitRegistration)
	})

	return r
}

type registrationRequest struct {
	FullName      string `json:"fullName"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	BirthDate     string `json:"birthDate"`
	TermsAccepted bool   `json:"termsAccepted"`
}

func (req registrationRequest) toInput() domain.RegistrationInput {
	return domain.RegistrationInput{
		FullName:      req.FullName,
		Email:         req.Email,
		Phone:         req.Phone,
		BirthDate:     req.BirthDate,
		TermsAccepted: req.TermsAccepted,
	}
}

type validationResponse struct {
	Valid       bool              `json:"valid"`
	FieldErrors map[string]string `json:"field_errors"`
	Codes       map[string]string `json:"codes"`
}

type registrationResponse struct {
	ID          int64  `json:"id"`
	Session     string `json:"session"`
	SubmittedAt string `json:"submitted_at"`
	Stamp       string `json:"stamp"`
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	BirthDate   string `json:"birthDate"`
	Status      string `json:"status"`
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRegistration(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toValidationResponse(h.registrations.Validate(req.toInput())))
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.registrations.OpenSession(r.Context())
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":         session.ID,
		"created_at": session.CreatedAt.Format(timeFormat),
	})
}

func (h *Handler) submitRegistration(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")
	req, ok := h.decodeRegistration(w, r)
	if !ok {
		return
	}

	rec, result, err := h.registrations.Submit(r.Context(), sessionID, req.toInput())
	if err != nil {
		if errors.Is(err, usecase.ErrRejected) {
			writeJSON(w, http.StatusUnprocessableEntity, toValidationResponse(result))
			return
		}
		h.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toRegistrationResponse(rec))
}

func (h *Handler) listRegistrations(w http.ResponseWriter, r *http.Request) {
	records, err := h.registrations.List(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	items := make([]registrationResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, h.toRegistrationResponse(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// decodeRegistration reads a JSON registration body, checking its shape
// against the registration schema before decoding.
func (h *Handler) decodeRegistration(w http.ResponseWriter, r *http.Request) (registrationRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)

	var raw json.RawMessage
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return registrationRequest{}, false
	}
	if err := ensureEOF(decoder); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return registrationRequest{}, false
	}
	if err := h.schemas.ValidateRegistration(raw); err != nil {
		h.handleDomainError(w, r, err)
		return registrationRequest{}, false
	}

	var req registrationRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return registrationRequest{}, false
	}
	return req, true
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) openapi(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, openapiSpec())
}

func toValidationResponse(result domain.ValidationResult) validationResponse {
	return validationResponse{
		Valid:       result.Valid,
		FieldErrors: result.Messages(),
		Codes:       result.Codes(),
	}
}

func (h *Handler) toRegistrationResponse(rec domain.RegistrationRecord) registrationResponse {
	return registrationResponse{
		ID:          rec.ID,
		Session:     rec.SessionID,
		SubmittedAt: rec.SubmittedAt.UTC().Format(timeFormat),
		Stamp:       rec.Stamp(h.stampLayout),
		FullName:    rec.FullName,
		Email:       rec.Email,
		Phone:       rec.Phone,
		BirthDate:   rec.BirthDate,
		Status:      rec.Status,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		zap.L().Error("encode json response", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func (h *Handler) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var schemaErr *domain.ErrSchemaViolation
	switch {
	case errors.As(err, &schemaErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "request body does not match the registration schema",
			"details": schemaErr.Errors,
		})
	case errors.Is(err, domain.ErrInvalidSession):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func ensureEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return errors.New("extra json tokens")
}

func openapiSpec() map[string]any {
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "regform",
			"version": "1.0.0",
		},
		"paths": map[string]any{
			"/": map[string]any{
				"get": map[string]any{"summary": "Render the registration form with a new, empty results table"},
			},
			"/registrations": map[string]any{
				"post": map[string]any{"summary": "Submit the registration form"},
			},
			"/reset": map[string]any{
				"post": map[string]any{"summary": "Clear the form and its error messages"},
			},
			"/v1/validate": map[string]any{
				"post": map[string]any{"summary": "Validate a registration without storing it"},
			},
			"/v1/sessions": map[string]any{
				"post": map[string]any{"summary": "Open a results table"},
			},
			"/v1/sessions/{session}/registrations": map[string]any{
				"get":  map[string]any{"summary": "List accepted registrations in submission order"},
				"post": map[string]any{"summary": "Validate and append a registration"},
			},
		},
	}
}

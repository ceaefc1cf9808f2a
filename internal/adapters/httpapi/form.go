package httpapi

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/regform/internal/core/domain"
	"github.com/atvirokodosprendimai/regform/internal/core/usecase"
)

//go:embed templates/form.html
var templateFS embed.FS

var formTemplate = template.Must(template.ParseFS(templateFS, "templates/form.html"))

// formPage is the view model of the registration page.
type formPage struct {
	SessionID string
	Values    domain.RegistrationInput
	Errors    map[string]string
	Focus     string
	Rows      []formRow
}

type formRow struct {
	Stamp     string
	FullName  string
	Email     string
	Phone     string
	BirthDate string
	Status    string
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	session, err := h.registrations.OpenSession(r.Context())
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, h.newPage(session.ID, nil))
}

func (h *Handler) submitForm(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	input := formInput(r)

	_, result, err := h.registrations.Submit(r.Context(), sessionID, input)
	switch {
	case err == nil:
	case errors.Is(err, usecase.ErrRejected):
	default:
		h.pageError(w, r, err)
		return
	}

	records, err := h.registrations.List(r.Context(), sessionID)
	if err != nil {
		h.pageError(w, r, err)
		return
	}

	page := h.newPage(sessionID, records)
	if !result.Valid {
		page.Values = input
		page.Errors = result.Messages()
		page.Focus = string(result.Kinds()[0].Field())
		h.render(w, r, http.StatusUnprocessableEntity, page)
		return
	}
	h.render(w, r, http.StatusOK, page)
}

// resetForm clears the inputs and error messages without validating and
// keeps the session's table.
func (h *Handler) resetForm(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	records, err := h.registrations.List(r.Context(), sessionID)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, h.newPage(sessionID, records))
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBodySize)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return "", false
	}
	return r.PostFormValue("session"), true
}

func formInput(r *http.Request) domain.RegistrationInput {
	return domain.RegistrationInput{
		FullName:      r.PostFormValue(string(domain.FieldFullName)),
		Email:         r.PostFormValue(string(domain.FieldEmail)),
		Phone:         r.PostFormValue(string(domain.FieldPhone)),
		BirthDate:     r.PostFormValue(string(domain.FieldBirthDate)),
		TermsAccepted: r.PostForm.Has(string(domain.FieldTermsAccepted)),
	}
}

func (h *Handler) newPage(sessionID string, records []domain.RegistrationRecord) formPage {
	rows := make([]formRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, formRow{
			Stamp:     rec.Stamp(h.stampLayout),
			FullName:  rec.FullName,
			Email:     rec.Email,
			Phone:     rec.Phone,
			BirthDate: rec.BirthDate,
			Status:    rec.Status,
		})
	}
	return formPage{
		SessionID: sessionID,
		Focus:     string(domain.FieldFullName),
		Rows:      rows,
	}
}

// pageError answers a page request. A missing or expired session starts
// over with a fresh page.
func (h *Handler) pageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrInvalidSession) || errors.Is(err, domain.ErrNotFound) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.log.Error("page request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page formPage) {
	var buf bytes.Buffer
	if err := h.page.Execute(&buf, page); err != nil {
		h.pageError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Debug("write page", zap.Error(err))
	}
}

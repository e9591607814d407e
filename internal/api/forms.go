package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/jobportal/internal/form"
	"github.com/kalambet/jobportal/internal/resume"
)

const maxUploadSize = resume.MaxSize + 1<<20

func formFor(deps Deps, w http.ResponseWriter, r *http.Request) (*form.Flow, bool) {
	id := chi.URLParam(r, "id")
	f, ok := deps.Forms.Get(id)
	if !ok {
		httpError(w, http.StatusNotFound, "NotFoundError", "form %s not found", id)
		return nil, false
	}
	return f, true
}

func writeFormErr(w http.ResponseWriter, err error) {
	if errors.Is(err, form.ErrClosed) {
		httpError(w, http.StatusConflict, "ConflictError", "form is closed")
		return
	}
	writeErr(w, err)
}

func handleListForms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, form.Names())
}

func handleOpenForm(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Form   string         `json:"form"`
			Fields map[string]any `json:"fields"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Form == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "form is required")
			return
		}
		f, err := deps.Forms.Open(req.Form, req.Fields)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, f.Status())
	}
}

func handleFormStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := formFor(deps, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, f.Status())
	}
}

func handleUpdateForm(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := formFor(deps, w, r)
		if !ok {
			return
		}
		var fields map[string]any
		if !decodeBody(w, r, &fields) {
			return
		}
		if err := f.Update(fields); err != nil {
			writeFormErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, f.Status())
	}
}

// handleAttach takes the resume as the multipart file field "resume".
func handleAttach(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := formFor(deps, w, r)
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		file, hdr, err := r.FormFile("resume")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "resume file is required: %v", err)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading upload: %v", err)
			return
		}
		info, err := f.Attach(r.Context(), hdr.Filename, hdr.Header.Get("Content-Type"), data)
		if err != nil {
			writeFormErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func handleSubmit(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := formFor(deps, w, r)
		if !ok {
			return
		}
		outcome, rejected := f.Submit(r.Context())
		switch outcome {
		case form.OutcomeScheduled:
			writeJSON(w, http.StatusAccepted, map[string]any{"outcome": outcome.String(), "form": f.Status()})
		case form.OutcomeRejected:
			body := map[string]any{"outcome": outcome.String()}
			if rejected != nil {
				e := map[string]any{"message": rejected.Message, "type": rejected.Kind.String()}
				if rejected.Field != "" {
					e["field"] = rejected.Field
				}
				body["error"] = e
			}
			writeJSON(w, http.StatusUnprocessableEntity, body)
		default:
			writeJSON(w, http.StatusOK, map[string]any{"outcome": outcome.String()})
		}
	}
}

func handleCloseForm(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !deps.Forms.Close(id) {
			httpError(w, http.StatusNotFound, "NotFoundError", "form %s not found", id)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
	}
}

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/jobportal/internal/chat"
	"github.com/kalambet/jobportal/internal/responder"
)

type chatView struct {
	ID       string            `json:"id"`
	Persona  responder.Persona `json:"persona"`
	Open     bool              `json:"open"`
	Typing   bool              `json:"typing"`
	Messages []chat.Message    `json:"messages"`
}

func viewChat(id string, s *chat.Session) chatView {
	return chatView{
		ID:       id,
		Persona:  s.Persona(),
		Open:     s.IsOpen(),
		Typing:   s.Typing(),
		Messages: s.Messages(),
	}
}

func chatFor(deps Deps, w http.ResponseWriter, r *http.Request) (string, *chat.Session, bool) {
	id := chi.URLParam(r, "id")
	s, ok := deps.Chats.Get(id)
	if !ok {
		httpError(w, http.StatusNotFound, "NotFoundError", "chat %s not found", id)
		return "", nil, false
	}
	return id, s, true
}

func handleStartChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Persona string `json:"persona"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		p, err := responder.ParsePersona(req.Persona)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		id, s := deps.Chats.Start(p)
		deps.logger().Debug("chat started", "id", id, "persona", p)
		writeJSON(w, http.StatusCreated, viewChat(id, s))
	}
}

func handleChatMessages(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, s, ok := chatFor(deps, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, viewChat(id, s))
	}
}

func handleSendMessage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, s, ok := chatFor(deps, w, r)
		if !ok {
			return
		}
		var req struct {
			Text string `json:"text"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		msg, err := s.Send(req.Text)
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
			return
		case errors.Is(err, chat.ErrClosed):
			httpError(w, http.StatusConflict, "ConflictError", "chat is closed")
			return
		case err != nil:
			writeErr(w, err)
			return
		}
		if deps.Metrics != nil {
			deps.Metrics.ChatMessage(string(s.Persona()))
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func handleEndChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !deps.Chats.End(id) {
			httpError(w, http.StatusNotFound, "NotFoundError", "chat %s not found", id)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
	}
}

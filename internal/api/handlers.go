package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Amita-5/honeypot-scam-detector/internal/auth"
	"github.com/Amita-5/honeypot-scam-detector/internal/engine"
	"github.com/Amita-5/honeypot-scam-detector/internal/report"
	"github.com/Amita-5/honeypot-scam-detector/internal/session"
)

// maxBodyBytes caps inbound request bodies.
const maxBodyBytes = 1 << 20

type Handler struct {
	Auth     auth.Authenticator
	Engine   *engine.Engine
	Sessions session.Store
	Reporter *report.Reporter
	Logger   *zap.Logger
}

// Message handles the honeypot conversation endpoint. GET answers as a
// liveness probe; POST processes one inbound counterpart message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.Health(w, r)
		return
	case http.MethodPost:
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !h.ensureAuth(w, r) {
		return
	}

	var env Envelope
	if err := decodeJSON(w, r, &env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := env.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := engine.Inbound{
		SessionID: env.SessionID,
		Text:      env.Message.Text,
	}
	if env.Metadata != nil {
		in.Channel = env.Metadata.Channel
		in.Language = env.Metadata.Language
		in.Locale = env.Metadata.Locale
	}

	res, err := h.Engine.Handle(r.Context(), in)
	if err != nil {
		if errors.Is(err, engine.ErrSessionClosed) {
			writeError(w, http.StatusConflict, "session closed")
			return
		}
		h.logger().Error("message handling failed",
			zap.String("session", env.SessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Status:       "success",
		Reply:        res.Reply,
		ScamDetected: res.ScamDetected,
	})
}

// End finalizes an engagement on an explicit external request. Ending an
// already finalized session succeeds as a no-op.
func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !h.ensureAuth(w, r) {
		return
	}

	var req EndRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fired, err := h.Engine.End(r.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger().Error("end engagement failed",
			zap.String("session", req.SessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "finalized": fired})
}

// Session returns the state of one session for operators.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !h.ensureAuth(w, r) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/honeypot/sessions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	sess, err := h.Sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger().Error("session lookup failed", zap.String("session", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"session": map[string]any{
			"id":            sess.ID,
			"turns":         sess.Turns,
			"scamDetected":  sess.ScamDetected,
			"scamType":      sess.ScamType,
			"finalized":     sess.Finalized,
			"indicators":    sess.ScamIndicators,
			"requestedData": sess.RequestedData,
		},
	})
}

// Health is the unauthenticated liveness probe. The payload carries the
// reporter counters so abandoned submissions stay visible.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{"status": "ok"}
	if h.Reporter != nil {
		payload["reports"] = h.Reporter.Stats()
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) ensureAuth(w http.ResponseWriter, r *http.Request) bool {
	err := h.Auth.Authenticate(r)
	switch {
	case err == nil:
		return true
	case errors.Is(err, auth.ErrMissingAPIKey):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, http.StatusForbidden, err.Error())
	}
	return false
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Status: "error", Message: message})
}

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/CareSignal/internal/models"
)

// maxRequestBodyBytes leaves headroom above the longest chat message once JSON-escaped.
const maxRequestBodyBytes = 4 * models.MaxChatMessageLength

type sendMessageRequest struct {
	Text string `json:"text"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) sendMessageHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Debug("Server.sendMessageHandler: processing message", "sessionID", id)

	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		slog.Warn("Server.sendMessageHandler: failed to decode JSON", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		slog.Error("Server.sendMessageHandler: failed to load session", "sessionID", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	reply, err := sess.Send(r.Context(), req.Text)
	if errors.Is(err, models.ErrEmptyMessage) || errors.Is(err, models.ErrMessageTooLong) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("Server.sendMessageHandler: send failed", "sessionID", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process message")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(reply))
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		slog.Error("Server.historyHandler: failed to load session", "sessionID", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	history := sess.History()
	if history == nil {
		history = []models.ChatMessage{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(history))
}

func (s *Server) clearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.sessions.Get(r.Context(), id)
	if err == nil {
		err = sess.Clear(r.Context())
	}
	if err != nil {
		slog.Error("Server.clearHistoryHandler: clear failed", "sessionID", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to clear conversation")
		return
	}
	slog.Info("Server.clearHistoryHandler: conversation cleared", "sessionID", id)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Conversation cleared", nil))
}

func (s *Server) saveProfileHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var p models.EmergencyProfile
	if err := decodeJSON(w, r, &p); err != nil {
		slog.Warn("Server.saveProfileHandler: failed to decode JSON", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		slog.Warn("Server.saveProfileHandler: validation failed", "sessionID", id, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.SaveProfile(r.Context(), id, p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save profile")
		return
	}
	slog.Info("Server.saveProfileHandler: profile saved", "sessionID", id)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Profile saved", p))
}

func (s *Server) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := s.store.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Profile not found")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(p))
}

func (s *Server) getAlertHandler(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.alerts.Event(r.PathValue("alertID"))
	if !ok || ev.SessionID != r.PathValue("id") {
		writeError(w, http.StatusNotFound, "Alert not found")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(ev))
}

func (s *Server) dismissAlertHandler(w http.ResponseWriter, r *http.Request) {
	alertID := r.PathValue("alertID")
	if ev, ok := s.alerts.Event(alertID); !ok || ev.SessionID != r.PathValue("id") {
		writeError(w, http.StatusNotFound, "Alert not found")
		return
	}
	ev, err := s.alerts.Dismiss(alertID)
	if err != nil {
		// Purged or dismissed concurrently.
		writeError(w, http.StatusNotFound, "Alert not found")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Alert dismissed", ev))
}

func (s *Server) receiptsHandler(w http.ResponseWriter, r *http.Request) {
	alertID := r.PathValue("alertID")
	receipts, err := s.store.GetReceipts(r.Context(), alertID)
	if err != nil {
		slog.Error("Server.receiptsHandler: failed to fetch receipts", "alertID", alertID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch receipts")
		return
	}
	if receipts == nil {
		receipts = []models.Receipt{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(receipts))
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"active_sessions": s.sessions.Len(),
	})
}

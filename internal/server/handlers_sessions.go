package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"coinchat/internal/models"
)

// SessionResponse is the summary returned for a session.
type SessionResponse struct {
	ID        string `json:"id"`
	Messages  int    `json:"messages"`
	Holdings  int    `json:"holdings"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func sessionResponse(session *models.Session) SessionResponse {
	return SessionResponse{
		ID:        session.ID,
		Messages:  len(session.Conversation),
		Holdings:  session.Portfolio.Len(),
		CreatedAt: session.CreatedAt.Format(time.RFC3339),
		UpdatedAt: session.UpdatedAt.Format(time.RFC3339),
	}
}

// handleSessionCreate handles POST /api/sessions.
func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	session := s.app.Sessions.Create()
	WriteJSON(w, http.StatusCreated, sessionResponse(session))
}

// handleSessionGet handles GET /api/sessions/{id}. The cycle lock is held
// while the summary is taken so an in-flight message cannot race the reads.
func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, release, ok := s.app.Sessions.Acquire(sessionID)
	if !ok {
		WriteError(w, http.StatusNotFound, "Session not found: "+sessionID)
		return
	}
	resp := sessionResponse(session)
	release()

	WriteJSON(w, http.StatusOK, resp)
}

// handleSessionDelete handles DELETE /api/sessions/{id}.
func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request, sessionID string) {
	if _, ok := s.app.Sessions.Get(sessionID); !ok {
		WriteError(w, http.StatusNotFound, "Session not found: "+sessionID)
		return
	}

	s.app.Sessions.Delete(sessionID)
	s.app.ChatService.ForgetSpeech(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// MessageRequest is the body for POST /api/sessions/{id}/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// MessageResponse carries the reply and the two entries the cycle appended.
type MessageResponse struct {
	Reply   string                     `json:"reply"`
	Entries []models.ConversationEntry `json:"entries"`
}

// handleMessagePost runs one classification/response cycle. The session's
// cycle lock is held for the duration, so overlapping posts against one
// session are processed strictly one at a time.
func (s *Server) handleMessagePost(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req MessageRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	session, release, ok := s.app.Sessions.Acquire(sessionID)
	if !ok {
		WriteError(w, http.StatusNotFound, "Session not found: "+sessionID)
		return
	}
	defer release()

	// A cycle runs to completion or failure; a client disconnect must not
	// cancel outbound fetches mid-valuation.
	ctx := context.WithoutCancel(r.Context())

	reply, handled := s.app.ChatService.HandleMessage(ctx, session, req.Text)
	if !handled {
		// Whitespace-only input is a no-op: no entries, no call.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	entries := session.Conversation[len(session.Conversation)-2:]
	WriteJSON(w, http.StatusOK, MessageResponse{Reply: reply, Entries: entries})
}

// handleMessageList handles GET /api/sessions/{id}/messages. A snapshot of
// the conversation is taken under the cycle lock; an in-flight message
// appends to the same slice.
func (s *Server) handleMessageList(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, release, ok := s.app.Sessions.Acquire(sessionID)
	if !ok {
		WriteError(w, http.StatusNotFound, "Session not found: "+sessionID)
		return
	}
	entries := append([]models.ConversationEntry{}, session.Conversation...)
	release()

	WriteJSON(w, http.StatusOK, entries)
}

// handlePortfolioGet handles GET /api/sessions/{id}/portfolio.
func (s *Server) handlePortfolioGet(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	session, release, ok := s.app.Sessions.Acquire(sessionID)
	if !ok {
		WriteError(w, http.StatusNotFound, "Session not found: "+sessionID)
		return
	}
	holdings := session.Portfolio.Holdings()
	release()

	WriteJSON(w, http.StatusOK, holdings)
}

// handleSpeechGet handles GET /api/sessions/{id}/speech, returning the
// latest synthesized reply audio for the widget to play.
func (s *Server) handleSpeechGet(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if _, ok := s.app.Sessions.Get(sessionID); !ok {
		WriteError(w, http.StatusNotFound, "Session not found: "+sessionID)
		return
	}

	clip, ok := s.app.ChatService.LastSpeech(sessionID)
	if !ok {
		WriteError(w, http.StatusNotFound, "No speech available for session")
		return
	}

	mimeType := clip.MIMEType
	if mimeType == "" || !strings.HasPrefix(mimeType, "audio/") {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.WriteHeader(http.StatusOK)
	w.Write(clip.Data)
}

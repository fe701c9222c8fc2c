package interfaces

import (
	"context"

	"coinchat/internal/models"
)

// ChatService routes a user message to an intent handler and produces the
// reply. Every failure path yields a reply string; no error escapes.
type ChatService interface {
	// HandleMessage runs one classification/response cycle against the
	// session. Blank input is a no-op: handled is false and no entries are
	// appended. The caller must hold the session's cycle lock.
	HandleMessage(ctx context.Context, session *models.Session, text string) (reply string, handled bool)

	// LastSpeech returns the most recent synthesized clip for a session.
	LastSpeech(sessionID string) (*models.SpeechClip, bool)

	// ForgetSpeech drops any retained clip for a session.
	ForgetSpeech(sessionID string)
}

// SessionStore owns the in-memory sessions.
type SessionStore interface {
	// Create adds a new empty session and returns it.
	Create() *models.Session

	// Get returns a session by id without its cycle lock. Suitable for
	// existence checks only; reads of conversation or portfolio state must
	// go through Acquire, or they race an in-flight cycle.
	Get(id string) (*models.Session, bool)

	// Acquire returns the session and its cycle lock held. The returned
	// release func must be called once the cycle completes. Acquire
	// serializes message cycles against one session.
	Acquire(id string) (session *models.Session, release func(), ok bool)

	// Delete ends a session and discards its state.
	Delete(id string)

	// Count returns the number of live sessions.
	Count() int
}

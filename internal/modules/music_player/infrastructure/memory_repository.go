package infrastructure

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// MemoryRepository is an in-memory implementation of SessionRepository.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[snowflake.ID]*domain.VoiceSession
}

// NewMemoryRepository creates a new MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[snowflake.ID]*domain.VoiceSession),
	}
}

// Get returns the session for the given guild, or nil if none exists.
func (r *MemoryRepository) Get(guildID snowflake.ID) *domain.VoiceSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sessions[guildID]
}

// Save stores the session.
func (r *MemoryRepository) Save(session *domain.VoiceSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.GuildID()] = session
}

// Take removes and returns the session for the given guild.
func (r *MemoryRepository) Take(guildID snowflake.ID) *domain.VoiceSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[guildID]
	if !ok {
		return nil
	}
	delete(r.sessions, guildID)
	return session
}

// List returns a snapshot of all sessions.
func (r *MemoryRepository) List() []*domain.VoiceSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*domain.VoiceSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// Count returns the number of sessions (for testing/monitoring).
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// Ensure MemoryRepository implements SessionRepository.
var _ domain.SessionRepository = (*MemoryRepository)(nil)

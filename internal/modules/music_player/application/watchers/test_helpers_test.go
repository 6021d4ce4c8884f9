package watchers

import (
	"context"
	"reflect"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

type mockRepository struct {
	mu       sync.Mutex
	sessions map[snowflake.ID]*domain.VoiceSession
}

func newMockRepository() *mockRepository {
	return &mockRepository{sessions: make(map[snowflake.ID]*domain.VoiceSession)}
}

func (m *mockRepository) Get(guildID snowflake.ID) *domain.VoiceSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[guildID]
}

func (m *mockRepository) Save(session *domain.VoiceSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.GuildID()] = session
}

func (m *mockRepository) Take(guildID snowflake.ID) *domain.VoiceSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	session := m.sessions[guildID]
	delete(m.sessions, guildID)
	return session
}

func (m *mockRepository) List() []*domain.VoiceSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.VoiceSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

func (m *mockRepository) createConnectedSession(guildID, notificationChannelID snowflake.ID) *domain.VoiceSession {
	session := domain.NewVoiceSession(guildID, snowflake.ID(100), notificationChannelID, nil)
	m.Save(session)
	return session
}

// mockConnection only reports statuses; the watchers never drive playback directly.
type mockConnection struct {
	ports.PlaybackConnection

	mu     sync.Mutex
	status map[snowflake.ID]domain.PlaybackStatus
}

func newMockConnection() *mockConnection {
	return &mockConnection{status: make(map[snowflake.ID]domain.PlaybackStatus)}
}

func (m *mockConnection) setStatus(guildID snowflake.ID, status domain.PlaybackStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[guildID] = status
}

func (m *mockConnection) Status(guildID snowflake.ID) domain.PlaybackStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[guildID]
}

type mockStarter struct {
	mu    sync.Mutex
	calls []snowflake.ID
	err   error
	panic bool
}

func (m *mockStarter) TryPlayNext(_ context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, guildID)
	if m.panic {
		panic("boom")
	}
	return m.err
}

func (m *mockStarter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockCloser removes the session like the real teardown does.
type mockCloser struct {
	repo     *mockRepository
	panicFor snowflake.ID
	mu       sync.Mutex
	reasons  []domain.SessionClosedReason
}

func (m *mockCloser) Teardown(_ context.Context, guildID snowflake.ID, reason domain.SessionClosedReason) error {
	if m.panicFor != 0 && guildID == m.panicFor {
		panic("teardown blew up")
	}
	if m.repo.Take(guildID) == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reasons = append(m.reasons, reason)
	return nil
}

type sentNotice struct {
	channelID snowflake.ID
	notice    ports.Notice
}

type mockNotifier struct {
	ports.ChatNotifier

	mu      sync.Mutex
	notices []sentNotice
}

func (m *mockNotifier) SendNotice(_ context.Context, channelID snowflake.ID, notice ports.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, sentNotice{channelID: channelID, notice: notice})
	return nil
}

type mockMediaStore struct {
	sweeps int
}

func (m *mockMediaStore) Release(string) error { return nil }

func (m *mockMediaStore) Sweep(context.Context) (int, error) {
	m.sweeps++
	return 0, nil
}

type mockSubscriber struct {
	handlers map[reflect.Type]ports.EventHandlerFunc
}

func (m *mockSubscriber) Subscribe(eventType reflect.Type, handler ports.EventHandlerFunc) error {
	if m.handlers == nil {
		m.handlers = make(map[reflect.Type]ports.EventHandlerFunc)
	}
	m.handlers[eventType] = handler
	return nil
}

func (m *mockSubscriber) deliver(ctx context.Context, event domain.Event) {
	if handler, ok := m.handlers[reflect.TypeOf(event)]; ok {
		handler(ctx, event)
	}
}

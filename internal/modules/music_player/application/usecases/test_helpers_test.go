package usecases

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

func mockTrack(id string) domain.Track {
	return domain.Track{
		ID:          domain.TrackID(id),
		Title:       id,
		Artist:      "Artist",
		Duration:    3 * time.Minute,
		Source:      domain.TrackSourceYouTube,
		RequesterID: snowflake.ID(123),
	}
}

func enqueueTracks(session *domain.VoiceSession, ids ...string) {
	for _, id := range ids {
		_ = session.Queue.Enqueue(mockTrack(id), false)
	}
}

func pendingTitles(session *domain.VoiceSession) []string {
	tracks := session.Queue.PeekAll()
	titles := make([]string, len(tracks))
	for i, t := range tracks {
		titles[i] = t.Title
	}
	return titles
}

type mockRepository struct {
	mu       sync.Mutex
	sessions map[snowflake.ID]*domain.VoiceSession
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		sessions: make(map[snowflake.ID]*domain.VoiceSession),
	}
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

// createConnectedSession creates a VoiceSession with the given IDs and saves it to the mock repository.
// Returns the session for further modification (e.g., adding tracks).
func (m *mockRepository) createConnectedSession(
	guildID, voiceChannelID, notificationChannelID snowflake.ID,
) *domain.VoiceSession {
	session := domain.NewVoiceSession(guildID, voiceChannelID, notificationChannelID, nil)
	m.Save(session)
	return session
}

// mockConnection is an in-memory PlaybackConnection. Callbacks run synchronously
// on the goroutine that ends the track.
type mockConnection struct {
	mu          sync.Mutex
	status      map[snowflake.ID]domain.PlaybackStatus
	pending     map[snowflake.ID]ports.TrackFinishedFunc
	played      []string
	volume      int
	connects    int
	stops       int
	disconnects int

	connectErr    error
	playErr       error
	stopErr       error
	disconnectErr error

	// afterStatus runs after every Status read, outside the lock.
	afterStatus func(guildID snowflake.ID)
}

func newMockConnection() *mockConnection {
	return &mockConnection{
		status:  make(map[snowflake.ID]domain.PlaybackStatus),
		pending: make(map[snowflake.ID]ports.TrackFinishedFunc),
	}
}

func (m *mockConnection) setStatus(guildID snowflake.ID, status domain.PlaybackStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[guildID] = status
}

func (m *mockConnection) Connect(_ context.Context, guildID, _ snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connects++
	if m.status[guildID] == domain.StatusDisconnected {
		m.status[guildID] = domain.StatusIdle
	}
	return nil
}

func (m *mockConnection) Play(
	_ context.Context,
	guildID snowflake.ID,
	media *ports.ResolvedMedia,
	onFinished ports.TrackFinishedFunc,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playErr != nil {
		return m.playErr
	}
	switch m.status[guildID] {
	case domain.StatusDisconnected:
		return ports.ErrNotConnected
	case domain.StatusPlaying, domain.StatusPaused:
		return ports.ErrAlreadyPlaying
	}
	m.status[guildID] = domain.StatusPlaying
	m.pending[guildID] = onFinished
	m.played = append(m.played, media.Identifier())
	return nil
}

func (m *mockConnection) Pause(_ context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status[guildID] != domain.StatusPlaying {
		return ports.ErrInvalidState
	}
	m.status[guildID] = domain.StatusPaused
	return nil
}

func (m *mockConnection) Resume(_ context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status[guildID] != domain.StatusPaused {
		return ports.ErrInvalidState
	}
	m.status[guildID] = domain.StatusPlaying
	return nil
}

func (m *mockConnection) Stop(_ context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	m.stops++
	err := m.stopErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.finish(guildID, domain.TrackEndStopped)
	return nil
}

func (m *mockConnection) Disconnect(_ context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	m.disconnects++
	if m.disconnectErr != nil {
		err := m.disconnectErr
		m.mu.Unlock()
		return err
	}
	m.status[guildID] = domain.StatusDisconnected
	callback := m.pending[guildID]
	delete(m.pending, guildID)
	m.mu.Unlock()

	if callback != nil {
		callback(domain.TrackEndCleanup)
	}
	return nil
}

func (m *mockConnection) SetVolume(_ context.Context, _ snowflake.ID, volume int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
	return nil
}

func (m *mockConnection) Status(guildID snowflake.ID) domain.PlaybackStatus {
	m.mu.Lock()
	status := m.status[guildID]
	hook := m.afterStatus
	m.mu.Unlock()

	if hook != nil {
		hook(guildID)
	}
	return status
}

// finish ends the current track with the given reason and fires its callback.
func (m *mockConnection) finish(guildID snowflake.ID, reason domain.TrackEndReason) {
	m.mu.Lock()
	if m.status[guildID] == domain.StatusPlaying || m.status[guildID] == domain.StatusPaused {
		m.status[guildID] = domain.StatusIdle
	}
	callback := m.pending[guildID]
	delete(m.pending, guildID)
	m.mu.Unlock()

	if callback != nil {
		callback(reason)
	}
}

func (m *mockConnection) playedIdentifiers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.played...)
}

type mockMediaResolver struct {
	mu       sync.Mutex
	errs     map[string]error // title -> error
	download bool
	calls    []string

	// entered and release, when set, block Resolve until release is closed.
	entered chan struct{}
	release chan struct{}
}

func newMockMediaResolver() *mockMediaResolver {
	return &mockMediaResolver{errs: make(map[string]error)}
}

func (m *mockMediaResolver) Resolve(_ context.Context, track domain.Track) (*ports.ResolvedMedia, error) {
	m.mu.Lock()
	m.calls = append(m.calls, track.Title)
	err := m.errs[track.Title]
	download := m.download
	entered, release := m.entered, m.release
	m.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}

	if err != nil {
		return nil, err
	}

	media := &ports.ResolvedMedia{Title: track.Title, Duration: track.Duration}
	if download {
		media.LocalFilePath = "/cache/" + track.Title + ".webm"
	} else {
		media.StreamURL = "stream://" + track.Title
	}
	return media, nil
}

func (m *mockMediaResolver) resolveCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type mockMediaStore struct {
	mu       sync.Mutex
	released []string
	sweeps   int
}

func (m *mockMediaStore) Release(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, path)
	return nil
}

func (m *mockMediaStore) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps++
	return 0, nil
}

func (m *mockMediaStore) releasedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.released...)
}

type mockNotifier struct {
	mu      sync.Mutex
	notices []ports.Notice
}

func (m *mockNotifier) SendNotice(_ context.Context, _ snowflake.ID, notice ports.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, notice)
	return nil
}

func (m *mockNotifier) SendNowPlaying(
	_ context.Context,
	_ snowflake.ID,
	_ *ports.NowPlayingInfo,
) (snowflake.ID, error) {
	return snowflake.ID(1), nil
}

func (m *mockNotifier) DeleteMessage(_ context.Context, _, _ snowflake.ID) error {
	return nil
}

func (m *mockNotifier) noticeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notices)
}

type mockEventPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *mockEventPublisher) Publish(event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// published returns the published events of the same type as sample.
func (m *mockEventPublisher) published(sample domain.Event) []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Event
	for _, e := range m.events {
		if reflect.TypeOf(e) == reflect.TypeOf(sample) {
			out = append(out, e)
		}
	}
	return out
}

type mockTrigger struct {
	mu    sync.Mutex
	calls []snowflake.ID
}

func (m *mockTrigger) Trigger(_ context.Context, guildID snowflake.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, guildID)
}

type mockVoiceStateProvider struct {
	channels map[snowflake.ID]snowflake.ID // userID -> channelID
	err      error
}

func newMockVoiceStateProvider() *mockVoiceStateProvider {
	return &mockVoiceStateProvider{channels: make(map[snowflake.ID]snowflake.ID)}
}

func (m *mockVoiceStateProvider) GetUserVoiceChannel(
	_, userID snowflake.ID,
) (snowflake.ID, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.channels[userID], nil
}

type mockTrackResolver struct {
	loadErr      error
	loadResult   *ports.LoadResult
	searchErr    error
	searchResult []*ports.TrackInfo
	lastQuery    string
	lastLimit    int
}

func (m *mockTrackResolver) LoadTracks(_ context.Context, query string) (*ports.LoadResult, error) {
	m.lastQuery = query
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.loadResult, nil
}

func (m *mockTrackResolver) SearchTracks(
	_ context.Context,
	query string,
	limit int,
) ([]*ports.TrackInfo, error) {
	m.lastQuery = query
	m.lastLimit = limit
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResult, nil
}

// schedulerFixture wires a PlaybackScheduler to fresh mocks.
type schedulerFixture struct {
	repo      *mockRepository
	conn      *mockConnection
	resolver  *mockMediaResolver
	store     *mockMediaStore
	notifier  *mockNotifier
	publisher *mockEventPublisher
	scheduler *PlaybackScheduler
}

func newSchedulerFixture() *schedulerFixture {
	f := &schedulerFixture{
		repo:      newMockRepository(),
		conn:      newMockConnection(),
		resolver:  newMockMediaResolver(),
		store:     &mockMediaStore{},
		notifier:  &mockNotifier{},
		publisher: &mockEventPublisher{},
	}
	f.scheduler = NewPlaybackScheduler(
		f.repo, f.conn, f.resolver, f.store, f.notifier, f.publisher, 0,
	)
	return f
}

// connect creates a session in the Idle state.
func (f *schedulerFixture) connect(guildID snowflake.ID) *domain.VoiceSession {
	f.conn.setStatus(guildID, domain.StatusIdle)
	return f.repo.createConnectedSession(guildID, snowflake.ID(10), snowflake.ID(20))
}

func (f *schedulerFixture) teardown() *SessionTeardown {
	return NewSessionTeardown(f.repo, f.conn, f.store, f.publisher)
}

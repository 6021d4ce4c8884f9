package watchers

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// DefaultInactivityCheckInterval is how often InactivitySupervisor observes sessions.
const DefaultInactivityCheckInterval = 30 * time.Second

// SessionCloser tears a guild's session down.
type SessionCloser interface {
	Teardown(ctx context.Context, guildID snowflake.ID, reason domain.SessionClosedReason) error
}

// InactivityConfig holds the timing of an InactivitySupervisor.
type InactivityConfig struct {
	Interval     time.Duration
	IdleTimeout  time.Duration
	PauseTimeout time.Duration
}

// InactivitySupervisor leaves voice channels that stayed idle or paused for too long.
type InactivitySupervisor struct {
	repo       domain.SessionRepository
	connection ports.PlaybackConnection
	closer     SessionCloser
	notifier   ports.ChatNotifier
	config     InactivityConfig
	now        func() time.Time

	mu     sync.Mutex
	timers map[snowflake.ID]*domain.InactivityTimer
}

// NewInactivitySupervisor creates a new InactivitySupervisor.
// Non-positive durations in config select the defaults.
func NewInactivitySupervisor(
	repo domain.SessionRepository,
	connection ports.PlaybackConnection,
	closer SessionCloser,
	notifier ports.ChatNotifier,
	config InactivityConfig,
) *InactivitySupervisor {
	if config.Interval <= 0 {
		config.Interval = DefaultInactivityCheckInterval
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = domain.DefaultIdleTimeout
	}
	if config.PauseTimeout <= 0 {
		config.PauseTimeout = domain.DefaultPauseTimeout
	}
	return &InactivitySupervisor{
		repo:       repo,
		connection: connection,
		closer:     closer,
		notifier:   notifier,
		config:     config,
		now:        time.Now,
		timers:     make(map[snowflake.ID]*domain.InactivityTimer),
	}
}

// Subscribe registers the supervisor's session lifecycle handlers.
func (s *InactivitySupervisor) Subscribe(subscriber ports.EventSubscriber) error {
	if err := subscriber.Subscribe(
		reflect.TypeFor[domain.SessionConnectedEvent](),
		s.handleSessionConnected,
	); err != nil {
		return errors.Wrap(err, "failed to subscribe to session connected events")
	}
	if err := subscriber.Subscribe(
		reflect.TypeFor[domain.SessionClosedEvent](),
		s.handleSessionClosed,
	); err != nil {
		return errors.Wrap(err, "failed to subscribe to session closed events")
	}
	return nil
}

// Run ticks until ctx is cancelled.
func (s *InactivitySupervisor) Run(ctx context.Context) error {
	return runTicker(ctx, s.config.Interval, s.Tick)
}

type expiredSession struct {
	session *domain.VoiceSession
	verdict domain.InactivityVerdict
}

// Tick observes every session once and tears down the ones that timed out.
func (s *InactivitySupervisor) Tick(ctx context.Context) {
	now := s.now()
	sessions := s.repo.List()

	var expired []expiredSession

	s.mu.Lock()
	active := make(map[snowflake.ID]struct{}, len(sessions))
	for _, session := range sessions {
		guildID := session.GuildID()
		active[guildID] = struct{}{}

		verdict := s.timer(guildID).Observe(s.connection.Status(guildID), now)
		if verdict != domain.InactivityKeep {
			expired = append(expired, expiredSession{session: session, verdict: verdict})
			delete(s.timers, guildID)
		}
	}
	for guildID := range s.timers {
		if _, ok := active[guildID]; !ok {
			delete(s.timers, guildID)
		}
	}
	s.mu.Unlock()

	for _, e := range expired {
		s.expire(ctx, e.session, e.verdict)
	}
}

func (s *InactivitySupervisor) expire(
	ctx context.Context,
	session *domain.VoiceSession,
	verdict domain.InactivityVerdict,
) {
	guildID := session.GuildID()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while leaving inactive voice channel", "guild", guildID, "panic", r)
		}
	}()

	if s.repo.Get(guildID) != session {
		// Closed by someone else since the observation.
		return
	}

	channelID := session.NotificationChannelID()
	slog.Info("leaving inactive voice channel", "guild", guildID, "reason", verdict)

	if err := s.closer.Teardown(ctx, guildID, verdict.SessionClosedReason()); err != nil {
		slog.Warn("failed to tear down inactive session", "guild", guildID, "error", err)
	}

	if channelID == 0 {
		return
	}
	if err := s.notifier.SendNotice(ctx, channelID, inactivityNotice(verdict, s.timeoutFor(verdict))); err != nil {
		slog.Warn("failed to send inactivity notice", "guild", guildID, "error", err)
	}
}

func (s *InactivitySupervisor) timeoutFor(verdict domain.InactivityVerdict) time.Duration {
	if verdict == domain.InactivityPauseTimeout {
		return s.config.PauseTimeout
	}
	return s.config.IdleTimeout
}

// timer returns the guild's timer, creating it in its grace state. Callers hold s.mu.
func (s *InactivitySupervisor) timer(guildID snowflake.ID) *domain.InactivityTimer {
	timer, ok := s.timers[guildID]
	if !ok {
		timer = domain.NewInactivityTimer(s.config.IdleTimeout, s.config.PauseTimeout)
		s.timers[guildID] = timer
	}
	return timer
}

func (s *InactivitySupervisor) handleSessionConnected(_ context.Context, event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer(event.EventGuildID()).MarkJustConnected()
}

func (s *InactivitySupervisor) handleSessionClosed(_ context.Context, event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, event.EventGuildID())
}

func inactivityNotice(verdict domain.InactivityVerdict, timeout time.Duration) ports.Notice {
	state := "idle"
	if verdict == domain.InactivityPauseTimeout {
		state = "paused"
	}
	return ports.Notice{
		Kind:  ports.NoticeInactivity,
		Title: "Left Voice Channel",
		Message: fmt.Sprintf(
			"Disconnected after being %s for %s.", state, timeout.Round(time.Second),
		),
	}
}

package usecases

import (
	"slices"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

func TestPlaybackService_Pause(t *testing.T) {
	guildID := snowflake.ID(1)

	tests := []struct {
		name       string
		status     domain.PlaybackStatus
		noSession  bool
		wantErr    error
		wantStatus domain.PlaybackStatus
	}{
		{name: "pause playing", status: domain.StatusPlaying, wantStatus: domain.StatusPaused},
		{name: "already paused", status: domain.StatusPaused, wantErr: ErrAlreadyPaused},
		{name: "idle", status: domain.StatusIdle, wantErr: ErrNotPlaying},
		{name: "not connected", noSession: true, wantErr: ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			conn := newMockConnection()
			if !tt.noSession {
				repo.createConnectedSession(guildID, snowflake.ID(2), snowflake.ID(3))
				conn.setStatus(guildID, tt.status)
			}
			service := NewPlaybackService(repo, conn)

			err := service.Pause(t.Context(), PauseInput{GuildID: guildID})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if conn.Status(guildID) != tt.wantStatus {
				t.Errorf("expected %s, got %s", tt.wantStatus, conn.Status(guildID))
			}
		})
	}
}

func TestPlaybackService_Resume(t *testing.T) {
	guildID := snowflake.ID(1)

	tests := []struct {
		name    string
		status  domain.PlaybackStatus
		wantErr error
	}{
		{name: "resume paused", status: domain.StatusPaused},
		{name: "playing", status: domain.StatusPlaying, wantErr: ErrNotPaused},
		{name: "idle", status: domain.StatusIdle, wantErr: ErrNotPaused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			conn := newMockConnection()
			session := repo.createConnectedSession(guildID, snowflake.ID(2), snowflake.ID(3))
			conn.setStatus(guildID, tt.status)
			service := NewPlaybackService(repo, conn)

			err := service.Resume(t.Context(), ResumeInput{
				GuildID:               guildID,
				NotificationChannelID: snowflake.ID(9),
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if conn.Status(guildID) != domain.StatusPlaying {
				t.Errorf("expected playing, got %s", conn.Status(guildID))
			}
			if session.NotificationChannelID() != 9 {
				t.Errorf("expected notification channel to be updated, got %d", session.NotificationChannelID())
			}
		})
	}
}

func TestPlaybackService_Skip(t *testing.T) {
	guildID := snowflake.ID(1)

	tests := []struct {
		name        string
		status      domain.PlaybackStatus
		position    int
		wantErr     error
		wantRemoved int
		wantPending []string
	}{
		{
			name:        "skip current",
			status:      domain.StatusPlaying,
			wantPending: []string{"C", "D"},
		},
		{
			name:        "skip to position",
			status:      domain.StatusPlaying,
			position:    3,
			wantRemoved: 2,
			wantPending: []string{},
		},
		{
			name:        "skip while paused",
			status:      domain.StatusPaused,
			wantPending: []string{"C", "D"},
		},
		{
			name:     "position out of range",
			status:   domain.StatusPlaying,
			position: 9,
			wantErr:  ErrInvalidPosition,
		},
		{
			name:    "nothing playing",
			status:  domain.StatusIdle,
			wantErr: ErrNotPlaying,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSchedulerFixture()
			session := f.connect(guildID)
			enqueueTracks(session, "A", "B", "C", "D")
			if tt.status != domain.StatusIdle {
				if err := f.scheduler.TryPlayNext(t.Context(), guildID); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				f.conn.setStatus(guildID, tt.status)
			}
			service := NewPlaybackService(f.repo, f.conn)

			output, err := service.Skip(t.Context(), SkipInput{GuildID: guildID, Position: tt.position})
			f.scheduler.Wait()

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if output.SkippedTrack.Title != "A" {
				t.Errorf("expected A to be skipped, got %q", output.SkippedTrack.Title)
			}
			if output.Removed != tt.wantRemoved {
				t.Errorf("expected %d removed, got %d", tt.wantRemoved, output.Removed)
			}
			// The stop chains the next track, so the new head is already playing.
			if got := pendingTitles(session); !slices.Equal(got, tt.wantPending) {
				t.Errorf("expected pending %v, got %v", tt.wantPending, got)
			}
		})
	}
}

func TestPlaybackService_SkipRestoresQueueWhenStopFails(t *testing.T) {
	guildID := snowflake.ID(1)
	f := newSchedulerFixture()
	session := f.connect(guildID)
	enqueueTracks(session, "A", "B", "C", "D")
	if err := f.scheduler.TryPlayNext(t.Context(), guildID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.conn.stopErr = errors.New("node unreachable")
	service := NewPlaybackService(f.repo, f.conn)

	_, err := service.Skip(t.Context(), SkipInput{GuildID: guildID, Position: 3})

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if got := pendingTitles(session); !slices.Equal(got, []string{"B", "C", "D"}) {
		t.Errorf("expected queue to be restored, got %v", got)
	}
}

func TestPlaybackService_Stop(t *testing.T) {
	guildID := snowflake.ID(1)
	f := newSchedulerFixture()
	session := f.connect(guildID)
	enqueueTracks(session, "A", "B", "C")
	if err := f.scheduler.TryPlayNext(t.Context(), guildID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	service := NewPlaybackService(f.repo, f.conn)

	output, err := service.Stop(t.Context(), StopInput{GuildID: guildID})
	f.scheduler.Wait()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Cleared != 2 {
		t.Errorf("expected 2 cleared, got %d", output.Cleared)
	}
	if f.conn.Status(guildID) != domain.StatusIdle {
		t.Errorf("expected idle, got %s", f.conn.Status(guildID))
	}
	if len(f.conn.playedIdentifiers()) != 1 {
		t.Errorf("expected nothing else to play, got %v", f.conn.playedIdentifiers())
	}
	if session.Queue.HistoryLen() != 1 {
		t.Errorf("expected stopped track in history, got %d", session.Queue.HistoryLen())
	}
}

func TestPlaybackService_SetVolume(t *testing.T) {
	guildID := snowflake.ID(1)

	tests := []struct {
		name    string
		volume  int
		wantErr error
	}{
		{name: "valid", volume: 40},
		{name: "zero", volume: 0},
		{name: "too loud", volume: 101, wantErr: ErrInvalidVolume},
		{name: "negative", volume: -1, wantErr: ErrInvalidVolume},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			conn := newMockConnection()
			repo.createConnectedSession(guildID, snowflake.ID(2), snowflake.ID(3))
			service := NewPlaybackService(repo, conn)

			err := service.SetVolume(t.Context(), SetVolumeInput{GuildID: guildID, Volume: tt.volume})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if conn.volume != tt.volume {
				t.Errorf("expected volume %d, got %d", tt.volume, conn.volume)
			}
		})
	}
}

func TestPlaybackService_NowPlaying(t *testing.T) {
	guildID := snowflake.ID(1)
	f := newSchedulerFixture()
	session := f.connect(guildID)
	service := NewPlaybackService(f.repo, f.conn)

	if _, err := service.NowPlaying(NowPlayingInput{GuildID: guildID}); !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("expected ErrNotPlaying, got %v", err)
	}

	enqueueTracks(session, "A")
	if err := f.scheduler.TryPlayNext(t.Context(), guildID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output, err := service.NowPlaying(NowPlayingInput{GuildID: guildID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Track.Title != "A" || output.Status != domain.StatusPlaying {
		t.Errorf("unexpected output: %+v", output)
	}
}

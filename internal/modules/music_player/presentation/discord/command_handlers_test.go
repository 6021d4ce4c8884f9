package discord

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/bot"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

func respondedEmbed(t *testing.T, r *bot.MockResponder) *discordgo.MessageEmbed {
	t.Helper()
	if r.LastResponse == nil || r.LastResponse.Data == nil || len(r.LastResponse.Data.Embeds) != 1 {
		t.Fatalf("expected a response with one embed, got %+v", r.LastResponse)
	}
	return r.LastResponse.Data.Embeds[0]
}

func editedEmbed(t *testing.T, r *bot.MockResponder) *discordgo.MessageEmbed {
	t.Helper()
	if r.LastResponse == nil ||
		r.LastResponse.Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Fatalf("expected a deferred response, got %+v", r.LastResponse)
	}
	if r.LastEdit == nil || r.LastEdit.Embeds == nil || len(*r.LastEdit.Embeds) != 1 {
		t.Fatalf("expected an edit with one embed, got %+v", r.LastEdit)
	}
	return (*r.LastEdit.Embeds)[0]
}

func TestCommandHandlers_HandlePlay(t *testing.T) {
	f := newHandlerFixture()
	f.trackLoader.output = &usecases.LoadTracksOutput{Tracks: []domain.Track{testTrack("song")}}
	f.queue.addOutput = &usecases.QueueAddOutput{Added: 1, Position: 3}
	r := &bot.MockResponder{}

	err := f.handlers.HandlePlay(nil, commandInteraction("play", stringOption("query", "some song")), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embed := editedEmbed(t, r)
	if embed.Color != colorSuccess || !strings.Contains(embed.Description, "at position 3") {
		t.Errorf("unexpected embed: %+v", embed)
	}

	if len(f.voiceChannel.joins) != 1 || f.voiceChannel.joins[0].UserID != snowflake.ID(3) {
		t.Errorf("expected a join for user 3, got %+v", f.voiceChannel.joins)
	}
	load := f.trackLoader.loads[0]
	if load.Query != "some song" || load.RequesterName != "alice" {
		t.Errorf("unexpected load input: %+v", load)
	}
	add := f.queue.adds[0]
	if add.Priority || add.GuildID != snowflake.ID(1) || add.NotificationChannelID != snowflake.ID(2) {
		t.Errorf("unexpected add input: %+v", add)
	}
}

func TestCommandHandlers_HandlePlayNext(t *testing.T) {
	f := newHandlerFixture()
	f.trackLoader.output = &usecases.LoadTracksOutput{Tracks: []domain.Track{testTrack("song")}}
	r := &bot.MockResponder{}

	err := f.handlers.HandlePlayNext(nil, commandInteraction("playnext", stringOption("query", "song")), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !f.queue.adds[0].Priority {
		t.Error("expected a priority enqueue")
	}
	if embed := editedEmbed(t, r); !strings.Contains(embed.Description, "to play next") {
		t.Errorf("unexpected description %q", embed.Description)
	}
}

func TestCommandHandlers_HandlePlayPlaylist(t *testing.T) {
	f := newHandlerFixture()
	f.trackLoader.output = &usecases.LoadTracksOutput{
		Tracks:       []domain.Track{testTrack("a"), testTrack("b"), testTrack("c")},
		PlaylistName: "Mix",
		Truncated:    5,
	}
	f.queue.addOutput = &usecases.QueueAddOutput{Added: 2, Dropped: 1, Position: 1}
	r := &bot.MockResponder{}

	err := f.handlers.HandlePlay(nil, commandInteraction("play", stringOption("query", "https://x/list")), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	description := editedEmbed(t, r).Description
	for _, want := range []string{"**2 tracks** from **Mix**", "5 tracks were left out", "1 tracks did not fit"} {
		if !strings.Contains(description, want) {
			t.Errorf("expected %q in %q", want, description)
		}
	}
}

func TestCommandHandlers_HandlePlayErrors(t *testing.T) {
	tests := []struct {
		name        string
		joinErr     error
		loadErr     error
		wantMessage string
		wantLoad    bool
	}{
		{
			name:        "user not in voice",
			joinErr:     usecases.ErrUserNotInVoice,
			wantMessage: "You must be in a voice channel.",
		},
		{
			name:        "no results",
			loadErr:     usecases.ErrNoResults,
			wantMessage: "No results found.",
			wantLoad:    true,
		},
		{
			name:        "wrapped known error",
			loadErr:     errors.Wrap(usecases.ErrNoResults, "failed to load tracks"),
			wantMessage: "No results found.",
			wantLoad:    true,
		},
		{
			name:        "unexpected error",
			loadErr:     errors.New("yt-dlp exited with status 1"),
			wantMessage: "Something went wrong. Please try again later.",
			wantLoad:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture()
			f.voiceChannel.joinErr = tt.joinErr
			f.trackLoader.err = tt.loadErr
			r := &bot.MockResponder{}

			err := f.handlers.HandlePlay(nil, commandInteraction("play", stringOption("query", "song")), r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			embed := editedEmbed(t, r)
			if embed.Color != colorError || embed.Description != tt.wantMessage {
				t.Errorf("unexpected embed: %+v", embed)
			}
			if got := len(f.trackLoader.loads) > 0; got != tt.wantLoad {
				t.Errorf("expected load called %v, got %v", tt.wantLoad, got)
			}
			if len(f.queue.adds) != 0 {
				t.Error("expected nothing to be queued")
			}
		})
	}
}

func TestCommandHandlers_GuildOnly(t *testing.T) {
	f := newHandlerFixture()
	i := commandInteraction("pause")
	i.Member = nil
	i.GuildID = ""
	r := &bot.MockResponder{}

	if err := f.handlers.HandlePause(nil, i, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if embed := respondedEmbed(t, r); embed.Description != "This command can only be used in a server." {
		t.Errorf("unexpected description %q", embed.Description)
	}
	if f.playback.pauses != 0 {
		t.Error("expected pause not to be called")
	}
}

func TestCommandHandlers_HandlePause(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantColor   int
		wantMessage string
	}{
		{name: "paused", wantColor: colorSuccess, wantMessage: "Paused playback."},
		{name: "already paused", err: usecases.ErrAlreadyPaused, wantColor: colorError, wantMessage: "Playback is already paused."},
		{name: "not playing", err: usecases.ErrNotPlaying, wantColor: colorError, wantMessage: "Nothing is currently playing."},
		{name: "not connected", err: usecases.ErrNotConnected, wantColor: colorError, wantMessage: "Not connected to a voice channel."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture()
			f.playback.err = tt.err
			r := &bot.MockResponder{}

			if err := f.handlers.HandlePause(nil, commandInteraction("pause"), r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			embed := respondedEmbed(t, r)
			if embed.Color != tt.wantColor || embed.Description != tt.wantMessage {
				t.Errorf("unexpected embed: %+v", embed)
			}
		})
	}
}

func TestCommandHandlers_HandleSkip(t *testing.T) {
	f := newHandlerFixture()
	f.playback.skipOutput = &usecases.SkipOutput{SkippedTrack: testTrack("song"), Removed: 2}
	r := &bot.MockResponder{}

	if err := f.handlers.HandleSkip(nil, commandInteraction("skip", intOption("position", 3)), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.playback.skips[0].Position != 3 {
		t.Errorf("expected position 3, got %d", f.playback.skips[0].Position)
	}
	if embed := respondedEmbed(t, r); !strings.Contains(embed.Description, "and 2 queued tracks") {
		t.Errorf("unexpected description %q", embed.Description)
	}
}

func TestCommandHandlers_HandleStop(t *testing.T) {
	f := newHandlerFixture()
	f.playback.stopOutput = &usecases.StopOutput{Cleared: 4}
	r := &bot.MockResponder{}

	if err := f.handlers.HandleStop(nil, commandInteraction("stop"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if embed := respondedEmbed(t, r); embed.Description != "Stopped playback and cleared 4 queued tracks." {
		t.Errorf("unexpected description %q", embed.Description)
	}
}

func TestCommandHandlers_HandleQueueList(t *testing.T) {
	current := testTrack("current")
	f := newHandlerFixture()
	f.queue.listOutput = &usecases.QueueListOutput{
		CurrentTrack: &current,
		Tracks:       []domain.Track{testTrack("eleven"), testTrack("twelve")},
		TotalTracks:  12,
		CurrentPage:  2,
		TotalPages:   2,
		PageOffset:   10,
	}
	r := &bot.MockResponder{}

	i := commandInteraction("queue", subcommand("list", intOption("page", 2)))
	if err := f.handlers.HandleQueue(nil, i, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.queue.lists[0].Page != 2 {
		t.Errorf("expected page 2, got %d", f.queue.lists[0].Page)
	}
	embed := respondedEmbed(t, r)
	for _, want := range []string{"**Now playing:** [current]", "11\\. [eleven]", "12\\. [twelve]"} {
		if !strings.Contains(embed.Description, want) {
			t.Errorf("expected %q in %q", want, embed.Description)
		}
	}
	if embed.Footer.Text != "Page 2/2 · 12 tracks" {
		t.Errorf("unexpected footer %q", embed.Footer.Text)
	}
}

func TestCommandHandlers_HandleQueueListEmpty(t *testing.T) {
	f := newHandlerFixture()
	f.queue.listOutput = &usecases.QueueListOutput{CurrentPage: 1, TotalPages: 1}
	r := &bot.MockResponder{}

	if err := f.handlers.HandleQueue(nil, commandInteraction("queue", subcommand("list")), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if embed := respondedEmbed(t, r); embed.Description != "The queue is empty." {
		t.Errorf("unexpected description %q", embed.Description)
	}
}

func TestCommandHandlers_HandleQueueRemove(t *testing.T) {
	f := newHandlerFixture()
	f.queue.removeOutput = &usecases.QueueRemoveOutput{RemovedTrack: testTrack("song")}
	r := &bot.MockResponder{}

	i := commandInteraction("queue", subcommand("remove", intOption("position", 2)))
	if err := f.handlers.HandleQueue(nil, i, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.queue.removes[0].Position != 2 {
		t.Errorf("expected position 2, got %d", f.queue.removes[0].Position)
	}
	if embed := respondedEmbed(t, r); !strings.HasPrefix(embed.Description, "Removed [song]") {
		t.Errorf("unexpected description %q", embed.Description)
	}
}

func TestCommandHandlers_HandleRecent(t *testing.T) {
	f := newHandlerFixture()
	f.queue.recentOutput = &usecases.QueueRecentOutput{
		Tracks: []domain.Track{testTrack("latest"), testTrack("older")},
	}
	r := &bot.MockResponder{}

	if err := f.handlers.HandleRecent(nil, commandInteraction("recent", intOption("limit", 5)), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.queue.recents[0].Limit != 5 {
		t.Errorf("expected limit 5, got %d", f.queue.recents[0].Limit)
	}
	if len(f.notificationChannel.sets) != 1 || f.notificationChannel.sets[0].ChannelID != snowflake.ID(2) {
		t.Errorf("expected the notification channel to be updated, got %+v", f.notificationChannel.sets)
	}
	embed := respondedEmbed(t, r)
	if !strings.Contains(embed.Description, "1\\. [latest]") || !strings.Contains(embed.Description, "2\\. [older]") {
		t.Errorf("unexpected description %q", embed.Description)
	}
}

func TestCommandHandlers_HandleNowPlaying(t *testing.T) {
	f := newHandlerFixture()
	f.playback.nowPlaying = &usecases.NowPlayingOutput{
		Track:  testTrack("song"),
		Status: usecases.StatusPaused,
	}
	r := &bot.MockResponder{}

	if err := f.handlers.HandleNowPlaying(nil, commandInteraction("nowplaying"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embed := respondedEmbed(t, r)
	if embed.Author.Name != "Paused" || embed.Title != "song" {
		t.Errorf("unexpected embed: %+v", embed)
	}
	if embed.Fields[1].Value != "03:00" {
		t.Errorf("expected duration 03:00, got %q", embed.Fields[1].Value)
	}
}

func TestCommandHandlers_HandleVolume(t *testing.T) {
	f := newHandlerFixture()
	r := &bot.MockResponder{}

	if err := f.handlers.HandleVolume(nil, commandInteraction("volume", intOption("level", 40)), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.playback.volumes[0].Volume != 40 {
		t.Errorf("expected volume 40, got %d", f.playback.volumes[0].Volume)
	}
	if embed := respondedEmbed(t, r); embed.Description != "Set the volume to 40%." {
		t.Errorf("unexpected description %q", embed.Description)
	}
}

func TestCommandHandlers_HandleJoin(t *testing.T) {
	tests := []struct {
		name   string
		output *usecases.JoinOutput
		want   string
	}{
		{name: "connected", output: &usecases.JoinOutput{VoiceChannelID: 100}, want: "Connected to <#100>."},
		{name: "moved", output: &usecases.JoinOutput{VoiceChannelID: 200, Moved: true}, want: "Moved to <#200>."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture()
			f.voiceChannel.joinOutput = tt.output
			r := &bot.MockResponder{}

			if err := f.handlers.HandleJoin(nil, commandInteraction("join"), r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if embed := editedEmbed(t, r); embed.Description != tt.want {
				t.Errorf("expected %q, got %q", tt.want, embed.Description)
			}
		})
	}
}

func TestCommandHandlers_HandleLeave(t *testing.T) {
	f := newHandlerFixture()
	f.voiceChannel.leaveErr = usecases.ErrNotConnected
	r := &bot.MockResponder{}

	if err := f.handlers.HandleLeave(nil, commandInteraction("leave"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if embed := respondedEmbed(t, r); embed.Color != colorError {
		t.Errorf("expected an error embed, got %+v", embed)
	}
}

func TestCommandHandlers_ResponderError(t *testing.T) {
	f := newHandlerFixture()
	expectedErr := errors.New("responder failed")
	r := &bot.MockResponder{Err: expectedErr}

	err := f.handlers.HandleClear(nil, commandInteraction("clear"), r)
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestTrackLink(t *testing.T) {
	tests := []struct {
		name  string
		track domain.Track
		want  string
	}{
		{
			name:  "with url",
			track: domain.Track{Title: "Song [Live]", OriginalURL: "https://x/1"},
			want:  "[Song \\[Live\\]](https://x/1)",
		},
		{
			name:  "without url",
			track: domain.Track{Title: "Song"},
			want:  "**Song**",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trackLink(tt.track); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

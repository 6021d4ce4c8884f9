package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// mockVoiceChannel is a test double for voiceChannelUsecase and botVoiceStateUsecase.
type mockVoiceChannel struct {
	joinOutput *usecases.JoinOutput
	joinErr    error
	leaveErr   error

	joins        []usecases.JoinInput
	leaves       []usecases.LeaveInput
	stateChanges []usecases.BotVoiceStateChangeInput
}

func (m *mockVoiceChannel) Join(_ context.Context, input usecases.JoinInput) (*usecases.JoinOutput, error) {
	m.joins = append(m.joins, input)
	if m.joinErr != nil {
		return nil, m.joinErr
	}
	if m.joinOutput != nil {
		return m.joinOutput, nil
	}
	return &usecases.JoinOutput{VoiceChannelID: 100}, nil
}

func (m *mockVoiceChannel) Leave(_ context.Context, input usecases.LeaveInput) error {
	m.leaves = append(m.leaves, input)
	return m.leaveErr
}

func (m *mockVoiceChannel) HandleBotVoiceStateChange(
	_ context.Context,
	input usecases.BotVoiceStateChangeInput,
) error {
	m.stateChanges = append(m.stateChanges, input)
	return nil
}

// mockPlayback is a test double for playbackUsecase.
type mockPlayback struct {
	err        error
	skipOutput *usecases.SkipOutput
	stopOutput *usecases.StopOutput
	nowPlaying *usecases.NowPlayingOutput

	skips   []usecases.SkipInput
	volumes []usecases.SetVolumeInput
	pauses  int
}

func (m *mockPlayback) Pause(context.Context, usecases.PauseInput) error {
	m.pauses++
	return m.err
}

func (m *mockPlayback) Resume(context.Context, usecases.ResumeInput) error {
	return m.err
}

func (m *mockPlayback) Skip(_ context.Context, input usecases.SkipInput) (*usecases.SkipOutput, error) {
	m.skips = append(m.skips, input)
	if m.err != nil {
		return nil, m.err
	}
	return m.skipOutput, nil
}

func (m *mockPlayback) Stop(context.Context, usecases.StopInput) (*usecases.StopOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stopOutput, nil
}

func (m *mockPlayback) SetVolume(_ context.Context, input usecases.SetVolumeInput) error {
	m.volumes = append(m.volumes, input)
	return m.err
}

func (m *mockPlayback) NowPlaying(usecases.NowPlayingInput) (*usecases.NowPlayingOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.nowPlaying, nil
}

// mockQueue is a test double for queueUsecase.
type mockQueue struct {
	err          error
	addOutput    *usecases.QueueAddOutput
	listOutput   *usecases.QueueListOutput
	removeOutput *usecases.QueueRemoveOutput
	recentOutput *usecases.QueueRecentOutput

	adds    []usecases.QueueAddInput
	lists   []usecases.QueueListInput
	removes []usecases.QueueRemoveInput
	recents []usecases.QueueRecentInput
}

func (m *mockQueue) Add(_ context.Context, input usecases.QueueAddInput) (*usecases.QueueAddOutput, error) {
	m.adds = append(m.adds, input)
	if m.err != nil {
		return nil, m.err
	}
	if m.addOutput != nil {
		return m.addOutput, nil
	}
	return &usecases.QueueAddOutput{Added: len(input.Tracks), Position: 1}, nil
}

func (m *mockQueue) List(input usecases.QueueListInput) (*usecases.QueueListOutput, error) {
	m.lists = append(m.lists, input)
	if m.err != nil {
		return nil, m.err
	}
	return m.listOutput, nil
}

func (m *mockQueue) Remove(input usecases.QueueRemoveInput) (*usecases.QueueRemoveOutput, error) {
	m.removes = append(m.removes, input)
	if m.err != nil {
		return nil, m.err
	}
	return m.removeOutput, nil
}

func (m *mockQueue) Clear(usecases.QueueClearInput) (*usecases.QueueClearOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &usecases.QueueClearOutput{ClearedCount: 2}, nil
}

func (m *mockQueue) Recent(input usecases.QueueRecentInput) (*usecases.QueueRecentOutput, error) {
	m.recents = append(m.recents, input)
	if m.err != nil {
		return nil, m.err
	}
	return m.recentOutput, nil
}

func (m *mockQueue) Replay(context.Context, usecases.QueueReplayInput) (*usecases.QueueReplayOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &usecases.QueueReplayOutput{Added: 4}, nil
}

// mockTrackLoader is a test double for trackLoaderUsecase.
type mockTrackLoader struct {
	output *usecases.LoadTracksOutput
	err    error
	loads  []usecases.LoadTracksInput
}

func (m *mockTrackLoader) LoadTracks(
	_ context.Context,
	input usecases.LoadTracksInput,
) (*usecases.LoadTracksOutput, error) {
	m.loads = append(m.loads, input)
	if m.err != nil {
		return nil, m.err
	}
	return m.output, nil
}

// mockNotificationChannel is a test double for notificationChannelUsecase.
type mockNotificationChannel struct {
	sets []usecases.SetNotificationChannelInput
}

func (m *mockNotificationChannel) Set(input usecases.SetNotificationChannelInput) error {
	m.sets = append(m.sets, input)
	return nil
}

// handlerFixture bundles CommandHandlers with its mocks.
type handlerFixture struct {
	handlers            *CommandHandlers
	voiceChannel        *mockVoiceChannel
	playback            *mockPlayback
	queue               *mockQueue
	trackLoader         *mockTrackLoader
	notificationChannel *mockNotificationChannel
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		voiceChannel:        &mockVoiceChannel{},
		playback:            &mockPlayback{},
		queue:               &mockQueue{},
		trackLoader:         &mockTrackLoader{},
		notificationChannel: &mockNotificationChannel{},
	}
	f.handlers = &CommandHandlers{
		voiceChannel:        f.voiceChannel,
		playback:            f.playback,
		queue:               f.queue,
		trackLoader:         f.trackLoader,
		notificationChannel: f.notificationChannel,
	}
	return f
}

// commandInteraction builds a guild slash command interaction from user 3 in channel 2 of guild 1.
func commandInteraction(
	name string,
	options ...*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   "1",
			ChannelID: "2",
			Member: &discordgo.Member{
				User: &discordgo.User{ID: "3", Username: "alice"},
			},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
		},
	}
}

func stringOption(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Type:  discordgo.ApplicationCommandOptionString,
		Name:  name,
		Value: value,
	}
}

func intOption(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	// Discord sends numbers as JSON numbers, which decode to float64
	return &discordgo.ApplicationCommandInteractionDataOption{
		Type:  discordgo.ApplicationCommandOptionInteger,
		Name:  name,
		Value: float64(value),
	}
}

func subcommand(
	name string,
	options ...*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Type:    discordgo.ApplicationCommandOptionSubCommand,
		Name:    name,
		Options: options,
	}
}

func testTrack(title string) domain.Track {
	return domain.Track{
		ID:            domain.TrackID(title),
		Title:         title,
		Artist:        "Artist",
		OriginalURL:   "https://www.youtube.com/watch?v=" + title,
		Duration:      3 * time.Minute,
		Source:        domain.TrackSourceYouTube,
		RequesterName: "alice",
	}
}

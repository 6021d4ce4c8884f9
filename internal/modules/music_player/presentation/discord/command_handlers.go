package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/bot"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/usecases"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
)

// commandTimeout bounds the work done for a single command, including voice
// connection and track lookup.
const commandTimeout = 30 * time.Second

// errGuildOnly is returned for interactions that do not come from a guild.
var errGuildOnly = errors.New("this command can only be used in a server")

// userFacingErrors are shown to the user as they are. Anything else is logged
// and replaced by a generic message.
var userFacingErrors = []error{
	errGuildOnly,
	usecases.ErrNotConnected,
	usecases.ErrUserNotInVoice,
	usecases.ErrNotPlaying,
	usecases.ErrAlreadyPaused,
	usecases.ErrNotPaused,
	usecases.ErrNoResults,
	usecases.ErrQueueEmpty,
	usecases.ErrHistoryEmpty,
	usecases.ErrInvalidVolume,
	usecases.ErrInvalidPosition,
	usecases.ErrCapacityExceeded,
	ports.ErrConnectionFailed,
}

type voiceChannelUsecase interface {
	Join(ctx context.Context, input usecases.JoinInput) (*usecases.JoinOutput, error)
	Leave(ctx context.Context, input usecases.LeaveInput) error
}

type playbackUsecase interface {
	Pause(ctx context.Context, input usecases.PauseInput) error
	Resume(ctx context.Context, input usecases.ResumeInput) error
	Skip(ctx context.Context, input usecases.SkipInput) (*usecases.SkipOutput, error)
	Stop(ctx context.Context, input usecases.StopInput) (*usecases.StopOutput, error)
	SetVolume(ctx context.Context, input usecases.SetVolumeInput) error
	NowPlaying(input usecases.NowPlayingInput) (*usecases.NowPlayingOutput, error)
}

type queueUsecase interface {
	Add(ctx context.Context, input usecases.QueueAddInput) (*usecases.QueueAddOutput, error)
	List(input usecases.QueueListInput) (*usecases.QueueListOutput, error)
	Remove(input usecases.QueueRemoveInput) (*usecases.QueueRemoveOutput, error)
	Clear(input usecases.QueueClearInput) (*usecases.QueueClearOutput, error)
	Recent(input usecases.QueueRecentInput) (*usecases.QueueRecentOutput, error)
	Replay(ctx context.Context, input usecases.QueueReplayInput) (*usecases.QueueReplayOutput, error)
}

type trackLoaderUsecase interface {
	LoadTracks(ctx context.Context, input usecases.LoadTracksInput) (*usecases.LoadTracksOutput, error)
}

type notificationChannelUsecase interface {
	Set(input usecases.SetNotificationChannelInput) error
}

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	voiceChannel        voiceChannelUsecase
	playback            playbackUsecase
	queue               queueUsecase
	trackLoader         trackLoaderUsecase
	notificationChannel notificationChannelUsecase
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	voiceChannel *usecases.VoiceChannelService,
	playback *usecases.PlaybackService,
	queue *usecases.QueueService,
	trackLoader *usecases.TrackLoaderService,
	notificationChannel *usecases.NotificationChannelService,
) *CommandHandlers {
	return &CommandHandlers{
		voiceChannel:        voiceChannel,
		playback:            playback,
		queue:               queue,
		trackLoader:         trackLoader,
		notificationChannel: notificationChannel,
	}
}

// invocation carries the IDs every command needs.
type invocation struct {
	guildID   snowflake.ID
	channelID snowflake.ID
	userID    snowflake.ID
	userName  string
}

func parseInvocation(i *discordgo.InteractionCreate) (invocation, error) {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return invocation{}, errGuildOnly
	}

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return invocation{}, errors.Wrap(err, "failed to parse guild ID")
	}
	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return invocation{}, errors.Wrap(err, "failed to parse channel ID")
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return invocation{}, errors.Wrap(err, "failed to parse user ID")
	}

	return invocation{
		guildID:   guildID,
		channelID: channelID,
		userID:    userID,
		userName:  displayName(i.Member),
	}, nil
}

func displayName(member *discordgo.Member) string {
	switch {
	case member.Nick != "":
		return member.Nick
	case member.User.GlobalName != "":
		return member.User.GlobalName
	default:
		return member.User.Username
	}
}

// HandleJoin handles the /join command.
func (h *CommandHandlers) HandleJoin(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "join", err)
	}

	var voiceChannelID snowflake.ID
	if opt := findOption(i.ApplicationCommandData().Options, "channel"); opt != nil {
		voiceChannelID, err = snowflake.Parse(opt.ChannelValue(s).ID)
		if err != nil {
			return respondError(r, "join", errors.Wrap(err, "failed to parse voice channel ID"))
		}
	}

	// Connecting waits for the voice handshake, which may exceed the interaction deadline
	if err := deferResponse(r); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.voiceChannel.Join(ctx, usecases.JoinInput{
		GuildID:               inv.guildID,
		UserID:                inv.userID,
		NotificationChannelID: inv.channelID,
		VoiceChannelID:        voiceChannelID,
	})
	if err != nil {
		return editError(r, "join", err)
	}

	if output.Moved {
		return editSuccess(r, fmt.Sprintf("Moved to <#%d>.", output.VoiceChannelID))
	}
	return editSuccess(r, fmt.Sprintf("Connected to <#%d>.", output.VoiceChannelID))
}

// HandleLeave handles the /leave command.
func (h *CommandHandlers) HandleLeave(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "leave", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := h.voiceChannel.Leave(ctx, usecases.LeaveInput{GuildID: inv.guildID}); err != nil {
		return respondError(r, "leave", err)
	}

	return respondSuccess(r, "Disconnected.")
}

// HandlePlay handles the /play command.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.enqueue(i, r, "play", false)
}

// HandlePlayNext handles the /playnext command.
func (h *CommandHandlers) HandlePlayNext(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.enqueue(i, r, "playnext", true)
}

// enqueue joins the user's voice channel if needed, loads the query and adds
// the tracks to the queue.
func (h *CommandHandlers) enqueue(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	command string,
	priority bool,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, command, err)
	}

	var query string
	if opt := findOption(i.ApplicationCommandData().Options, "query"); opt != nil {
		query = opt.StringValue()
	}

	// Joining and track lookup may exceed the interaction deadline
	if err := deferResponse(r); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	_, err = h.voiceChannel.Join(ctx, usecases.JoinInput{
		GuildID:               inv.guildID,
		UserID:                inv.userID,
		NotificationChannelID: inv.channelID,
	})
	if err != nil {
		return editError(r, command, err)
	}

	loaded, err := h.trackLoader.LoadTracks(ctx, usecases.LoadTracksInput{
		Query:         query,
		RequesterID:   inv.userID,
		RequesterName: inv.userName,
	})
	if err != nil {
		return editError(r, command, err)
	}

	added, err := h.queue.Add(ctx, usecases.QueueAddInput{
		GuildID:               inv.guildID,
		Tracks:                loaded.Tracks,
		Priority:              priority,
		NotificationChannelID: inv.channelID,
	})
	if err != nil {
		return editError(r, command, err)
	}

	return editSuccess(r, describeEnqueued(loaded, added, priority))
}

func describeEnqueued(
	loaded *usecases.LoadTracksOutput,
	added *usecases.QueueAddOutput,
	priority bool,
) string {
	var sb strings.Builder

	switch {
	case loaded.PlaylistName != "" || len(loaded.Tracks) > 1:
		name := loaded.PlaylistName
		if name == "" {
			name = "playlist"
		}
		fmt.Fprintf(&sb, "Added **%d tracks** from **%s** to the queue.", added.Added, name)
		if loaded.Truncated > 0 {
			fmt.Fprintf(&sb, "\n%d tracks were left out by the playlist limit.", loaded.Truncated)
		}
	case priority:
		fmt.Fprintf(&sb, "Queued %s to play next.", trackLink(loaded.Tracks[0]))
	default:
		fmt.Fprintf(&sb, "Added %s to the queue at position %d.", trackLink(loaded.Tracks[0]), added.Position)
	}

	if added.Dropped > 0 {
		fmt.Fprintf(&sb, "\n%d tracks did not fit in the queue.", added.Dropped)
	}

	return sb.String()
}

// HandlePause handles the /pause command.
func (h *CommandHandlers) HandlePause(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "pause", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	err = h.playback.Pause(ctx, usecases.PauseInput{
		GuildID:               inv.guildID,
		NotificationChannelID: inv.channelID,
	})
	if err != nil {
		return respondError(r, "pause", err)
	}

	return respondSuccess(r, "Paused playback.")
}

// HandleResume handles the /resume command.
func (h *CommandHandlers) HandleResume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "resume", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	err = h.playback.Resume(ctx, usecases.ResumeInput{
		GuildID:               inv.guildID,
		NotificationChannelID: inv.channelID,
	})
	if err != nil {
		return respondError(r, "resume", err)
	}

	return respondSuccess(r, "Resumed playback.")
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "skip", err)
	}

	var position int
	if opt := findOption(i.ApplicationCommandData().Options, "position"); opt != nil {
		position = int(opt.IntValue())
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.playback.Skip(ctx, usecases.SkipInput{
		GuildID:               inv.guildID,
		Position:              position,
		NotificationChannelID: inv.channelID,
	})
	if err != nil {
		return respondError(r, "skip", err)
	}

	if output.Removed > 0 {
		return respondSuccess(r, fmt.Sprintf(
			"Skipped %s and %d queued tracks.",
			trackLink(output.SkippedTrack),
			output.Removed,
		))
	}
	return respondSuccess(r, fmt.Sprintf("Skipped %s.", trackLink(output.SkippedTrack)))
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "stop", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.playback.Stop(ctx, usecases.StopInput{
		GuildID:               inv.guildID,
		NotificationChannelID: inv.channelID,
	})
	if err != nil {
		return respondError(r, "stop", err)
	}

	if output.Cleared > 0 {
		return respondSuccess(r, fmt.Sprintf("Stopped playback and cleared %d queued tracks.", output.Cleared))
	}
	return respondSuccess(r, "Stopped playback.")
}

// HandleQueue handles the /queue command and routes to subcommands.
func (h *CommandHandlers) HandleQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "queue", errors.New("missing queue subcommand"))
	}

	subcommand := options[0]
	switch subcommand.Name {
	case "list":
		return h.handleQueueList(i, r, subcommand.Options)
	case "remove":
		return h.handleQueueRemove(i, r, subcommand.Options)
	default:
		return respondError(r, "queue", errors.Newf("unknown queue subcommand %q", subcommand.Name))
	}
}

func (h *CommandHandlers) handleQueueList(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "queue list", err)
	}

	page := 1
	if opt := findOption(options, "page"); opt != nil {
		page = int(opt.IntValue())
	}

	output, err := h.queue.List(usecases.QueueListInput{
		GuildID:               inv.guildID,
		Page:                  page,
		NotificationChannelID: inv.channelID,
	})
	if err != nil {
		return respondError(r, "queue list", err)
	}

	var sb strings.Builder
	if output.CurrentTrack != nil {
		fmt.Fprintf(&sb, "**Now playing:** %s\n\n", trackLine(*output.CurrentTrack))
	}
	if output.TotalTracks == 0 {
		sb.WriteString("The queue is empty.")
	}
	for idx, track := range output.Tracks {
		writeTrackLine(&sb, output.PageOffset+idx+1, track)
	}

	return respond(r, &discordgo.MessageEmbed{
		Title:       "Queue",
		Description: sb.String(),
		Color:       colorSuccess,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf(
				"Page %d/%d · %d tracks",
				output.CurrentPage,
				output.TotalPages,
				output.TotalTracks,
			),
		},
	})
}

func (h *CommandHandlers) handleQueueRemove(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "queue remove", err)
	}

	var position int
	if opt := findOption(options, "position"); opt != nil {
		position = int(opt.IntValue())
	}

	output, err := h.queue.Remove(usecases.QueueRemoveInput{
		GuildID:               inv.guildID,
		Position:              position,
		NotificationChannelID: inv.channelID,
	})
	if err != nil {
		return respondError(r, "queue remove", err)
	}

	return respondSuccess(r, fmt.Sprintf("Removed %s.", trackLink(output.RemovedTrack)))
}

// HandleClear handles the /clear command.
func (h *CommandHandlers) HandleClear(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "clear", err)
	}

	output, err := h.queue.Clear(usecases.QueueClearInput{
		GuildID:               inv.guildID,
		NotificationChannelID: inv.channelID,
	})
	if err != nil {
		return respondError(r, "clear", err)
	}

	return respondSuccess(r, fmt.Sprintf("Cleared %d tracks from the queue.", output.ClearedCount))
}

// HandleRecent handles the /recent command.
func (h *CommandHandlers) HandleRecent(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "recent", err)
	}
	h.updateNotificationChannel(inv)

	var limit int
	if opt := findOption(i.ApplicationCommandData().Options, "limit"); opt != nil {
		limit = min(int(opt.IntValue()), maxRecentLimit)
	}

	output, err := h.queue.Recent(usecases.QueueRecentInput{
		GuildID: inv.guildID,
		Limit:   limit,
	})
	if err != nil {
		return respondError(r, "recent", err)
	}

	var sb strings.Builder
	for idx, track := range output.Tracks {
		writeTrackLine(&sb, idx+1, track)
	}

	return respond(r, &discordgo.MessageEmbed{
		Title:       "Recently Played",
		Description: sb.String(),
		Color:       colorSuccess,
	})
}

// HandleReplay handles the /replay command.
func (h *CommandHandlers) HandleReplay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "replay", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.queue.Replay(ctx, usecases.QueueReplayInput{
		GuildID:               inv.guildID,
		NotificationChannelID: inv.channelID,
	})
	if err != nil {
		return respondError(r, "replay", err)
	}

	return respondSuccess(r, fmt.Sprintf("Added %d recently played tracks to the queue.", output.Added))
}

// HandleNowPlaying handles the /nowplaying command.
func (h *CommandHandlers) HandleNowPlaying(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "nowplaying", err)
	}
	h.updateNotificationChannel(inv)

	output, err := h.playback.NowPlaying(usecases.NowPlayingInput{GuildID: inv.guildID})
	if err != nil {
		return respondError(r, "nowplaying", err)
	}

	track := output.Track
	author := "Now Playing"
	if output.Status == usecases.StatusPaused {
		author = "Paused"
	}

	return respond(r, &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: author},
		Title:  track.Title,
		URL:    track.OriginalURL,
		Color:  track.Source.Color(),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Artist", Value: orUnknown(track.Artist), Inline: true},
			{Name: "Duration", Value: track.FormattedDuration(), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Requested by " + orUnknown(track.RequesterName),
		},
	})
}

// HandleVolume handles the /volume command.
func (h *CommandHandlers) HandleVolume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "volume", err)
	}
	h.updateNotificationChannel(inv)

	volume := -1
	if opt := findOption(i.ApplicationCommandData().Options, "level"); opt != nil {
		volume = int(opt.IntValue())
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	err = h.playback.SetVolume(ctx, usecases.SetVolumeInput{
		GuildID: inv.guildID,
		Volume:  volume,
	})
	if err != nil {
		return respondError(r, "volume", err)
	}

	return respondSuccess(r, fmt.Sprintf("Set the volume to %d%%.", volume))
}

// updateNotificationChannel points notices at the channel of the command (best-effort).
func (h *CommandHandlers) updateNotificationChannel(inv invocation) {
	_ = h.notificationChannel.Set(usecases.SetNotificationChannelInput{
		GuildID:   inv.guildID,
		ChannelID: inv.channelID,
	})
}

// Option helpers.

func findOption(
	options []*discordgo.ApplicationCommandInteractionDataOption,
	name string,
) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range options {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}

// Response helpers.

func respond(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func respondSuccess(r bot.Responder, description string) error {
	return respond(r, successEmbed(description))
}

func respondError(r bot.Responder, command string, err error) error {
	return respond(r, errorEmbed(command, err))
}

func deferResponse(r bot.Responder) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func edit(r bot.Responder, embed *discordgo.MessageEmbed) error {
	embeds := []*discordgo.MessageEmbed{embed}
	return r.Edit(&discordgo.WebhookEdit{Embeds: &embeds})
}

func editSuccess(r bot.Responder, description string) error {
	return edit(r, successEmbed(description))
}

func editError(r bot.Responder, command string, err error) error {
	return edit(r, errorEmbed(command, err))
}

func successEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	}
}

func errorEmbed(command string, err error) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Error",
		Description: errorMessage(command, err),
		Color:       colorError,
	}
}

// errorMessage returns the text shown for a failed command.
func errorMessage(command string, err error) string {
	for _, known := range userFacingErrors {
		if errors.Is(err, known) {
			return sentence(known.Error())
		}
	}
	slog.Error("failed to handle command", "command", command, "error", err)
	return "Something went wrong. Please try again later."
}

func sentence(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

// Formatting helpers.

func trackLink(track usecases.Track) string {
	if track.OriginalURL != "" {
		return fmt.Sprintf("[%s](%s)", escapeLinkText(track.Title), track.OriginalURL)
	}
	return fmt.Sprintf("**%s**", track.Title)
}

func trackLine(track usecases.Track) string {
	return fmt.Sprintf("%s - %s (%s)", trackLink(track), orUnknown(track.Artist), track.FormattedDuration())
}

// writeTrackLine writes a single track line to the string builder.
// Escapes period to prevent Discord markdown list formatting.
func writeTrackLine(sb *strings.Builder, displayIndex int, track usecases.Track) {
	fmt.Fprintf(sb, "%d\\. %s\n", displayIndex, trackLine(track))
}

var linkTextEscaper = strings.NewReplacer("[", "\\[", "]", "\\]")

func escapeLinkText(s string) string {
	return linkTextEscaper.Replace(s)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

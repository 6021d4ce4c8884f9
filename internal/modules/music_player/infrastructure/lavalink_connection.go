package infrastructure

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// voiceConnectionTimeout is the maximum time to wait for voice connection to be established.
const voiceConnectionTimeout = 10 * time.Second

// pendingVoiceConnection tracks the state of a pending voice connection.
type pendingVoiceConnection struct {
	mu             sync.Mutex
	hasVoiceState  bool
	hasVoiceServer bool
	ready          chan struct{}
}

func newPendingVoiceConnection() *pendingVoiceConnection {
	return &pendingVoiceConnection{ready: make(chan struct{})}
}

// onEvent marks an event as received and signals ready if both events are present.
func (p *pendingVoiceConnection) onEvent(isVoiceState bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if isVoiceState {
		p.hasVoiceState = true
	} else {
		p.hasVoiceServer = true
	}

	if p.hasVoiceState && p.hasVoiceServer {
		select {
		case <-p.ready:
			// Already closed
		default:
			close(p.ready)
		}
	}
}

// voiceEventBuffer holds one guild's VoiceStateUpdate and VoiceServerUpdate until
// both have arrived, so Lavalink never sees a partial voice state.
type voiceEventBuffer struct {
	mu sync.Mutex

	hasVoiceState bool
	channelID     *snowflake.ID
	sessionID     string

	hasVoiceServer bool
	token          string
	endpoint       string
}

// setVoiceState stores voice state data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceState(channelID *snowflake.ID, sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceState = true
	b.channelID = channelID
	b.sessionID = sessionID

	return b.hasVoiceServer
}

// setVoiceServer stores voice server data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceServer(token, endpoint string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceServer = true
	b.token = token
	b.endpoint = endpoint

	return b.hasVoiceState
}

// drain returns the buffered data and resets the buffer.
func (b *voiceEventBuffer) drain() (channelID *snowflake.ID, sessionID, token, endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channelID, sessionID, token, endpoint = b.channelID, b.sessionID, b.token, b.endpoint
	*b = voiceEventBuffer{}
	return
}

// guildPlayback is the audio sink state of one guild.
type guildPlayback struct {
	status     domain.PlaybackStatus
	encoded    string // Lavalink encoding of the track being played
	onFinished ports.TrackFinishedFunc
}

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool
}

// voiceGateway is the part of the Discord session used to join and leave voice channels.
type voiceGateway interface {
	ChannelVoiceJoinManual(guildID, channelID string, mute, deaf bool) error
}

// LavalinkConnection plays audio through a Lavalink node and tracks every guild's
// playback status with the domain transition table.
type LavalinkConnection struct {
	link    disgolink.Client
	gateway voiceGateway
	botID   snowflake.ID

	pendingMu sync.Mutex
	pending   map[snowflake.ID]*pendingVoiceConnection

	voiceBufferMu sync.Mutex
	voiceBuffers  map[snowflake.ID]*voiceEventBuffer

	mu     sync.Mutex
	guilds map[snowflake.ID]*guildPlayback
}

// NewLavalinkConnection creates a LavalinkConnection and connects to the node.
func NewLavalinkConnection(
	ctx context.Context,
	session *discordgo.Session,
	config LavalinkConfig,
) (*LavalinkConnection, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse bot ID")
	}

	conn := newLavalinkConnection(session, botID)
	conn.link = disgolink.New(botID,
		disgolink.WithListenerFunc(conn.onTrackStart),
		disgolink.WithListenerFunc(conn.onTrackEnd),
		disgolink.WithListenerFunc(conn.onTrackException),
		disgolink.WithListenerFunc(conn.onTrackStuck),
	)

	node, err := conn.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to add Lavalink node")
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return conn, nil
}

func newLavalinkConnection(gateway voiceGateway, botID snowflake.ID) *LavalinkConnection {
	return &LavalinkConnection{
		gateway:      gateway,
		botID:        botID,
		pending:      make(map[snowflake.ID]*pendingVoiceConnection),
		voiceBuffers: make(map[snowflake.ID]*voiceEventBuffer),
		guilds:       make(map[snowflake.ID]*guildPlayback),
	}
}

// BotID returns the user ID the connection joins voice channels as.
func (c *LavalinkConnection) BotID() snowflake.ID {
	return c.botID
}

// Close closes the Lavalink client and every node connection.
func (c *LavalinkConnection) Close() {
	c.link.Close()
}

// Status returns the current playback status.
func (c *LavalinkConnection) Status(guildID snowflake.ID) domain.PlaybackStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guild(guildID).status
}

// guild returns the guild's playback state, creating it Disconnected. Callers hold c.mu.
func (c *LavalinkConnection) guild(guildID snowflake.ID) *guildPlayback {
	g, ok := c.guilds[guildID]
	if !ok {
		g = &guildPlayback{status: domain.StatusDisconnected}
		c.guilds[guildID] = g
	}
	return g
}

// Connect joins a voice channel, or moves to it when already connected.
// It waits for both VoiceStateUpdate and VoiceServerUpdate events before returning.
func (c *LavalinkConnection) Connect(ctx context.Context, guildID, channelID snowflake.ID) error {
	pending := newPendingVoiceConnection()

	c.pendingMu.Lock()
	c.pending[guildID] = pending
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, guildID)
		c.pendingMu.Unlock()
	}()

	err := c.gateway.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "failed to join voice channel"), ports.ErrConnectionFailed)
	}

	timer := time.NewTimer(voiceConnectionTimeout)
	defer timer.Stop()

	select {
	case <-pending.ready:
	case <-ctx.Done():
		return errors.Mark(
			errors.Wrap(ctx.Err(), "context cancelled while waiting for voice connection"),
			ports.ErrConnectionFailed,
		)
	case <-timer.C:
		return errors.Wrap(ports.ErrConnectionFailed, "timeout waiting for voice connection")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	g := c.guild(guildID)
	g.status, _ = g.status.Transition(domain.CommandConnect)
	return nil
}

// Play loads the media on the node and starts it.
func (c *LavalinkConnection) Play(
	ctx context.Context,
	guildID snowflake.ID,
	media *ports.ResolvedMedia,
	onFinished ports.TrackFinishedFunc,
) error {
	if err := c.checkPlayable(guildID); err != nil {
		return err
	}

	track, err := c.loadTrack(ctx, media.Identifier())
	if err != nil {
		return err
	}

	// Claim the sink before the update so a fast end event finds the callback.
	c.mu.Lock()
	g := c.guild(guildID)
	next, err := g.status.Transition(domain.CommandPlay)
	if err != nil {
		c.mu.Unlock()
		return playTransitionError(g.status, err)
	}
	g.status = next
	g.encoded = track.Encoded
	g.onFinished = onFinished
	c.mu.Unlock()

	player := c.link.Player(guildID)
	if err := player.Update(ctx, lavalink.WithEncodedTrack(track.Encoded)); err != nil {
		c.mu.Lock()
		if g.encoded == track.Encoded && g.status == domain.StatusPlaying {
			g.status, _ = g.status.Transition(domain.CommandFinish)
			g.encoded = ""
			g.onFinished = nil
		}
		c.mu.Unlock()
		return errors.Wrap(err, "failed to play track")
	}

	return nil
}

func (c *LavalinkConnection) checkPlayable(guildID snowflake.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := c.guild(guildID).status
	if _, err := status.Transition(domain.CommandPlay); err != nil {
		return playTransitionError(status, err)
	}
	return nil
}

func playTransitionError(status domain.PlaybackStatus, err error) error {
	if status == domain.StatusDisconnected {
		return errors.Mark(err, ports.ErrNotConnected)
	}
	return errors.Mark(err, ports.ErrAlreadyPlaying)
}

// loadTrack resolves an identifier (stream URL or local file) to a Lavalink track.
func (c *LavalinkConnection) loadTrack(ctx context.Context, identifier string) (lavalink.Track, error) {
	node := c.link.BestNode()
	if node == nil {
		return lavalink.Track{}, errors.New("no available Lavalink node")
	}

	result, err := node.LoadTracks(ctx, identifier)
	if err != nil {
		return lavalink.Track{}, errors.Wrap(err, "failed to load track")
	}

	switch data := result.Data.(type) {
	case lavalink.Track:
		return data, nil
	case lavalink.Search:
		if len(data) > 0 {
			return data[0], nil
		}
	case lavalink.Playlist:
		if len(data.Tracks) > 0 {
			return data.Tracks[0], nil
		}
	case lavalink.Exception:
		return lavalink.Track{}, errors.Newf("lavalink failed to load track: %s", data.Message)
	}
	return lavalink.Track{}, errors.Newf("lavalink found no track for %q", identifier)
}

// Pause pauses a playing track.
func (c *LavalinkConnection) Pause(ctx context.Context, guildID snowflake.ID) error {
	return c.setPaused(ctx, guildID, domain.CommandPause, true)
}

// Resume resumes a paused track.
func (c *LavalinkConnection) Resume(ctx context.Context, guildID snowflake.ID) error {
	return c.setPaused(ctx, guildID, domain.CommandResume, false)
}

func (c *LavalinkConnection) setPaused(
	ctx context.Context,
	guildID snowflake.ID,
	cmd domain.PlaybackCommand,
	paused bool,
) error {
	c.mu.Lock()
	_, err := c.guild(guildID).status.Transition(cmd)
	c.mu.Unlock()
	if err != nil {
		return errors.Mark(err, ports.ErrInvalidState)
	}

	if err := c.link.Player(guildID).Update(ctx, lavalink.WithPaused(paused)); err != nil {
		return errors.Wrapf(err, "failed to %s playback", cmd)
	}

	// The track may have ended while the update was in flight.
	c.mu.Lock()
	defer c.mu.Unlock()
	g := c.guild(guildID)
	if next, err := g.status.Transition(cmd); err == nil {
		g.status = next
	}
	return nil
}

// Stop ends the current track. The end event fires the callback with TrackEndStopped.
func (c *LavalinkConnection) Stop(ctx context.Context, guildID snowflake.ID) error {
	c.mu.Lock()
	status := c.guild(guildID).status
	c.mu.Unlock()

	switch status {
	case domain.StatusDisconnected:
		return ports.ErrNotConnected
	case domain.StatusIdle:
		return nil
	}

	if err := c.link.Player(guildID).Update(ctx, lavalink.WithNullTrack()); err != nil {
		return errors.Wrap(err, "failed to stop playback")
	}
	return nil
}

// Disconnect leaves the voice channel. The status is Disconnected before the
// pending callback fires with TrackEndCleanup.
func (c *LavalinkConnection) Disconnect(ctx context.Context, guildID snowflake.ID) error {
	c.mu.Lock()
	g := c.guild(guildID)
	g.status, _ = g.status.Transition(domain.CommandDisconnect)
	onFinished := g.onFinished
	g.onFinished = nil
	g.encoded = ""
	c.mu.Unlock()

	var errs []error
	if player := c.link.ExistingPlayer(guildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to destroy player"))
		}
	}
	if err := c.gateway.ChannelVoiceJoinManual(guildID.String(), "", false, false); err != nil {
		errs = append(errs, errors.Wrap(err, "failed to leave voice channel"))
	}

	if onFinished != nil {
		onFinished(domain.TrackEndCleanup)
	}

	return errors.Join(errs...)
}

// SetVolume sets the playback volume in percent.
func (c *LavalinkConnection) SetVolume(ctx context.Context, guildID snowflake.ID, volume int) error {
	if c.Status(guildID) == domain.StatusDisconnected {
		return ports.ErrNotConnected
	}
	if err := c.link.Player(guildID).Update(ctx, lavalink.WithVolume(volume)); err != nil {
		return errors.Wrap(err, "failed to set volume")
	}
	return nil
}

// finish ends the guild's current track if encoded still identifies it and fires
// its callback. Stale events for earlier tracks are ignored.
func (c *LavalinkConnection) finish(guildID snowflake.ID, encoded string, reason domain.TrackEndReason) {
	c.mu.Lock()
	g := c.guild(guildID)
	if g.onFinished == nil || g.encoded != encoded {
		c.mu.Unlock()
		slog.Debug("ignoring end of stale track", "guild", guildID, "reason", reason)
		return
	}
	onFinished := g.onFinished
	g.onFinished = nil
	g.encoded = ""
	if next, err := g.status.Transition(domain.CommandFinish); err == nil {
		g.status = next
	}
	c.mu.Unlock()

	onFinished(reason)
}

// OnVoiceServerUpdate handles Discord voice server updates.
// This must be called from the Discord event handler.
func (c *LavalinkConnection) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	buffer := c.voiceBuffer(guildID)
	if buffer.setVoiceServer(event.Token, event.Endpoint) {
		c.forwardVoiceEvents(guildID, buffer)
	}

	c.signalPending(guildID, false)
}

// OnVoiceStateUpdate handles Discord voice state updates of the bot itself.
// This must be called from the Discord event handler.
func (c *LavalinkConnection) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	if event.UserID != c.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	// An empty channel means the bot left; no VoiceServerUpdate follows.
	if event.ChannelID == "" {
		c.link.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		c.clearVoiceBuffer(guildID)
		return
	}

	channelID, err := snowflake.Parse(event.ChannelID)
	if err != nil {
		slog.Error("failed to parse channel ID in voice state update", "error", err)
		return
	}

	buffer := c.voiceBuffer(guildID)
	if buffer.setVoiceState(&channelID, event.SessionID) {
		c.forwardVoiceEvents(guildID, buffer)
	}

	c.signalPending(guildID, true)
}

func (c *LavalinkConnection) signalPending(guildID snowflake.ID, isVoiceState bool) {
	c.pendingMu.Lock()
	pending := c.pending[guildID]
	c.pendingMu.Unlock()

	if pending != nil {
		pending.onEvent(isVoiceState)
	}
}

func (c *LavalinkConnection) voiceBuffer(guildID snowflake.ID) *voiceEventBuffer {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()

	buffer, ok := c.voiceBuffers[guildID]
	if !ok {
		buffer = &voiceEventBuffer{}
		c.voiceBuffers[guildID] = buffer
	}
	return buffer
}

func (c *LavalinkConnection) clearVoiceBuffer(guildID snowflake.ID) {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()
	delete(c.voiceBuffers, guildID)
}

func (c *LavalinkConnection) forwardVoiceEvents(guildID snowflake.ID, buffer *voiceEventBuffer) {
	channelID, sessionID, token, endpoint := buffer.drain()

	slog.Debug("forwarding buffered voice events to Lavalink",
		"guild", guildID,
		"channel", channelID,
		"hasSessionID", sessionID != "",
	)

	c.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	c.link.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)
}

func (c *LavalinkConnection) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
}

func (c *LavalinkConnection) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)
	c.finish(player.GuildID(), event.Track.Encoded, convertEndReason(event.Reason))
}

// onTrackException only logs: Lavalink follows it with a load_failed end event.
func (c *LavalinkConnection) onTrackException(
	player disgolink.Player,
	event lavalink.TrackExceptionEvent,
) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)
}

// onTrackStuck stops the stuck track, then completes it as failed. The end event
// of the stop arrives after this listener returns and is ignored as stale.
func (c *LavalinkConnection) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := player.Update(ctx, lavalink.WithNullTrack()); err != nil {
		slog.Warn("failed to stop stuck track", "guild", player.GuildID(), "error", err)
	}

	c.finish(player.GuildID(), event.Track.Encoded, domain.TrackEndLoadFailed)
}

func convertEndReason(reason lavalink.TrackEndReason) domain.TrackEndReason {
	switch reason {
	case lavalink.TrackEndReasonFinished:
		return domain.TrackEndFinished
	case lavalink.TrackEndReasonLoadFailed:
		return domain.TrackEndLoadFailed
	case lavalink.TrackEndReasonStopped:
		return domain.TrackEndStopped
	case lavalink.TrackEndReasonReplaced:
		return domain.TrackEndReplaced
	case lavalink.TrackEndReasonCleanup:
		return domain.TrackEndCleanup
	default:
		return domain.TrackEndStopped
	}
}

// Ensure LavalinkConnection implements ports.PlaybackConnection.
var _ ports.PlaybackConnection = (*LavalinkConnection)(nil)

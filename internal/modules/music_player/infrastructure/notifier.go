package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
	"golang.org/x/time/rate"
)

// Embed colors.
const (
	colorBlue   = 0x3498DB
	colorRed    = 0xE74C3C
	colorYellow = 0xF1C40F
)

// Default notification throttling: Discord allows roughly five messages per
// five seconds per channel.
const (
	DefaultNotifyRate  = 1.0
	DefaultNotifyBurst = 5
)

// messageSender is the part of the Discord session used to post and delete messages.
type messageSender interface {
	ChannelMessageSendEmbed(
		channelID string,
		embed *discordgo.MessageEmbed,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Notifier sends notifications to Discord channels. Sends and deletes share one
// rate limiter and wait for a token, so bursts of track changes are smoothed out
// instead of hitting Discord's rate limits.
type Notifier struct {
	sender     messageSender
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewNotifier creates a new Notifier allowing perSecond messages with the given burst.
func NewNotifier(sender messageSender, perSecond float64, burst int) *Notifier {
	if perSecond <= 0 {
		perSecond = DefaultNotifyRate
	}
	if burst <= 0 {
		burst = DefaultNotifyBurst
	}
	return &Notifier{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// SendNotice posts a short notice embed.
func (n *Notifier) SendNotice(ctx context.Context, channelID snowflake.ID, notice ports.Notice) error {
	embed := &discordgo.MessageEmbed{
		Title:       notice.Title,
		Description: notice.Message,
		Color:       noticeColor(notice.Kind),
	}
	_, err := n.send(ctx, channelID, embed)
	return err
}

func noticeColor(kind ports.NoticeKind) int {
	switch kind {
	case ports.NoticeError:
		return colorRed
	case ports.NoticeInactivity:
		return colorYellow
	default:
		return colorBlue
	}
}

// SendNowPlaying sends a "Now Playing" embed to the channel and returns the message ID.
func (n *Notifier) SendNowPlaying(
	ctx context.Context,
	channelID snowflake.ID,
	info *ports.NowPlayingInfo,
) (snowflake.ID, error) {
	source := domain.ParseTrackSource(info.SourceName)

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name: "Now Playing",
		},
		Title: info.Title,
		URL:   info.URI,
		Color: source.Color(),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Artist",
				Value:  orUnknown(info.Artist),
				Inline: true,
			},
			{
				Name:   "Duration",
				Value:  info.Duration,
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Requested by %s", orUnknown(info.RequesterName)),
		},
	}
	if !info.EnqueuedAt.IsZero() {
		embed.Timestamp = info.EnqueuedAt.UTC().Format(time.RFC3339)
	}

	if thumbnailURL := n.bestThumbnail(ctx, source, info.URI, info.ArtworkURL); thumbnailURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{
			URL: thumbnailURL,
		}
	}

	msg, err := n.send(ctx, channelID, embed)
	if err != nil {
		return 0, err
	}
	messageID, err := snowflake.Parse(msg.ID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to parse message ID")
	}
	return messageID, nil
}

// DeleteMessage deletes a message from the channel.
func (n *Notifier) DeleteMessage(ctx context.Context, channelID snowflake.ID, messageID snowflake.ID) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := n.sender.ChannelMessageDelete(channelID.String(), messageID.String()); err != nil {
		return errors.Wrap(err, "failed to delete message")
	}
	return nil
}

func (n *Notifier) send(
	ctx context.Context,
	channelID snowflake.ID,
	embed *discordgo.MessageEmbed,
) (*discordgo.Message, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	msg, err := n.sender.ChannelMessageSendEmbed(channelID.String(), embed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send message")
	}
	return msg, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// bestThumbnail prefers the highest quality YouTube thumbnail available and
// falls back to the track's artwork.
func (n *Notifier) bestThumbnail(
	ctx context.Context,
	source domain.TrackSource,
	uri string,
	fallbackURL string,
) string {
	if source != domain.TrackSourceYouTube {
		return fallbackURL
	}
	videoID := youtubeVideoID(uri)
	if videoID == "" {
		return fallbackURL
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, quality := range []string{"maxresdefault", "sddefault", "hqdefault"} {
		thumbnailURL := fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", videoID, quality)
		if n.urlExists(ctx, thumbnailURL) {
			return thumbnailURL
		}
	}

	return fallbackURL
}

// youtubeVideoID extracts the video ID from watch, youtu.be and shorts URLs.
func youtubeVideoID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	switch {
	case host == "youtu.be":
		return strings.Trim(u.Path, "/")
	case host == "youtube.com" || host == "music.youtube.com" || host == "m.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return id
		}
		if id, ok := strings.CutPrefix(u.Path, "/shorts/"); ok {
			return strings.Trim(id, "/")
		}
	}
	return ""
}

// urlExists checks if a URL returns a successful response using a HEAD request.
func (n *Notifier) urlExists(ctx context.Context, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// Ensure Notifier implements ports.ChatNotifier.
var _ ports.ChatNotifier = (*Notifier)(nil)

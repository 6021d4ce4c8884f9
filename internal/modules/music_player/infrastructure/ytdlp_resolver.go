package infrastructure

import (
	"context"
	"log/slog"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultMaxConcurrentExtractions bounds the yt-dlp processes running at once.
	DefaultMaxConcurrentExtractions = 4

	audioFormat = "bestaudio/best"

	// Fields are tab separated; yt-dlp prints NA for missing ones.
	entryTemplate = "%(id)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(webpage_url)s\t%(url)s\t%(thumbnail)s\t%(playlist_title)s"
	mediaTemplate = "%(title)s\t%(uploader)s\t%(duration)s\t%(url)s"
	fileTemplate  = "after_move:%(title)s\t%(uploader)s\t%(duration)s\t%(filepath)s"

	missingField = "NA"
)

// YtdlpConfig configures a YtdlpResolver.
type YtdlpConfig struct {
	// CacheDir receives downloaded audio when Download is set.
	CacheDir string
	Download bool
	// MaxConcurrent bounds concurrent extractions; non-positive selects the default.
	MaxConcurrent int64
}

// runFunc executes a prepared yt-dlp command and returns its stdout.
type runFunc func(ctx context.Context, cmd *ytdlp.Command, target string) (string, error)

// YtdlpResolver looks up tracks and resolves them to playable media with yt-dlp.
type YtdlpResolver struct {
	config YtdlpConfig
	slots  *semaphore.Weighted
	run    runFunc
}

// NewYtdlpResolver creates a new YtdlpResolver. yt-dlp must be on PATH.
func NewYtdlpResolver(config YtdlpConfig) *YtdlpResolver {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultMaxConcurrentExtractions
	}
	return &YtdlpResolver{
		config: config,
		slots:  semaphore.NewWeighted(config.MaxConcurrent),
		run:    runYtdlp,
	}
}

func runYtdlp(ctx context.Context, cmd *ytdlp.Command, target string) (string, error) {
	result, err := cmd.Run(ctx, target)
	if err != nil {
		if result != nil && result.Stderr != "" {
			return "", errors.Wrapf(err, "yt-dlp: %s", strings.TrimSpace(result.Stderr))
		}
		return "", err
	}
	return result.Stdout, nil
}

func newCommand() *ytdlp.Command {
	return ytdlp.New().
		NoWarnings().
		IgnoreConfig()
}

// exec runs cmd once a slot is free.
func (r *YtdlpResolver) exec(ctx context.Context, cmd *ytdlp.Command, target string) (string, error) {
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer r.slots.Release(1)

	start := time.Now()
	stdout, err := r.run(ctx, cmd, target)
	slog.Debug("yt-dlp finished", "target", target, "elapsed", time.Since(start), "error", err)
	return stdout, err
}

// LoadTracks resolves a URL (video or playlist) or a search term to track metadata.
func (r *YtdlpResolver) LoadTracks(ctx context.Context, query string) (*ports.LoadResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &ports.LoadResult{Type: ports.LoadTypeEmpty}, nil
	}

	if !isURL(query) {
		tracks, err := r.SearchTracks(ctx, query, 1)
		if err != nil {
			return nil, err
		}
		if len(tracks) == 0 {
			return &ports.LoadResult{Type: ports.LoadTypeEmpty}, nil
		}
		return &ports.LoadResult{Type: ports.LoadTypeSearch, Tracks: tracks}, nil
	}

	cmd := newCommand().
		FlatPlaylist().
		Print(entryTemplate)

	stdout, err := r.exec(ctx, cmd, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", query)
	}

	tracks, playlistName := parseEntries(stdout)
	switch {
	case len(tracks) == 0:
		return &ports.LoadResult{Type: ports.LoadTypeEmpty}, nil
	case playlistName != "" || len(tracks) > 1:
		return &ports.LoadResult{
			Type:         ports.LoadTypePlaylist,
			Tracks:       tracks,
			PlaylistName: playlistName,
		}, nil
	default:
		return &ports.LoadResult{Type: ports.LoadTypeTrack, Tracks: tracks}, nil
	}
}

// SearchTracks returns up to limit YouTube search results.
func (r *YtdlpResolver) SearchTracks(ctx context.Context, query string, limit int) ([]*ports.TrackInfo, error) {
	if limit <= 0 {
		limit = 1
	}

	cmd := newCommand().
		FlatPlaylist().
		Print(entryTemplate)

	stdout, err := r.exec(ctx, cmd, "ytsearch"+strconv.Itoa(limit)+":"+query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search %q", query)
	}

	tracks, _ := parseEntries(stdout)
	return tracks, nil
}

// Resolve makes a queued track playable: a downloaded file in the cache directory
// or a direct stream URL.
func (r *YtdlpResolver) Resolve(ctx context.Context, track domain.Track) (*ports.ResolvedMedia, error) {
	target := track.OriginalURL
	if target == "" || domain.SourceFromURL(target) == domain.TrackSourceSpotify {
		target = "ytsearch1:" + strings.TrimSpace(track.Title+" "+track.Artist)
	}

	var media *ports.ResolvedMedia
	var err error
	if r.config.Download {
		media, err = r.download(ctx, target)
	} else {
		media, err = r.stream(ctx, target)
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to resolve %q", track.Title), ports.ErrResolution)
	}
	return media, nil
}

func (r *YtdlpResolver) stream(ctx context.Context, target string) (*ports.ResolvedMedia, error) {
	cmd := newCommand().
		Format(audioFormat).
		NoPlaylist().
		Print(mediaTemplate)

	stdout, err := r.exec(ctx, cmd, target)
	if err != nil {
		return nil, err
	}

	fields, ok := firstLine(stdout, 4)
	if !ok || fields[3] == "" {
		return nil, errors.New("yt-dlp returned no stream URL")
	}
	return &ports.ResolvedMedia{
		Title:     fields[0],
		Artist:    fields[1],
		Duration:  parseDuration(fields[2]),
		StreamURL: fields[3],
	}, nil
}

func (r *YtdlpResolver) download(ctx context.Context, target string) (*ports.ResolvedMedia, error) {
	cmd := newCommand().
		Format(audioFormat).
		NoPlaylist().
		NoSimulate().
		RestrictFilenames().
		ForceOverwrites().
		Output(downloadOutput(r.config.CacheDir)).
		Print(fileTemplate)

	stdout, err := r.exec(ctx, cmd, target)
	if err != nil {
		return nil, err
	}

	fields, ok := firstLine(stdout, 4)
	if !ok || fields[3] == "" {
		return nil, errors.New("yt-dlp reported no downloaded file")
	}
	return &ports.ResolvedMedia{
		Title:         fields[0],
		Artist:        fields[1],
		Duration:      parseDuration(fields[2]),
		LocalFilePath: fields[3],
	}, nil
}

// downloadOutput returns a yt-dlp output template unique to one resolution.
// Sessions downloading the same video each own a separate file.
func downloadOutput(cacheDir string) string {
	return filepath.Join(cacheDir, "%(extractor)s-%(id)s-"+uuid.NewString()+".%(ext)s")
}

// parseEntries parses entryTemplate lines. Malformed lines are skipped.
func parseEntries(stdout string) (tracks []*ports.TrackInfo, playlistName string) {
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		fields, ok := splitFields(line, 8)
		if !ok {
			continue
		}

		uri := fields[4]
		if uri == "" {
			uri = fields[5]
		}
		if uri == "" && fields[0] != "" {
			uri = "https://www.youtube.com/watch?v=" + fields[0]
		}
		if playlistName == "" {
			playlistName = fields[7]
		}

		tracks = append(tracks, &ports.TrackInfo{
			Identifier: fields[0],
			Title:      fields[1],
			Artist:     fields[2],
			Duration:   parseDuration(fields[3]),
			URI:        uri,
			ArtworkURL: fields[6],
			SourceName: string(domain.TrackSourceYouTube),
		})
	}
	return tracks, playlistName
}

func firstLine(stdout string, n int) ([]string, bool) {
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		if fields, ok := splitFields(line, n); ok {
			return fields, true
		}
	}
	return nil, false
}

// splitFields splits a tab separated line into exactly n fields, mapping NA to "".
func splitFields(line string, n int) ([]string, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) != n {
		return nil, false
	}
	for i, f := range fields {
		if f == missingField {
			fields[i] = ""
		}
	}
	return fields, true
}

// parseDuration parses a duration in (fractional) seconds; unknown yields zero.
func parseDuration(s string) time.Duration {
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func isURL(query string) bool {
	u, err := url.Parse(query)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Ensure YtdlpResolver implements the resolver ports.
var (
	_ ports.TrackResolver = (*YtdlpResolver)(nil)
	_ ports.MediaResolver = (*YtdlpResolver)(nil)
)

package infrastructure

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// spotifyPageSize is the largest page the Spotify API serves for playlist items.
const spotifyPageSize = 100

// spotifyAPI is the part of the Spotify Web API client used for lookups.
type spotifyAPI interface {
	GetTrack(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullTrack, error)
	GetPlaylist(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullPlaylist, error)
	GetPlaylistItems(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.PlaylistItemPage, error)
	GetAlbum(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullAlbum, error)
	GetAlbumTracks(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.SimpleTrackPage, error)
}

// SpotifyConfig holds app credentials for the client credentials flow.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

// SpotifyResolver expands Spotify links into track metadata and delegates every
// other query to the next resolver. Spotify tracks are played by searching their
// title and artist on YouTube at resolution time.
type SpotifyResolver struct {
	api           spotifyAPI
	next          ports.TrackResolver
	playlistLimit int
}

// NewSpotifyResolver creates a SpotifyResolver authenticated as an application.
func NewSpotifyResolver(
	ctx context.Context,
	config SpotifyConfig,
	next ports.TrackResolver,
	playlistLimit int,
) *SpotifyResolver {
	credentials := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return newSpotifyResolver(spotify.New(credentials.Client(ctx)), next, playlistLimit)
}

func newSpotifyResolver(api spotifyAPI, next ports.TrackResolver, playlistLimit int) *SpotifyResolver {
	return &SpotifyResolver{api: api, next: next, playlistLimit: playlistLimit}
}

// LoadTracks resolves Spotify track, playlist and album links; anything else
// goes to the next resolver.
func (r *SpotifyResolver) LoadTracks(ctx context.Context, query string) (*ports.LoadResult, error) {
	kind, id, ok := parseSpotifyLink(query)
	if !ok {
		return r.next.LoadTracks(ctx, query)
	}

	switch kind {
	case "track":
		track, err := r.api.GetTrack(ctx, id)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get spotify track")
		}
		return &ports.LoadResult{
			Type:   ports.LoadTypeTrack,
			Tracks: []*ports.TrackInfo{spotifyTrackInfo(&track.SimpleTrack, albumArtwork(track.Album.Images))},
		}, nil
	case "playlist":
		return r.loadPlaylist(ctx, id)
	case "album":
		return r.loadAlbum(ctx, id)
	default:
		return &ports.LoadResult{Type: ports.LoadTypeEmpty}, nil
	}
}

// SearchTracks delegates to the next resolver.
func (r *SpotifyResolver) SearchTracks(ctx context.Context, query string, limit int) ([]*ports.TrackInfo, error) {
	return r.next.SearchTracks(ctx, query, limit)
}

func (r *SpotifyResolver) loadPlaylist(ctx context.Context, id spotify.ID) (*ports.LoadResult, error) {
	playlist, err := r.api.GetPlaylist(ctx, id, spotify.Fields("name"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get spotify playlist")
	}

	var tracks []*ports.TrackInfo
	for offset := 0; !r.full(tracks); offset += spotifyPageSize {
		page, err := r.api.GetPlaylistItems(ctx, id, spotify.Limit(spotifyPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, errors.Wrap(err, "failed to get spotify playlist items")
		}
		for _, item := range page.Items {
			// Episodes and removed tracks carry no track
			if item.Track.Track == nil || item.Track.Track.ID == "" {
				continue
			}
			full := item.Track.Track
			tracks = append(tracks, spotifyTrackInfo(&full.SimpleTrack, albumArtwork(full.Album.Images)))
		}
		if len(page.Items) < spotifyPageSize {
			break
		}
	}

	return playlistResult(playlist.Name, r.bound(tracks)), nil
}

func (r *SpotifyResolver) loadAlbum(ctx context.Context, id spotify.ID) (*ports.LoadResult, error) {
	album, err := r.api.GetAlbum(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get spotify album")
	}
	artwork := albumArtwork(album.Images)

	var tracks []*ports.TrackInfo
	for offset := 0; !r.full(tracks); offset += spotifyPageSize {
		page, err := r.api.GetAlbumTracks(ctx, id, spotify.Limit(spotifyPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, errors.Wrap(err, "failed to get spotify album tracks")
		}
		for i := range page.Tracks {
			tracks = append(tracks, spotifyTrackInfo(&page.Tracks[i], artwork))
		}
		if len(page.Tracks) < spotifyPageSize {
			break
		}
	}

	return playlistResult(album.Name, r.bound(tracks)), nil
}

func (r *SpotifyResolver) full(tracks []*ports.TrackInfo) bool {
	return r.playlistLimit > 0 && len(tracks) >= r.playlistLimit
}

func (r *SpotifyResolver) bound(tracks []*ports.TrackInfo) []*ports.TrackInfo {
	if r.full(tracks) {
		return tracks[:r.playlistLimit]
	}
	return tracks
}

func playlistResult(name string, tracks []*ports.TrackInfo) *ports.LoadResult {
	if len(tracks) == 0 {
		return &ports.LoadResult{Type: ports.LoadTypeEmpty}
	}
	return &ports.LoadResult{Type: ports.LoadTypePlaylist, Tracks: tracks, PlaylistName: name}
}

func spotifyTrackInfo(track *spotify.SimpleTrack, artworkURL string) *ports.TrackInfo {
	artists := make([]string, len(track.Artists))
	for i, a := range track.Artists {
		artists[i] = a.Name
	}

	uri := track.ExternalURLs["spotify"]
	if uri == "" {
		uri = "https://open.spotify.com/track/" + track.ID.String()
	}

	return &ports.TrackInfo{
		Identifier: track.ID.String(),
		Title:      track.Name,
		Artist:     strings.Join(artists, ", "),
		Duration:   time.Duration(track.Duration) * time.Millisecond,
		URI:        uri,
		ArtworkURL: artworkURL,
		SourceName: string(domain.TrackSourceSpotify),
	}
}

func albumArtwork(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

// parseSpotifyLink extracts the kind and ID from open.spotify.com URLs
// (including /intl-xx/ prefixes) and spotify: URIs.
func parseSpotifyLink(raw string) (kind string, id spotify.ID, ok bool) {
	raw = strings.TrimSpace(raw)

	if rest, found := strings.CutPrefix(raw, "spotify:"); found {
		parts := strings.Split(rest, ":")
		if len(parts) != 2 || parts[1] == "" {
			return "", "", false
		}
		return parts[0], spotify.ID(parts[1]), true
	}

	u, err := url.Parse(raw)
	if err != nil || u.Hostname() != "open.spotify.com" {
		return "", "", false
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
		segments = segments[1:]
	}
	if len(segments) < 2 || segments[1] == "" {
		return "", "", false
	}
	return segments[0], spotify.ID(segments[1]), true
}

// Ensure SpotifyResolver implements ports.TrackResolver.
var _ ports.TrackResolver = (*SpotifyResolver)(nil)

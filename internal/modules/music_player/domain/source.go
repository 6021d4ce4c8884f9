package domain

import (
	"net/url"
	"strings"
)

// TrackSource represents the origin platform of a track.
type TrackSource string

const (
	TrackSourceYouTube TrackSource = "youtube"
	TrackSourceSpotify TrackSource = "spotify"
)

// ParseTrackSource converts a source name string to a TrackSource.
// Anything that is not Spotify is played through the YouTube extractor.
func ParseTrackSource(name string) TrackSource {
	switch strings.ToLower(name) {
	case "spotify":
		return TrackSourceSpotify
	default:
		return TrackSourceYouTube
	}
}

// SourceFromURL guesses the platform of a URL by its host.
func SourceFromURL(raw string) TrackSource {
	u, err := url.Parse(raw)
	if err != nil {
		return TrackSourceYouTube
	}
	if strings.HasSuffix(u.Hostname(), "spotify.com") {
		return TrackSourceSpotify
	}
	return TrackSourceYouTube
}

// Color returns the embed color for the source.
func (s TrackSource) Color() int {
	switch s {
	case TrackSourceSpotify:
		return 0x1DB954
	default:
		return 0xFF0000
	}
}

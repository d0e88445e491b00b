package youtube

import (
	"net/url"
	"regexp"
	"strings"

	kkdai "github.com/kkdai/youtube/v2"
)

var (
	youTubeURLPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.|music\.)?(?:youtube\.com|youtu\.be)/\S+`)
	playlistIDPattern = regexp.MustCompile(`^(?:PL|OL|UU|FL|LL|RD)[A-Za-z0-9_-]{10,}$`)
	channelIDPattern  = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)
	videoIDPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func isYouTubeURL(s string) bool {
	return youTubeURLPattern.MatchString(s)
}

// videoRef returns the video ID of a YouTube video link or a bare video ID.
func videoRef(s string) (string, bool) {
	if videoIDPattern.MatchString(s) {
		return s, true
	}
	if !isYouTubeURL(s) {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	if u.Path == "/playlist" {
		return "", false
	}
	id, err := kkdai.ExtractVideoID(s)
	if err != nil {
		return "", false
	}
	return id, true
}

// playlistRef returns the playlist ID of a playlist link or a bare playlist ID.
func playlistRef(s string) (string, bool) {
	if isURL(s) {
		if !isYouTubeURL(s) {
			return "", false
		}
		u, err := url.Parse(s)
		if err != nil {
			return "", false
		}
		list := u.Query().Get("list")
		return list, list != ""
	}
	if playlistIDPattern.MatchString(s) {
		return s, true
	}
	return "", false
}

// channelRef splits a channel reference into either a channel ID or a
// handle. Handles are returned with a leading "@".
func channelRef(s string) (id, handle string) {
	s = strings.TrimSpace(s)
	if isURL(s) {
		u, err := url.Parse(s)
		if err != nil {
			return "", ""
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		switch {
		case len(parts) >= 2 && parts[0] == "channel":
			return parts[1], ""
		case len(parts) >= 1 && strings.HasPrefix(parts[0], "@"):
			return "", parts[0]
		case len(parts) >= 2 && (parts[0] == "c" || parts[0] == "user"):
			return "", "@" + parts[1]
		}
		return "", ""
	}
	if channelIDPattern.MatchString(s) {
		return s, ""
	}
	if s == "" {
		return "", ""
	}
	return "", "@" + strings.TrimPrefix(s, "@")
}

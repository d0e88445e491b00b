// Package youtube resolves tracks and playlists on YouTube.
//
// Video links, public playlists and stream URLs go through kkdai/youtube.
// Free text search and channel playlists use the Data API when a key is
// configured; without a key search falls back to the public results page.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	kkdai "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/keshon/jukebox/internal/metrics"
	"github.com/keshon/jukebox/internal/music/sources"
	"github.com/keshon/jukebox/pkg/retrylimit"
)

const SourceName = "youtube"

const (
	searchResults = 5
	pageSize      = 50
)

var (
	ErrNoAPIKey       = errors.New("youtube data API key is not configured")
	ErrUnsupportedURL = errors.New("unsupported link")
	ErrNoAudio        = errors.New("no audio formats available")
)

// videoClient is the part of the kkdai client the provider uses.
type videoClient interface {
	GetVideoContext(ctx context.Context, id string) (*kkdai.Video, error)
	GetPlaylistContext(ctx context.Context, id string) (*kkdai.Playlist, error)
	GetStreamURLContext(ctx context.Context, video *kkdai.Video, format *kkdai.Format) (string, error)
}

type Options struct {
	APIKey          string
	MaxPlaylistSize int

	// Endpoint and HTTPClient override the Data API transport.
	Endpoint   string
	HTTPClient *http.Client

	// SearchBaseURL is where the keyless search fallback looks.
	SearchBaseURL string

	Limiter *retrylimit.AdaptiveLimiter
	Retry   retrylimit.Config
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

type Provider struct {
	api     *ytapi.Service
	videos  videoClient
	scrape  *scraper
	limiter *retrylimit.AdaptiveLimiter
	retry   retrylimit.Config
	max     int
	metrics *metrics.Metrics
	log     zerolog.Logger
}

var _ sources.Provider = (*Provider)(nil)

func New(ctx context.Context, opts Options) (*Provider, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	p := &Provider{
		videos:  &kkdai.Client{HTTPClient: httpClient},
		limiter: opts.Limiter,
		retry:   opts.Retry,
		max:     opts.MaxPlaylistSize,
		metrics: opts.Metrics,
		log:     opts.Logger,
		scrape: &scraper{
			baseURL: "https://www.youtube.com",
			client:  httpClient,
		},
	}
	if opts.SearchBaseURL != "" {
		p.scrape.baseURL = strings.TrimRight(opts.SearchBaseURL, "/")
	}
	if p.max <= 0 {
		p.max = 200
	}
	if p.retry.MaxAttempts == 0 {
		p.retry = retrylimit.DefaultConfig()
	}
	if p.limiter == nil {
		p.limiter = retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5)
	}
	p.retry.OnRetry = func(attempt int, err error) {
		p.log.Warn().Err(err).Int("attempt", attempt).Msg("Data API call failed, retrying")
	}

	if opts.APIKey != "" {
		clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
		if opts.Endpoint != "" {
			clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
		}
		if opts.HTTPClient != nil {
			clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
		}
		svc, err := ytapi.NewService(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("create data API client: %w", err)
		}
		p.api = svc
	}
	return p, nil
}

// Search resolves a video link directly and runs anything else as a text
// query.
func (p *Provider) Search(ctx context.Context, query string) (tracks []sources.Track, err error) {
	defer func() { p.metrics.ObserveProvider("search", err) }()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, sources.ErrNotFound
	}

	if id, ok := videoRef(query); ok {
		t, err := p.video(ctx, id)
		if err != nil {
			return nil, err
		}
		return []sources.Track{t}, nil
	}
	if isURL(query) {
		return nil, ErrUnsupportedURL
	}

	if p.api == nil {
		id, err := p.scrape.firstVideoID(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}
		t, err := p.video(ctx, id)
		if err != nil {
			return nil, err
		}
		return []sources.Track{t}, nil
	}

	var resp *ytapi.SearchListResponse
	err = p.call(ctx, func(ctx context.Context) error {
		var err error
		resp, err = p.api.Search.List([]string{"id", "snippet"}).
			Q(query).
			Type("video").
			MaxResults(searchResults).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		tracks = append(tracks, newTrack(item.Id.VideoId, item.Snippet.Title, item.Snippet.ChannelTitle, 0))
	}
	if len(tracks) == 0 {
		return nil, sources.ErrNotFound
	}
	return tracks, nil
}

// Playlist loads a playlist link or ID directly. Anything else is taken as a
// channel handle or ID whose kind-th playlist is loaded.
func (p *Provider) Playlist(ctx context.Context, profile string, kind int) (tracks []sources.Track, err error) {
	defer func() { p.metrics.ObserveProvider("playlist", err) }()

	profile = strings.TrimSpace(profile)
	if kind < 1 {
		kind = 1
	}

	if id, ok := playlistRef(profile); ok {
		return p.publicPlaylist(ctx, id)
	}
	if p.api == nil {
		return nil, ErrNoAPIKey
	}

	channelID, err := p.channelID(ctx, profile)
	if err != nil {
		return nil, err
	}
	playlistID, err := p.channelPlaylist(ctx, channelID, kind)
	if err != nil {
		return nil, err
	}
	return p.playlistItems(ctx, playlistID)
}

// StreamURL prefers audio-only formats.
func (p *Provider) StreamURL(ctx context.Context, t sources.Track) (link string, err error) {
	defer func() { p.metrics.ObserveProvider("stream_url", err) }()

	video, err := p.videos.GetVideoContext(ctx, t.ID)
	if err != nil {
		return "", fmt.Errorf("load video %s: %w", t.ID, err)
	}

	formats := video.Formats.Type("audio")
	if len(formats) == 0 {
		formats = video.Formats.WithAudioChannels()
	}
	if len(formats) == 0 {
		return "", fmt.Errorf("video %s: %w", t.ID, ErrNoAudio)
	}

	link, err = p.videos.GetStreamURLContext(ctx, video, &formats[0])
	if err != nil {
		return "", fmt.Errorf("stream url for %s: %w", t.ID, err)
	}
	return link, nil
}

func (p *Provider) video(ctx context.Context, id string) (sources.Track, error) {
	v, err := p.videos.GetVideoContext(ctx, id)
	if err != nil {
		return sources.Track{}, fmt.Errorf("load video %s: %w", id, err)
	}
	return newTrack(v.ID, v.Title, v.Author, v.Duration), nil
}

func (p *Provider) publicPlaylist(ctx context.Context, id string) ([]sources.Track, error) {
	pl, err := p.videos.GetPlaylistContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load playlist %s: %w", id, err)
	}

	tracks := make([]sources.Track, 0, min(len(pl.Videos), p.max))
	for _, e := range pl.Videos {
		if len(tracks) == p.max {
			break
		}
		if e == nil || e.ID == "" {
			continue
		}
		tracks = append(tracks, newTrack(e.ID, e.Title, e.Author, e.Duration))
	}
	if len(tracks) == 0 {
		return nil, sources.ErrNotFound
	}
	return tracks, nil
}

func (p *Provider) channelID(ctx context.Context, profile string) (string, error) {
	id, handle := channelRef(profile)
	if id != "" {
		return id, nil
	}
	if handle == "" {
		return "", sources.ErrNotFound
	}

	var resp *ytapi.ChannelListResponse
	err := p.call(ctx, func(ctx context.Context) error {
		var err error
		resp, err = p.api.Channels.List([]string{"id"}).ForHandle(handle).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("find channel %s: %w", handle, err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("channel %s: %w", handle, sources.ErrNotFound)
	}
	return resp.Items[0].Id, nil
}

func (p *Provider) channelPlaylist(ctx context.Context, channelID string, kind int) (string, error) {
	var ids []string
	token := ""
	for len(ids) < kind {
		var resp *ytapi.PlaylistListResponse
		err := p.call(ctx, func(ctx context.Context) error {
			call := p.api.Playlists.List([]string{"id"}).ChannelId(channelID).MaxResults(pageSize)
			if token != "" {
				call = call.PageToken(token)
			}
			var err error
			resp, err = call.Context(ctx).Do()
			return err
		})
		if err != nil {
			return "", fmt.Errorf("list playlists of %s: %w", channelID, err)
		}
		for _, item := range resp.Items {
			ids = append(ids, item.Id)
		}
		token = resp.NextPageToken
		if token == "" {
			break
		}
	}
	if kind > len(ids) {
		return "", fmt.Errorf("channel %s has %d playlists: %w", channelID, len(ids), sources.ErrNotFound)
	}
	return ids[kind-1], nil
}

func (p *Provider) playlistItems(ctx context.Context, playlistID string) ([]sources.Track, error) {
	var tracks []sources.Track
	token := ""
	for len(tracks) < p.max {
		var resp *ytapi.PlaylistItemListResponse
		err := p.call(ctx, func(ctx context.Context) error {
			call := p.api.PlaylistItems.List([]string{"snippet"}).
				PlaylistId(playlistID).
				MaxResults(pageSize)
			if token != "" {
				call = call.PageToken(token)
			}
			var err error
			resp, err = call.Context(ctx).Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list items of %s: %w", playlistID, err)
		}

		for _, item := range resp.Items {
			if len(tracks) == p.max {
				break
			}
			sn := item.Snippet
			if sn == nil || sn.ResourceId == nil || sn.ResourceId.VideoId == "" {
				continue
			}
			tracks = append(tracks, newTrack(sn.ResourceId.VideoId, sn.Title, sn.VideoOwnerChannelTitle, 0))
		}

		token = resp.NextPageToken
		if token == "" {
			break
		}
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("playlist %s: %w", playlistID, sources.ErrNotFound)
	}
	return tracks, nil
}

// call runs a Data API request through the limiter, retrying throttling and
// transport errors.
func (p *Provider) call(ctx context.Context, fn func(ctx context.Context) error) error {
	return retrylimit.Do(ctx, p.limiter, p.retry, func(ctx context.Context) error {
		return classify(fn(ctx))
	})
}

type apiError struct {
	err *googleapi.Error
}

func (e apiError) Error() string   { return e.err.Error() }
func (e apiError) StatusCode() int { return e.err.Code }
func (e apiError) Unwrap() error   { return e.err }

// classify marks client errors other than 429 as fatal.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	if gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500 {
		return apiError{gerr}
	}
	return retrylimit.Fatal(err)
}

func newTrack(id, title, author string, d time.Duration) sources.Track {
	return sources.Track{
		ID:       id,
		Title:    html.UnescapeString(title),
		Artist:   strings.TrimSuffix(html.UnescapeString(author), " - Topic"),
		Duration: d,
		URL:      "https://www.youtube.com/watch?v=" + id,
		Source:   SourceName,
	}
}

package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	kkdai "github.com/kkdai/youtube/v2"

	"github.com/keshon/jukebox/internal/music/sources"
	"github.com/keshon/jukebox/pkg/retrylimit"
)

type fakeVideos struct {
	videos    map[string]*kkdai.Video
	playlists map[string]*kkdai.Playlist
}

func (f *fakeVideos) GetVideoContext(_ context.Context, id string) (*kkdai.Video, error) {
	v, ok := f.videos[id]
	if !ok {
		return nil, errors.New("video unavailable")
	}
	return v, nil
}

func (f *fakeVideos) GetPlaylistContext(_ context.Context, id string) (*kkdai.Playlist, error) {
	p, ok := f.playlists[id]
	if !ok {
		return nil, errors.New("playlist not found")
	}
	return p, nil
}

func (f *fakeVideos) GetStreamURLContext(_ context.Context, _ *kkdai.Video, format *kkdai.Format) (string, error) {
	return fmt.Sprintf("https://media.example/%d", format.ItagNo), nil
}

func newTestProvider(t *testing.T, handler http.HandlerFunc, apiKey string) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := New(context.Background(), Options{
		APIKey:          apiKey,
		MaxPlaylistSize: 3,
		Endpoint:        srv.URL + "/",
		HTTPClient:      srv.Client(),
		SearchBaseURL:   srv.URL,
		Limiter:         retrylimit.NewAdaptiveLimiter(1000, 1000, 1000, 0, 1),
		Retry: retrylimit.Config{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1,
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.videos = &fakeVideos{
		videos: map[string]*kkdai.Video{
			"dQw4w9WgXcQ": {
				ID:       "dQw4w9WgXcQ",
				Title:    "Never Gonna Give You Up",
				Author:   "Rick Astley",
				Duration: 213 * time.Second,
				Formats: kkdai.FormatList{
					{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, AudioChannels: 2},
					{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, AudioChannels: 2},
				},
			},
			"video000001": {
				ID:      "video000001",
				Title:   "Silent",
				Formats: kkdai.FormatList{{ItagNo: 137, MimeType: `video/mp4; codecs="avc1"`}},
			},
		},
		playlists: map[string]*kkdai.Playlist{
			"PLabcdefghijkl": {
				ID: "PLabcdefghijkl",
				Videos: []*kkdai.PlaylistEntry{
					{ID: "a1", Title: "One", Author: "X - Topic"},
					{ID: "a2", Title: "Two"},
					nil,
					{ID: "a3", Title: "Three"},
					{ID: "a4", Title: "Four"},
				},
			},
		},
	}
	return p
}

func TestSearchVideoLink(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	}, "")

	got, err := p.Search(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "dQw4w9WgXcQ" {
		t.Fatalf("got %+v", got)
	}
	if got[0].FullTitle() != "Rick Astley - Never Gonna Give You Up" {
		t.Errorf("FullTitle = %q", got[0].FullTitle())
	}
	if got[0].Duration != 213*time.Second {
		t.Errorf("Duration = %v", got[0].Duration)
	}
}

func TestSearchBareVideoID(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	}, "")

	got, err := p.Search(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "dQw4w9WgXcQ" {
		t.Fatalf("got %+v", got)
	}
}

func TestSearchForeignLink(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {}, "")
	_, err := p.Search(context.Background(), "https://example.com/song.mp3")
	if !errors.Is(err, ErrUnsupportedURL) {
		t.Fatalf("err = %v, want ErrUnsupportedURL", err)
	}
}

func TestSearchDataAPI(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/search") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "rick astley" {
			t.Errorf("q = %q", q)
		}
		if typ := r.URL.Query().Get("type"); typ != "video" {
			t.Errorf("type = %q", typ)
		}
		fmt.Fprint(w, `{"items":[
			{"id":{"kind":"youtube#video","videoId":"v1"},"snippet":{"title":"Rock &amp; Roll","channelTitle":"Band"}},
			{"id":{"kind":"youtube#video"},"snippet":{"title":"broken"}},
			{"id":{"kind":"youtube#video","videoId":"v2"},"snippet":{"title":"Second","channelTitle":""}}
		]}`)
	}, "key")

	got, err := p.Search(context.Background(), "  rick astley ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].FullTitle() != "Band - Rock & Roll" {
		t.Errorf("first = %q", got[0].FullTitle())
	}
	if got[1].URL != "https://www.youtube.com/watch?v=v2" || got[1].Source != SourceName {
		t.Errorf("second = %+v", got[1])
	}
}

func TestSearchNoResults(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	}, "key")
	if _, err := p.Search(context.Background(), "nothing"); !errors.Is(err, sources.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := p.Search(context.Background(), "   "); !errors.Is(err, sources.ErrNotFound) {
		t.Fatalf("empty query err = %v, want ErrNotFound", err)
	}
}

func TestSearchWithoutKeyScrapesResults(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/results" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `var ytInitialData = {"url":"/watch?v=dQw4w9WgXcQ&pp=x"};`)
	}, "")

	got, err := p.Search(context.Background(), "never gonna")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got[0].ID != "dQw4w9WgXcQ" {
		t.Errorf("ID = %q", got[0].ID)
	}
}

func TestSearchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"code":503,"message":"backend"}}`)
			return
		}
		fmt.Fprint(w, `{"items":[{"id":{"videoId":"v1"},"snippet":{"title":"T"}}]}`)
	}, "key")

	if _, err := p.Search(context.Background(), "q"); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestSearchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"quotaExceeded"}}`)
	}, "key")

	if _, err := p.Search(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestPlaylistDirect(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	}, "")

	got, err := p.Playlist(context.Background(), "https://www.youtube.com/playlist?list=PLabcdefghijkl", 0)
	if err != nil {
		t.Fatalf("Playlist: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want cap of 3", len(got))
	}
	if got[0].FullTitle() != "X - One" || got[2].ID != "a3" {
		t.Errorf("got %+v", got)
	}
}

func TestPlaylistChannelNeedsKey(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {}, "")
	if _, err := p.Playlist(context.Background(), "@someone", 1); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestPlaylistByChannelHandle(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case strings.HasSuffix(r.URL.Path, "/channels"):
			if q.Get("forHandle") != "@band" {
				t.Errorf("forHandle = %q", q.Get("forHandle"))
			}
			fmt.Fprint(w, `{"items":[{"id":"UCchannel"}]}`)
		case strings.HasSuffix(r.URL.Path, "/playlists"):
			if q.Get("channelId") != "UCchannel" {
				t.Errorf("channelId = %q", q.Get("channelId"))
			}
			fmt.Fprint(w, `{"items":[{"id":"PLfirst"},{"id":"PLsecond"}]}`)
		case strings.HasSuffix(r.URL.Path, "/playlistItems"):
			if q.Get("playlistId") != "PLsecond" {
				t.Errorf("playlistId = %q", q.Get("playlistId"))
			}
			if q.Get("pageToken") == "" {
				fmt.Fprint(w, `{"nextPageToken":"p2","items":[
					{"snippet":{"title":"One","videoOwnerChannelTitle":"Band","resourceId":{"videoId":"i1"}}},
					{"snippet":{"title":"Deleted video","resourceId":{}}}
				]}`)
				return
			}
			fmt.Fprint(w, `{"items":[
				{"snippet":{"title":"Two","resourceId":{"videoId":"i2"}}},
				{"snippet":{"title":"Three","resourceId":{"videoId":"i3"}}},
				{"snippet":{"title":"Four","resourceId":{"videoId":"i4"}}}
			]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, "key")

	got, err := p.Playlist(context.Background(), "band", 2)
	if err != nil {
		t.Fatalf("Playlist: %v", err)
	}
	var ids []string
	for _, tr := range got {
		ids = append(ids, tr.ID)
	}
	if strings.Join(ids, ",") != "i1,i2,i3" {
		t.Errorf("ids = %v", ids)
	}
	if got[0].Artist != "Band" {
		t.Errorf("artist = %q", got[0].Artist)
	}
}

func TestPlaylistKindOutOfRange(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"id":"PLonly"}]}`)
	}, "key")

	_, err := p.Playlist(context.Background(), "UCabcdefghijklmnopqrstuv", 3)
	if !errors.Is(err, sources.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStreamURLPrefersAudio(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {}, "")

	link, err := p.StreamURL(context.Background(), sources.Track{ID: "dQw4w9WgXcQ"})
	if err != nil {
		t.Fatalf("StreamURL: %v", err)
	}
	if link != "https://media.example/140" {
		t.Errorf("link = %q", link)
	}

	if _, err := p.StreamURL(context.Background(), sources.Track{ID: "video000001"}); !errors.Is(err, ErrNoAudio) {
		t.Errorf("err = %v, want ErrNoAudio", err)
	}
}

package youtube

import "testing"

func TestVideoRef(t *testing.T) {
	cases := []struct {
		in   string
		id   string
		isOK bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?t=10", "dQw4w9WgXcQ", true},
		{"https://music.youtube.com/watch?v=dQw4w9WgXcQ&list=RD1", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/playlist?list=PLabcdefghijkl", "", false},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", false},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"-_aZ09-_aZ0", "-_aZ09-_aZ0", true},
		{"dQw4w9WgXc", "", false},
		{"dQw4w9WgXcQQ", "", false},
		{"dQw4w9WgX Q", "", false},
		{"never gonna give you up", "", false},
	}
	for _, c := range cases {
		id, ok := videoRef(c.in)
		if id != c.id || ok != c.isOK {
			t.Errorf("videoRef(%q) = %q, %v; want %q, %v", c.in, id, ok, c.id, c.isOK)
		}
	}
}

func TestPlaylistRef(t *testing.T) {
	cases := []struct {
		in   string
		id   string
		isOK bool
	}{
		{"https://www.youtube.com/playlist?list=PLabcdefghijkl", "PLabcdefghijkl", true},
		{"https://www.youtube.com/watch?v=x&list=OLAK5uy_abcdef", "OLAK5uy_abcdef", true},
		{"PLabcdefghijkl", "PLabcdefghijkl", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "", false},
		{"https://example.com/?list=PLabcdefghijkl", "", false},
		{"@channel", "", false},
		{"PL", "", false},
	}
	for _, c := range cases {
		id, ok := playlistRef(c.in)
		if id != c.id || ok != c.isOK {
			t.Errorf("playlistRef(%q) = %q, %v; want %q, %v", c.in, id, ok, c.id, c.isOK)
		}
	}
}

func TestChannelRef(t *testing.T) {
	cases := []struct {
		in, id, handle string
	}{
		{"UCabcdefghijklmnopqrstuv", "UCabcdefghijklmnopqrstuv", ""},
		{"https://www.youtube.com/channel/UCabcdefghijklmnopqrstuv", "UCabcdefghijklmnopqrstuv", ""},
		{"https://www.youtube.com/@band/playlists", "", "@band"},
		{"https://www.youtube.com/c/band", "", "@band"},
		{"@band", "", "@band"},
		{"band", "", "@band"},
		{"", "", ""},
	}
	for _, c := range cases {
		id, handle := channelRef(c.in)
		if id != c.id || handle != c.handle {
			t.Errorf("channelRef(%q) = %q, %q; want %q, %q", c.in, id, handle, c.id, c.handle)
		}
	}
}

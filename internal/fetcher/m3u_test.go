package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyagen/channelvault/internal/models"
)

const playlist = `#EXTM3U
#EXTINF:-1 tvg-id="bbc1.uk" tvg-name="BBC One" tvg-logo="http://logos/bbc1.png" group-title="UK",BBC One HD
#EXTVLCOPT:http-user-agent=VLC
http://streams/bbc1.m3u8
#EXTINF:-1 tvg-id="arte.fr" group-title="News, Culture",Arte
http://streams/arte.m3u8

#EXTINF:-1,Orphan without url
#EXTINF:-1 tvg-id="" ,
http://streams/nameless.m3u8
#EXTINF:-1 tvg-id="cnn.us",CNN
  http://streams/cnn.m3u8
http://streams/no-extinf.m3u8
`

func strPtr(s string) *string { return &s }

func TestParseM3U(t *testing.T) {
	got, err := ParseM3U(strings.NewReader(playlist), false)
	require.NoError(t, err)

	want := []models.Channel{
		{Name: "BBC One", URL: "http://streams/bbc1.m3u8", Category: strPtr("UK"), Logo: strPtr("http://logos/bbc1.png")},
		{Name: "Arte", URL: "http://streams/arte.m3u8", Category: strPtr("News, Culture")},
		{Name: "CNN", URL: "http://streams/cnn.m3u8"},
	}
	assert.Equal(t, want, got)
}

func TestParseM3U_PreferTvgID(t *testing.T) {
	got, err := ParseM3U(strings.NewReader(playlist), true)
	require.NoError(t, err)

	names := make([]string, 0, len(got))
	for _, ch := range got {
		names = append(names, ch.Name)
	}
	assert.Equal(t, []string{"BBC One", "arte.fr", "cnn.us"}, names)
}

func TestParseM3U_Empty(t *testing.T) {
	got, err := ParseM3U(strings.NewReader("#EXTM3U\n"), false)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchM3U(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/list.m3u" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "ChannelVault/test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(playlist))
	}))
	defer srv.Close()

	ctx := context.Background()
	got, err := Load(ctx, srv.URL+"/list.m3u", "ChannelVault/test", false, 5*time.Second)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = FetchM3U(ctx, srv.URL+"/missing.m3u", "ChannelVault/test", false, 5*time.Second)
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.m3u")
	require.NoError(t, os.WriteFile(path, []byte(playlist), 0o644))

	got, err := Load(context.Background(), path, "", false, time.Second)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "nope.m3u"), "", false, time.Second)
	assert.ErrorContains(t, err, "open playlist")
}

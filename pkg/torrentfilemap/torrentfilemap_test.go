package torrentfilemap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rlcone/ptm/pkg/config"
	"github.com/rlcone/ptm/pkg/pathmap"
)

func testTorrents() map[string]config.Torrent {
	return map[string]config.Torrent{
		"h1": {
			Hash:        "h1",
			Name:        "show",
			DownloadDir: "/remote/downloads",
			Files:       []string{"show/ep1.mkv", "show/ep2.mkv"},
		},
		"h2": {
			Hash:        "h2",
			Name:        "cross-seed",
			DownloadDir: "/remote/downloads",
			Files:       []string{"show/ep1.mkv"},
		},
		"h3": {
			Hash:        "h3",
			Name:        "movie",
			DownloadDir: "/remote/downloads",
			Files:       []string{"movie.mkv"},
		},
	}
}

func TestTorrentFileMap_HasPath(t *testing.T) {
	pm := pathmap.New(map[string]string{"/remote/downloads": "/local/downloads"})
	tfm := New(testTorrents(), pm)

	assert.True(t, tfm.HasPath("/local/downloads/show/ep1.mkv"))
	assert.True(t, tfm.HasPath("/local/downloads/show"), "parent dir of a torrent file is not orphaned")
	assert.True(t, tfm.HasPath("/local/downloads/movie.mkv"))
	assert.False(t, tfm.HasPath("/local/downloads/orphan.mkv"))
}

func TestTorrentFileMap_IsUnique(t *testing.T) {
	torrents := testTorrents()
	tfm := New(torrents, nil)

	shared := torrents["h1"]
	unique := torrents["h3"]

	assert.False(t, tfm.IsUnique(shared, nil), "h1 shares ep1 with h2")
	assert.True(t, tfm.IsUnique(unique, nil))
}

func TestTorrentFileMap_Remove(t *testing.T) {
	torrents := testTorrents()
	tfm := New(torrents, nil)

	assert.Equal(t, 3, tfm.Length())

	tfm.Remove(torrents["h3"], nil)
	assert.Equal(t, 2, tfm.Length())

	// ep1 is still held by h2
	tfm.Remove(torrents["h1"], nil)
	assert.Equal(t, 1, tfm.Length())
}

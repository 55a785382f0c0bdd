package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knadh/koanf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetConfig() {
	K = koanf.New(Delimiter)
	Config = nil
}

const testConfig = `transmission_host: seedbox.local
transmission_port: 9092

mapped_remote_paths:
  /mnt/pool/downloads: /Volumes/downloads

torrent_dirs:
  - download_dir: /Volumes/downloads/tv
    post_processing_dir: /Volumes/processing/tv
    ratio: 2.0
    seed_days: 7.0
  - download_dir: /Volumes/downloads/movies
    post_processing_dir: /Volumes/processing/movies

ignore:
  - Label == "keep-forever"

orphan:
  grace_period: 30m
  ignore_paths:
    - "*.part"
`

func TestInit(t *testing.T) {
	resetConfig()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0644))

	require.NoError(t, Init(path))

	assert.Equal(t, "seedbox.local", Config.TransmissionHost)
	assert.Equal(t, uint(9092), Config.TransmissionPort)

	// default transmission client is synthesized from the shorthand keys
	tc, ok := Config.Clients["transmission"]
	require.True(t, ok)
	assert.Equal(t, "transmission", tc["type"])
	assert.Equal(t, "seedbox.local", K.String("clients.transmission.host"))

	require.Len(t, Config.TorrentDirs, 2)
	assert.Equal(t, "/Volumes/downloads/tv", Config.TorrentDirs[0].DownloadDir)
	require.NotNil(t, Config.TorrentDirs[0].Ratio)
	assert.Equal(t, 2.0, *Config.TorrentDirs[0].Ratio)
	assert.Nil(t, Config.TorrentDirs[1].Ratio)

	assert.Equal(t, map[string]string{"/mnt/pool/downloads": "/Volumes/downloads"},
		Config.MappedRemotePaths)

	assert.Equal(t, 30*time.Minute, Config.Orphan.GracePeriod)
	assert.Equal(t, []string{"*.part"}, Config.Orphan.IgnorePaths)
}

func TestInit_MissingRuleFields(t *testing.T) {
	resetConfig()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("torrent_dirs:\n  - download_dir: /x\n"), 0644))

	err := Init(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post_processing_dir")
}

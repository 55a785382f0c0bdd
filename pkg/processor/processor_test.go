package processor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlcone/ptm/pkg/config"
	"github.com/rlcone/ptm/pkg/expression"
	"github.com/rlcone/ptm/pkg/linkstate"
)

type fakeClient struct {
	removed    []string
	deleteData []bool
	removeErr  error
}

func (f *fakeClient) Type() string                  { return "fake" }
func (f *fakeClient) Connect(context.Context) error { return nil }

func (f *fakeClient) GetTorrents(context.Context) (map[string]config.Torrent, error) {
	return nil, nil
}

func (f *fakeClient) RemoveTorrent(_ context.Context, t *config.Torrent, deleteData bool) (bool, error) {
	if f.removeErr != nil {
		return false, f.removeErr
	}
	f.removed = append(f.removed, t.Hash)
	f.deleteData = append(f.deleteData, deleteData)
	return true, nil
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestProcessor(t *testing.T, cfg *config.Configuration, fc *fakeClient, dryRun bool) *Processor {
	t.Helper()

	exp, err := expression.Compile(cfg.Ignore)
	require.NoError(t, err)

	return New(Options{
		Log:        testLog(),
		Client:     fc,
		Config:     cfg,
		Expression: exp,
		DryRun:     dryRun,
	})
}

func singleRuleConfig(downloadDir, postDir string, ratio, seedDays *float64) *config.Configuration {
	return &config.Configuration{
		TorrentDirs: []config.TorrentRule{
			{
				DownloadDir:       downloadDir,
				PostProcessingDir: postDir,
				Ratio:             ratio,
				SeedDays:          seedDays,
			},
		},
	}
}

func ptr(f float64) *float64 { return &f }

func TestProcess_LinksFinishedTorrent(t *testing.T) {
	downloadDir := t.TempDir()
	postDir := t.TempDir()

	writeFile(t, filepath.Join(downloadDir, "show", "ep1.mkv"), "data1")
	writeFile(t, filepath.Join(downloadDir, "show", "ep2.mkv"), "data2")

	fc := &fakeClient{}
	cfg := singleRuleConfig(downloadDir, postDir, ptr(2.0), nil)
	p := newTestProcessor(t, cfg, fc, false)

	torrents := map[string]config.Torrent{
		"h1": {
			Hash:        "h1",
			Name:        "show",
			DownloadDir: downloadDir,
			Files:       []string{"show/ep1.mkv", "show/ep2.mkv"},
			Finished:    true,
			Ratio:       0.5,
		},
	}

	stats, err := p.Process(context.Background(), torrents)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Linked)
	assert.Equal(t, 0, stats.Removed)
	assert.Empty(t, fc.removed)

	// payload is now hard-linked into the post-processing dir
	report := linkstate.Status(
		[]string{
			filepath.Join(downloadDir, "show", "ep1.mkv"),
			filepath.Join(downloadDir, "show", "ep2.mkv"),
		},
		downloadDir, postDir)
	assert.Equal(t, linkstate.Linked, report.State)
}

func TestProcess_RemovesLinkedTorrentMeetingGoals(t *testing.T) {
	downloadDir := t.TempDir()
	postDir := t.TempDir()

	src := filepath.Join(downloadDir, "movie.mkv")
	writeFile(t, src, "data")
	require.NoError(t, os.Link(src, filepath.Join(postDir, "movie.mkv")))

	fc := &fakeClient{}
	cfg := singleRuleConfig(downloadDir, postDir, ptr(2.0), nil)
	p := newTestProcessor(t, cfg, fc, false)

	torrents := map[string]config.Torrent{
		"h1": {
			Hash:        "h1",
			Name:        "movie",
			DownloadDir: downloadDir,
			Files:       []string{"movie.mkv"},
			Finished:    true,
			Ratio:       2.5,
		},
	}

	stats, err := p.Process(context.Background(), torrents)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Removed)
	require.Len(t, fc.removed, 1)
	assert.Equal(t, "h1", fc.removed[0])
	assert.True(t, fc.deleteData[0], "removal must delete local data")
}

func TestProcess_NeverLinksAndRemovesInSameRun(t *testing.T) {
	downloadDir := t.TempDir()
	postDir := t.TempDir()

	writeFile(t, filepath.Join(downloadDir, "movie.mkv"), "data")

	fc := &fakeClient{}
	// no seed requirements at all, removal allowed as soon as linked
	cfg := singleRuleConfig(downloadDir, postDir, nil, nil)
	p := newTestProcessor(t, cfg, fc, false)

	torrents := map[string]config.Torrent{
		"h1": {
			Hash:        "h1",
			Name:        "movie",
			DownloadDir: downloadDir,
			Files:       []string{"movie.mkv"},
			Finished:    true,
			Ratio:       99,
		},
	}

	// first run links only
	stats, err := p.Process(context.Background(), torrents)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Linked)
	assert.Equal(t, 0, stats.Removed)
	assert.Empty(t, fc.removed)

	// second run observes the linked state and removes
	stats, err = p.Process(context.Background(), torrents)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Linked)
	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, []string{"h1"}, fc.removed)
}

func TestProcess_SeedGoalsNotMetKeepsSeeding(t *testing.T) {
	downloadDir := t.TempDir()
	postDir := t.TempDir()

	src := filepath.Join(downloadDir, "movie.mkv")
	writeFile(t, src, "data")
	require.NoError(t, os.Link(src, filepath.Join(postDir, "movie.mkv")))

	fc := &fakeClient{}
	cfg := singleRuleConfig(downloadDir, postDir, ptr(2.0), ptr(7.0))
	p := newTestProcessor(t, cfg, fc, false)

	torrents := map[string]config.Torrent{
		"h1": {
			Hash:           "h1",
			Name:           "movie",
			DownloadDir:    downloadDir,
			Files:          []string{"movie.mkv"},
			Finished:       true,
			Ratio:          2.5,
			SeedingSeconds: 24 * 60 * 60, // one day, needs seven
		},
	}

	stats, err := p.Process(context.Background(), torrents)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Removed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, fc.removed)
}

func TestProcess_LinkFailureDoesNotAbortRun(t *testing.T) {
	downloadDir := t.TempDir()
	postDir := t.TempDir()

	// "bad" torrent has no payload on disk, linking it fails
	writeFile(t, filepath.Join(downloadDir, "good.mkv"), "data")

	fc := &fakeClient{}
	cfg := singleRuleConfig(downloadDir, postDir, nil, nil)
	p := newTestProcessor(t, cfg, fc, false)

	torrents := map[string]config.Torrent{
		"h1": {
			Hash:        "h1",
			Name:        "bad",
			DownloadDir: downloadDir,
			Files:       []string{"bad.mkv"},
			Finished:    true,
		},
		"h2": {
			Hash:        "h2",
			Name:        "good",
			DownloadDir: downloadDir,
			Files:       []string{"good.mkv"},
			Finished:    true,
		},
	}

	stats, err := p.Process(context.Background(), torrents)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Linked)
	assert.Equal(t, 1, stats.Errors)

	_, statErr := os.Stat(filepath.Join(postDir, "good.mkv"))
	assert.NoError(t, statErr)
}

func TestProcess_DryRunMakesNoChanges(t *testing.T) {
	downloadDir := t.TempDir()
	postDir := t.TempDir()

	writeFile(t, filepath.Join(downloadDir, "unlinked.mkv"), "data1")

	src := filepath.Join(downloadDir, "linked.mkv")
	writeFile(t, src, "data2")
	require.NoError(t, os.Link(src, filepath.Join(postDir, "linked.mkv")))

	fc := &fakeClient{}
	cfg := singleRuleConfig(downloadDir, postDir, nil, nil)
	p := newTestProcessor(t, cfg, fc, true)

	torrents := map[string]config.Torrent{
		"h1": {
			Hash:        "h1",
			Name:        "unlinked",
			DownloadDir: downloadDir,
			Files:       []string{"unlinked.mkv"},
			Finished:    true,
		},
		"h2": {
			Hash:        "h2",
			Name:        "linked",
			DownloadDir: downloadDir,
			Files:       []string{"linked.mkv"},
			Finished:    true,
			Ratio:       5,
		},
	}

	stats, err := p.Process(context.Background(), torrents)
	require.NoError(t, err)

	// decisions are reported but nothing is touched
	assert.Equal(t, 1, stats.Linked)
	assert.Equal(t, 1, stats.Removed)
	assert.Empty(t, fc.removed)

	_, statErr := os.Stat(filepath.Join(postDir, "unlinked.mkv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcess_CrossSeedNeverRemoved(t *testing.T) {
	downloadDir := t.TempDir()
	postDir := t.TempDir()

	src := filepath.Join(downloadDir, "movie.mkv")
	writeFile(t, src, "data")
	require.NoError(t, os.Link(src, filepath.Join(postDir, "movie.mkv")))

	fc := &fakeClient{}
	cfg := singleRuleConfig(downloadDir, postDir, nil, nil)
	p := newTestProcessor(t, cfg, fc, false)

	// both torrents claim the same file
	torrents := map[string]config.Torrent{
		"h1": {
			Hash:        "h1",
			Name:        "movie",
			DownloadDir: downloadDir,
			Files:       []string{"movie.mkv"},
			Finished:    true,
			Ratio:       5,
		},
		"h2": {
			Hash:        "h2",
			Name:        "movie-cross-seed",
			DownloadDir: downloadDir,
			Files:       []string{"movie.mkv"},
			Finished:    true,
			Ratio:       5,
		},
	}

	stats, err := p.Process(context.Background(), torrents)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Removed)
	assert.Empty(t, fc.removed)
}

func TestProcess_NoMatchingRuleSkips(t *testing.T) {
	downloadDir := t.TempDir()
	postDir := t.TempDir()
	otherDir := t.TempDir()

	fc := &fakeClient{}
	cfg := singleRuleConfig(downloadDir, postDir, nil, nil)
	p := newTestProcessor(t, cfg, fc, false)

	torrents := map[string]config.Torrent{
		"h1": {
			Hash:        "h1",
			Name:        "elsewhere",
			DownloadDir: otherDir,
			Files:       []string{"elsewhere.mkv"},
			Finished:    true,
			Ratio:       99,
		},
	}

	stats, err := p.Process(context.Background(), torrents)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Linked)
	assert.Equal(t, 0, stats.Removed)
	assert.Equal(t, 1, stats.Skipped)
}

func TestProcess_IgnoreExpressionSkips(t *testing.T) {
	downloadDir := t.TempDir()
	postDir := t.TempDir()

	writeFile(t, filepath.Join(downloadDir, "keep.mkv"), "data")

	fc := &fakeClient{}
	cfg := singleRuleConfig(downloadDir, postDir, nil, nil)
	cfg.Ignore = []string{`Label == "keep-forever"`}
	p := newTestProcessor(t, cfg, fc, false)

	torrents := map[string]config.Torrent{
		"h1": {
			Hash:        "h1",
			Name:        "keep",
			DownloadDir: downloadDir,
			Files:       []string{"keep.mkv"},
			Finished:    true,
			Label:       "keep-forever",
		},
	}

	stats, err := p.Process(context.Background(), torrents)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Linked)
	assert.Equal(t, 1, stats.Skipped)

	_, statErr := os.Stat(filepath.Join(postDir, "keep.mkv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcess_RemotePathMapping(t *testing.T) {
	downloadDir := t.TempDir()
	postDir := t.TempDir()

	writeFile(t, filepath.Join(downloadDir, "movie.mkv"), "data")

	fc := &fakeClient{}
	cfg := singleRuleConfig(downloadDir, postDir, nil, nil)
	cfg.MappedRemotePaths = map[string]string{"/remote/downloads": downloadDir}
	p := newTestProcessor(t, cfg, fc, false)

	torrents := map[string]config.Torrent{
		"h1": {
			Hash:        "h1",
			Name:        "movie",
			DownloadDir: "/remote/downloads",
			Files:       []string{"movie.mkv"},
			Finished:    true,
		},
	}

	stats, err := p.Process(context.Background(), torrents)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Linked)

	_, statErr := os.Stat(filepath.Join(postDir, "movie.mkv"))
	assert.NoError(t, statErr)
}

func TestProcess_NoFilesReportedSkips(t *testing.T) {
	downloadDir := t.TempDir()
	postDir := t.TempDir()

	fc := &fakeClient{}
	cfg := singleRuleConfig(downloadDir, postDir, ptr(1.0), nil)
	p := newTestProcessor(t, cfg, fc, false)

	torrents := map[string]config.Torrent{
		"h1": {
			Hash:        "h1",
			Name:        "empty",
			DownloadDir: downloadDir,
			Finished:    true,
			Ratio:       5.0,
		},
	}

	// run twice, the torrent must never count as linked or get removed
	for i := 0; i < 2; i++ {
		stats, err := p.Process(context.Background(), torrents)
		require.NoError(t, err)

		assert.Equal(t, 0, stats.Linked)
		assert.Equal(t, 0, stats.Removed)
		assert.Equal(t, 1, stats.Skipped)
	}

	assert.Empty(t, fc.removed)
}

package torrentfilemap

import (
	"strings"
	"sync"

	"github.com/rlcone/ptm/pkg/config"
	"github.com/rlcone/ptm/pkg/pathmap"
)

// New builds a file map keyed by local absolute path. Torrent file paths
// are joined to the torrent download directory and run through the remote
// path mapper so lookups can be made against the local filesystem.
func New(torrents map[string]config.Torrent, pm *pathmap.Mapper) *TorrentFileMap {
	tfm := &TorrentFileMap{
		torrentFileMap: make(map[string]map[string]config.Torrent),
		pathCache:      sync.Map{},
	}

	tfm.mu.Lock()
	for _, torrent := range torrents {
		tfm.addInternal(torrent, pm)
	}
	tfm.mu.Unlock()

	return tfm
}

// addInternal is the non-locking version of Add for use within New
func (t *TorrentFileMap) addInternal(torrent config.Torrent, pm *pathmap.Mapper) {
	for _, f := range localFiles(torrent, pm) {
		if _, exists := t.torrentFileMap[f]; exists {
			t.torrentFileMap[f][torrent.Hash] = torrent
			continue
		}

		t.torrentFileMap[f] = map[string]config.Torrent{
			torrent.Hash: torrent,
		}
	}
}

func (t *TorrentFileMap) Add(torrent config.Torrent, pm *pathmap.Mapper) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, f := range localFiles(torrent, pm) {
		if _, exists := t.torrentFileMap[f]; exists {
			// filepath already associated with other torrents
			t.torrentFileMap[f][torrent.Hash] = torrent
			continue
		}

		// filepath has not been seen before, create file entry
		t.torrentFileMap[f] = map[string]config.Torrent{
			torrent.Hash: torrent,
		}
	}
}

func (t *TorrentFileMap) Remove(torrent config.Torrent, pm *pathmap.Mapper) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, f := range localFiles(torrent, pm) {
		if _, exists := t.torrentFileMap[f]; exists {
			// remove this hash from the file entry
			delete(t.torrentFileMap[f], torrent.Hash)

			// remove file entry if no more hashes
			if len(t.torrentFileMap[f]) == 0 {
				delete(t.torrentFileMap, f)
			}
		}
	}
}

// IsUnique returns true when no file of the torrent is shared with
// another torrent in the map.
func (t *TorrentFileMap) IsUnique(torrent config.Torrent, pm *pathmap.Mapper) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, f := range localFiles(torrent, pm) {
		if torrents, exists := t.torrentFileMap[f]; exists && len(torrents) > 1 {
			return false
		}
	}

	return true
}

// HasPath returns true when the given local path belongs to any known
// torrent, either as a file or as a parent directory of one.
func (t *TorrentFileMap) HasPath(path string) bool {
	if val, found := t.pathCache.Load(path); found {
		return val.(bool)
	}

	t.mu.RLock()
	var found bool
	for torrentPath := range t.torrentFileMap {
		if strings.Contains(torrentPath, path) {
			found = true
			break
		}
	}
	t.mu.RUnlock()

	t.pathCache.Store(path, found)

	return found
}

func (t *TorrentFileMap) Length() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.torrentFileMap)
}

func localFiles(torrent config.Torrent, pm *pathmap.Mapper) []string {
	files := torrent.AbsFiles(torrent.DownloadDir)
	if pm == nil {
		return files
	}

	for i, f := range files {
		files[i] = pm.Apply(f)
	}
	return files
}

package paths

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/rlcone/ptm/pkg/logger"
)

type Path struct {
	Path         string
	RealPath     string
	FileName     string
	Directory    string
	IsDir        bool
	Size         int64
	ModifiedTime time.Time
}

type callbackAllowed func(string) *string

var (
	log = logger.GetLogger("paths")
)

func GetPathsInFolder(folder string, includeFiles bool, includeFolders bool, acceptFn callbackAllowed) ([]Path, uint64) {
	var paths []Path
	var size uint64 = 0
	var mutex sync.Mutex

	conf := fastwalk.Config{
		Follow: false,
	}

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.WithError(err).Errorf("Error accessing path %q during walk", path)
			if os.IsPermission(err) {
				log.Warnf("Permission error on %q, continuing walk if possible...", path)
			}
			return nil
		}

		if path == folder {
			return nil
		}

		isDir := d.IsDir()

		if !includeFiles && !isDir {
			log.Tracef("Skipping file: %s", path)
			return nil
		}

		if !includeFolders && isDir {
			log.Tracef("Skipping folder: %s", path)
			return nil
		}

		realPath := path
		finalPath := path
		if acceptFn != nil {
			if acceptedPath := acceptFn(path); acceptedPath == nil {
				log.Tracef("Skipping rejected path: %s", path)
				return nil
			} else {
				finalPath = *acceptedPath
			}
		}

		info, err := d.Info()
		if err != nil {
			log.WithError(err).Errorf("Failed to get file info for %s", path)
			return nil
		}

		foundPath := Path{
			Path:         finalPath,
			RealPath:     realPath,
			FileName:     info.Name(),
			Directory:    filepath.Dir(path),
			IsDir:        isDir,
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		}

		mutex.Lock()
		paths = append(paths, foundPath)
		size += uint64(info.Size())
		mutex.Unlock()

		return nil
	}

	err := fastwalk.Walk(&conf, folder, walkFn)
	if err != nil {
		log.WithError(err).Errorf("Failed to walk directory %s", folder)
	}

	return paths, size
}

// IsIgnored returns true when path matches any of the given patterns,
// either as a glob on the base name or as a path prefix.
func IsIgnored(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, filepath.Base(path)); err == nil && ok {
			return true
		}

		if strings.HasPrefix(path, pattern) {
			return true
		}
	}

	return false
}

// IsDirEmpty returns true when the directory contains no entries.
func IsDirEmpty(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	return len(entries) == 0
}

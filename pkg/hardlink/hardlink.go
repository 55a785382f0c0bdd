package hardlink

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rlcone/ptm/pkg/logger"
)

var (
	log = logger.GetLogger("hardlink")
)

// Link recursively hard links src (file or directory) to dst. Directories are
// merged, files are linked. With force set, an existing destination file whose
// identity differs from the source is replaced. A directory is never replaced
// with a file, nor a file with a directory.
func Link(src string, dst string, force bool) error {
	src, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("abs src: %w", err)
	}

	dst, err = filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("abs dst: %w", err)
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat src: %w", err)
	}

	if srcInfo.IsDir() {
		return linkTree(src, dst, force)
	}

	return linkFile(src, dst, force)
}

func linkTree(src string, dst string, force bool) error {
	if info, err := os.Stat(dst); err == nil && !info.IsDir() {
		return fmt.Errorf("cannot replace file with directory: %q", dst)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk: %q: %w", path, err)
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("rel: %q: %w", path, err)
		}

		target := filepath.Join(dst, rel)

		if d.IsDir() {
			// replace a directory symlink at the target with a real directory
			if info, lerr := os.Lstat(target); lerr == nil && info.Mode()&os.ModeSymlink != 0 {
				if rerr := os.Remove(target); rerr != nil {
					return fmt.Errorf("remove symlink: %q: %w", target, rerr)
				}
			}

			if merr := os.MkdirAll(target, 0o755); merr != nil {
				return fmt.Errorf("mkdir: %q: %w", target, merr)
			}

			return nil
		}

		// resolve file symlinks inside the source tree so links point at real data
		realPath := path
		if info, lerr := os.Lstat(path); lerr == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, rerr := filepath.EvalSymlinks(path)
			if rerr != nil {
				log.Warnf("Skipping broken symlink: %q", path)
				return nil
			}
			realPath = resolved
		}

		if lerr := linkFile(realPath, target, force); lerr != nil {
			return lerr
		}

		return nil
	})
}

func linkFile(src string, dst string, force bool) error {
	if src == dst {
		return fmt.Errorf("cannot link file to itself: %q", src)
	}

	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		return fmt.Errorf("cannot replace directory with file: %q", dst)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir: %q: %w", filepath.Dir(dst), err)
	}

	err := os.Link(src, dst)
	if err == nil {
		return nil
	}

	if !os.IsExist(err) {
		return fmt.Errorf("link: %q -> %q: %w", src, dst, err)
	}

	// destination exists already
	if same, serr := sameFile(src, dst); serr == nil && same {
		return nil
	}

	if !force {
		log.Warnf("Already exists: %q", dst)
		return nil
	}

	if err := os.Remove(dst); err != nil {
		return fmt.Errorf("remove existing: %q: %w", dst, err)
	}

	if err := os.Link(src, dst); err != nil {
		return fmt.Errorf("link: %q -> %q: %w", src, dst, err)
	}

	return nil
}

func sameFile(a string, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}

	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}

	return os.SameFile(ai, bi), nil
}

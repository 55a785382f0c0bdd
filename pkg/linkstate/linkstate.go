package linkstate

import (
	"os"
	"path/filepath"

	"github.com/scylladb/go-set/strset"

	"github.com/rlcone/ptm/pkg/logger"
)

type State int

const (
	Unlinked State = iota
	Partial
	Linked
)

func (s State) String() string {
	switch s {
	case Linked:
		return "linked"
	case Partial:
		return "partial"
	default:
		return "unlinked"
	}
}

// Report describes how much of a torrent's payload is reflected in a
// post-processing directory via hard links.
type Report struct {
	State State

	// destination paths that do not exist yet
	Missing *strset.Set
	// destination paths that exist but point at different underlying data
	Mismatched *strset.Set
}

var (
	log = logger.GetLogger("linkstate")
)

func identity(path string) (string, bool) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", false
	}

	id, _, err := LinkInfo(fi, path)
	if err != nil {
		log.Warnf("Failed to get file identifier: %s - %s", path, err)
		return "", false
	}

	return id, true
}

// Status inspects every source file against its counterpart below dstRoot.
// A file counts as linked when the destination exists and shares the source
// file's underlying identity (device+inode). Source files are expected to be
// absolute local paths below srcRoot.
func Status(files []string, srcRoot string, dstRoot string) Report {
	r := Report{
		Missing:    strset.New(),
		Mismatched: strset.New(),
	}

	linked := 0
	total := 0

	for _, f := range files {
		if f == "" {
			continue
		}
		total++

		rel, err := filepath.Rel(srcRoot, f)
		if err != nil {
			log.Warnf("File outside source root: %q (root: %q)", f, srcRoot)
			r.Missing.Add(f)
			continue
		}

		dst := filepath.Join(dstRoot, rel)

		srcID, ok := identity(f)
		if !ok {
			// source unverifiable, cannot claim the link exists
			r.Missing.Add(dst)
			continue
		}

		dstID, ok := identity(dst)
		if !ok {
			r.Missing.Add(dst)
			continue
		}

		if srcID != dstID {
			r.Mismatched.Add(dst)
			continue
		}

		linked++
	}

	switch {
	case total > 0 && linked == total:
		r.State = Linked
	case linked > 0:
		r.State = Partial
	default:
		r.State = Unlinked
	}

	return r
}

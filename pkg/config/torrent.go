package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rlcone/ptm/pkg/regex"
)

// Torrent is the transient per-run view of a torrent as reported by the
// download client. Nothing here is persisted, the list is re-fetched on every
// run.
type Torrent struct {
	Hash string `json:"Hash"`
	ID   int64  `json:"ID"`
	Name string `json:"Name"`

	// download directory as reported by the client, before any path mapping
	DownloadDir string `json:"DownloadDir"`
	// file paths relative to DownloadDir
	Files []string `json:"Files"`

	TotalBytes      int64 `json:"TotalBytes"`
	DownloadedBytes int64 `json:"DownloadedBytes"`

	PercentDone    float64 `json:"PercentDone"`
	Finished       bool    `json:"Finished"`
	Ratio          float64 `json:"Ratio"`
	SeedingSeconds int64   `json:"SeedingSeconds"`
	Label          string  `json:"Label"`

	TrackerName   string `json:"TrackerName"`
	TrackerStatus string `json:"TrackerStatus"`

	regexPattern *regex.Pattern
}

func (t *Torrent) SeedingFor() time.Duration {
	return time.Duration(t.SeedingSeconds) * time.Second
}

func (t *Torrent) SeedingDays() float64 {
	return t.SeedingFor().Hours() / 24
}

// AbsFiles resolves the torrent's relative file list against a base directory,
// typically the locally mapped download dir.
func (t *Torrent) AbsFiles(base string) []string {
	files := make([]string, 0, len(t.Files))
	for _, f := range t.Files {
		if f == "" {
			continue
		}
		files = append(files, filepath.Join(base, f))
	}

	return files
}

// RegexMatch delegates to the regex checker
func (t *Torrent) RegexMatch(pattern string) bool {
	// Compile pattern if needed
	if t.regexPattern == nil || t.regexPattern.Expression.String() != pattern {
		compiled, err := regex.Compile(pattern)
		if err != nil {
			return false
		}
		t.regexPattern = compiled
	}

	// Check pattern
	match, err := regex.Check(t.Name, t.regexPattern)
	if err != nil {
		return false
	}

	return match
}

// RegexMatchAny checks if the torrent name matches any of the provided patterns
func (t *Torrent) RegexMatchAny(patternsStr string) bool {
	var compiledPatterns []*regex.Pattern
	for _, p := range strings.Split(patternsStr, ",") {
		compiled, err := regex.Compile(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		compiledPatterns = append(compiledPatterns, compiled)
	}

	match, err := regex.CheckAny(t.Name, compiledPatterns)
	if err != nil {
		return false
	}

	return match
}

// RegexMatchAll checks if the torrent name matches all of the provided patterns
func (t *Torrent) RegexMatchAll(patternsStr string) bool {
	var compiledPatterns []*regex.Pattern
	for _, p := range strings.Split(patternsStr, ",") {
		compiled, err := regex.Compile(strings.TrimSpace(p))
		if err != nil {
			return false
		}
		compiledPatterns = append(compiledPatterns, compiled)
	}

	match, err := regex.CheckAll(t.Name, compiledPatterns)
	if err != nil {
		return false
	}

	return match
}

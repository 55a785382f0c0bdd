package config

import (
	"strings"
)

// TorrentRule maps a download directory onto a post-processing directory and
// carries the optional seed requirements a torrent in that directory must
// satisfy before it may be removed. Rules are static for the lifetime of a run.
type TorrentRule struct {
	DownloadDir       string   `yaml:"download_dir" koanf:"download_dir"`
	PostProcessingDir string   `yaml:"post_processing_dir" koanf:"post_processing_dir"`
	Ratio             *float64 `yaml:"ratio" koanf:"ratio"`
	SeedDays          *float64 `yaml:"seed_days" koanf:"seed_days"`
}

// Matches reports whether the torrent's local path falls below this rule's
// download directory.
func (r *TorrentRule) Matches(localPath string) bool {
	return strings.HasPrefix(localPath, r.DownloadDir)
}

// SeedGoalsMet reports whether the torrent has satisfied this rule's ratio and
// seed time requirements. Unset requirements always pass, so a rule without
// either allows removal as soon as linking is done.
func (r *TorrentRule) SeedGoalsMet(t *Torrent) bool {
	if r.Ratio != nil && t.Ratio < *r.Ratio {
		return false
	}

	if r.SeedDays != nil && t.SeedingDays() < *r.SeedDays {
		return false
	}

	return true
}

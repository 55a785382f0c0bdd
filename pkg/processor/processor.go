package processor

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/rlcone/ptm/pkg/client"
	"github.com/rlcone/ptm/pkg/config"
	"github.com/rlcone/ptm/pkg/expression"
	"github.com/rlcone/ptm/pkg/hardlink"
	"github.com/rlcone/ptm/pkg/linkstate"
	"github.com/rlcone/ptm/pkg/notification"
	"github.com/rlcone/ptm/pkg/pathmap"
	"github.com/rlcone/ptm/pkg/torrentfilemap"
)

// Processor walks a client's torrent list once and decides, per torrent,
// whether to hard-link its payload into the post-processing directory or to
// remove it from the client. A torrent is never linked and removed within the
// same run: removal requires the linked state to have been observed at the
// start of the decision.
type Processor struct {
	log    *logrus.Entry
	client client.Interface
	cfg    *config.Configuration
	pm     *pathmap.Mapper
	exp    *expression.Expressions
	sender notification.Sender
	dryRun bool

	tfm    *torrentfilemap.TorrentFileMap
	fields []notification.Field
}

type Options struct {
	Log        *logrus.Entry
	Client     client.Interface
	Config     *config.Configuration
	Expression *expression.Expressions
	Sender     notification.Sender
	DryRun     bool
}

type Stats struct {
	Linked  int
	Removed int
	Skipped int
	Errors  int

	RemovedBytes int64
}

func New(opts Options) *Processor {
	return &Processor{
		log:    opts.Log,
		client: opts.Client,
		cfg:    opts.Config,
		pm:     pathmap.New(opts.Config.MappedRemotePaths),
		exp:    opts.Expression,
		sender: opts.Sender,
		dryRun: opts.DryRun,
	}
}

// Fields returns the notification fields accumulated over the last Process
// call.
func (p *Processor) Fields() []notification.Field {
	return p.fields
}

func (p *Processor) Process(ctx context.Context, torrents map[string]config.Torrent) (*Stats, error) {
	stats := &Stats{}
	p.fields = nil

	if p.pm.Len() > 0 {
		p.log.Debugf("Loaded %d remote path mappings", p.pm.Len())
	}

	// removal deletes local data, so a torrent sharing files with another
	// torrent (cross-seed) must never be removed
	p.tfm = torrentfilemap.New(torrents, p.pm)

	// iterate in a stable order so runs over the same queue log identically
	hashes := make([]string, 0, len(torrents))
	for h := range torrents {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return torrents[hashes[i]].Name < torrents[hashes[j]].Name
	})

	for _, h := range hashes {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		t := torrents[h]
		p.processTorrent(ctx, &t, stats)
	}

	// show result
	p.log.Info("-----")
	p.log.Infof("Linked torrents: %d", stats.Linked)
	p.log.Infof("Removed torrents: %d (%s freed), %d errors",
		stats.Removed, humanize.IBytes(uint64(stats.RemovedBytes)), stats.Errors)
	p.log.Infof("Skipped torrents: %d", stats.Skipped)

	return stats, nil
}

func (p *Processor) processTorrent(ctx context.Context, t *config.Torrent, stats *Stats) {
	localDir := p.pm.Apply(t.DownloadDir)

	rule := p.matchRule(localDir)
	if rule == nil {
		p.log.Tracef("No rule for %s: %s (dir: %s)", t.Hash, t.Name, localDir)
		stats.Skipped++
		return
	}

	// never touch ignored torrents
	if p.exp != nil {
		match, reason, err := expression.CheckTorrentSingleMatchWithReason(t, p.exp.Ignores)
		if err != nil {
			p.log.WithError(err).Errorf("Failed evaluating ignore expressions for: %q", t.Name)
			stats.Errors++
			return
		}
		if match {
			p.log.Debugf("Ignoring %q, matched: %q", t.Name, reason)
			stats.Skipped++
			return
		}
	}

	if !t.Finished {
		p.log.Tracef("Not finished: %s (%.1f%%)", t.Name, t.PercentDone*100)
		stats.Skipped++
		return
	}

	// a finished torrent without a file list can never be linked, so it
	// would otherwise sit in the link branch forever
	if len(t.Files) == 0 {
		p.log.Warnf("No files reported for %q, skipping", t.Name)
		stats.Skipped++
		return
	}

	files := t.AbsFiles(localDir)
	report := linkstate.Status(files, localDir, rule.PostProcessingDir)

	switch {
	case report.State != linkstate.Linked:
		p.linkTorrent(t, rule, localDir, report, stats)
	case rule.SeedGoalsMet(t):
		if !p.tfm.IsUnique(*t, p.pm) {
			p.log.Warnf("Skipping non unique torrent | Name: %s / Label: %s / Tracker: %s",
				t.Name, t.Label, t.TrackerName)
			stats.Skipped++
			return
		}

		p.removeTorrent(ctx, t, rule, stats)
	default:
		p.log.Tracef("Still seeding: %q (ratio: %.2f, seeded: %.1f days)",
			t.Name, t.Ratio, t.SeedingDays())
		stats.Skipped++
	}
}

// matchRule returns the first configured rule whose download directory
// contains the given local path. Rule order in the config decides ties.
func (p *Processor) matchRule(localDir string) *config.TorrentRule {
	for i := range p.cfg.TorrentDirs {
		if p.cfg.TorrentDirs[i].Matches(localDir) {
			return &p.cfg.TorrentDirs[i]
		}
	}
	return nil
}

func (p *Processor) linkTorrent(t *config.Torrent, rule *config.TorrentRule, localDir string,
	report linkstate.Report, stats *Stats) {
	p.log.Info("-----")
	p.log.Infof("Linking: %q - %s | to: %q", t.Name, humanize.IBytes(uint64(t.TotalBytes)),
		rule.PostProcessingDir)
	p.log.Infof("Ratio: %.3f / Seed days: %.3f / Label: %s / Tracker: %s / State: %s",
		t.Ratio, t.SeedingDays(), t.Label, t.TrackerName, report.State)

	if p.dryRun {
		p.log.Warn("Dry-run enabled, skipping link...")
		stats.Linked++
		p.addField(notification.ActionLink, notification.BuildOptions{
			Torrent:    *t,
			LinkTarget: rule.PostProcessingDir,
		})
		return
	}

	failed := false
	for _, f := range t.Files {
		if f == "" {
			continue
		}

		src := filepath.Join(localDir, f)
		dst := filepath.Join(rule.PostProcessingDir, f)

		// force replaces destinations that point at different data
		if err := hardlink.Link(src, dst, report.Mismatched.Has(dst)); err != nil {
			p.log.WithError(err).Errorf("Failed linking file: %q", src)
			failed = true
			break
		}
	}

	if failed {
		// leave the torrent alone, next run retries the remaining files
		stats.Errors++
		return
	}

	p.log.Info("Linked")
	stats.Linked++
	p.addField(notification.ActionLink, notification.BuildOptions{
		Torrent:    *t,
		LinkTarget: rule.PostProcessingDir,
	})
}

func (p *Processor) removeTorrent(ctx context.Context, t *config.Torrent, rule *config.TorrentRule,
	stats *Stats) {
	reason := removalReason(t, rule)

	p.log.Info("-----")
	p.log.Infof("Removing: %q - %s | %s", t.Name, humanize.IBytes(uint64(t.DownloadedBytes)), reason)
	p.log.Infof("Ratio: %.3f / Seed days: %.3f / Label: %s / Tracker: %s / Tracker Status: %q",
		t.Ratio, t.SeedingDays(), t.Label, t.TrackerName, t.TrackerStatus)

	if p.dryRun {
		p.log.Warn("Dry-run enabled, skipping remove...")
		stats.Removed++
		stats.RemovedBytes += t.DownloadedBytes
		p.addField(notification.ActionRemove, notification.BuildOptions{
			Torrent:       *t,
			RemovalReason: reason,
		})
		return
	}

	removed, err := p.client.RemoveTorrent(ctx, t, true)
	if err != nil {
		p.log.WithError(err).Errorf("Failed removing torrent: %q", t.Name)
		stats.Errors++
		return
	} else if !removed {
		p.log.Errorf("Failed removing torrent: %q", t.Name)
		stats.Errors++
		return
	}

	p.log.Info("Removed")
	p.tfm.Remove(*t, p.pm)
	stats.Removed++
	stats.RemovedBytes += t.DownloadedBytes
	p.addField(notification.ActionRemove, notification.BuildOptions{
		Torrent:       *t,
		RemovalReason: reason,
	})
}

func (p *Processor) addField(action notification.Action, opts notification.BuildOptions) {
	if p.sender == nil || !p.sender.CanSend() {
		return
	}
	p.fields = append(p.fields, p.sender.BuildField(action, opts))
}

func removalReason(t *config.Torrent, rule *config.TorrentRule) string {
	var parts []string

	if rule.Ratio != nil {
		parts = append(parts, fmt.Sprintf("ratio %.2f >= %.2f", t.Ratio, *rule.Ratio))
	}
	if rule.SeedDays != nil {
		parts = append(parts, fmt.Sprintf("seeded %.1f >= %.1f days", t.SeedingDays(), *rule.SeedDays))
	}
	if len(parts) == 0 {
		return "no seed requirements"
	}

	return strings.Join(parts, ", ")
}

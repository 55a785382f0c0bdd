package client

import (
	"context"
	"fmt"
	"strings"

	qbit "github.com/autobrr/go-qbittorrent"
	"github.com/sirupsen/logrus"

	"github.com/rlcone/ptm/pkg/config"
	"github.com/rlcone/ptm/pkg/logger"
)

/* Struct */

type QBittorrent struct {
	Url      *string `validate:"required"`
	User     string
	Password string

	// internal
	log        *logrus.Entry
	clientType string
	client     *qbit.Client
}

/* Initializer */

func NewQBittorrent(name string) (Interface, error) {
	tc := QBittorrent{
		log:        logger.GetLogger(name),
		clientType: "qBittorrent",
	}

	// load config
	if err := config.K.Unmarshal(fmt.Sprintf("clients%s%s", config.Delimiter, name), &tc); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// validate config
	if errs := config.ValidateStruct(tc); errs != nil {
		return nil, fmt.Errorf("validate config: %v", errs)
	}

	// init client
	tc.client = qbit.NewClient(qbit.Config{
		Host:          *tc.Url,
		Username:      tc.User,
		Password:      tc.Password,
		TLSSkipVerify: true,
		BasicUser:     tc.User,
		BasicPass:     tc.Password,
		Log:           nil,
	})

	return &tc, nil
}

/* Interface */

func (c *QBittorrent) Type() string {
	return c.clientType
}

func (c *QBittorrent) Connect(ctx context.Context) error {
	// login
	if err := c.client.LoginCtx(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	// retrieve api version
	apiVersion, err := c.client.GetWebAPIVersionCtx(ctx)
	if err != nil {
		return fmt.Errorf("get api version: %w", err)
	}

	c.log.Debugf("API Version: %v", apiVersion)
	return nil
}

func (c *QBittorrent) GetTorrents(ctx context.Context) (map[string]config.Torrent, error) {
	// retrieve torrents from client
	c.log.Tracef("Retrieving torrents...")
	t, err := c.client.GetTorrentsCtx(ctx, qbit.TorrentFilterOptions{IncludeTrackers: true})
	if err != nil {
		return nil, fmt.Errorf("get torrents: %w", err)
	}
	c.log.Tracef("Retrieved %d torrents", len(t))

	// build torrent list
	torrents := make(map[string]config.Torrent)
	for _, t := range t {
		// get additional torrent details
		td, err := c.client.GetTorrentPropertiesCtx(ctx, t.Hash)
		if err != nil {
			return nil, fmt.Errorf("get torrent properties: %v: %w", t.Hash, err)
		}

		tf, err := c.client.GetFilesInformationCtx(ctx, t.Hash)
		if err != nil {
			return nil, fmt.Errorf("get torrent files: %v: %w", t.Hash, err)
		}

		// parse tracker details
		trackerName := ""
		trackerStatus := ""

		trackers := t.Trackers
		// in qBittorrent v5.1+ includeTrackers populates trackers, older
		// versions need a per-torrent fetch
		if len(trackers) == 0 {
			ts, err := c.client.GetTorrentTrackersCtx(ctx, t.Hash)
			if err != nil {
				return nil, fmt.Errorf("get torrent trackers: %v: %w", t.Hash, err)
			}
			trackers = ts
		}

		for _, tracker := range trackers {
			// skip disabled trackers
			if strings.Contains(tracker.Url, "[DHT]") || strings.Contains(tracker.Url, "[LSD]") ||
				strings.Contains(tracker.Url, "[PeX]") {
				continue
			}

			// use status of first enabled tracker
			trackerName = parseTrackerDomain(tracker.Url)
			trackerStatus = tracker.Message
			break
		}

		// torrent files, relative to the save path
		var files []string
		for _, f := range *tf {
			files = append(files, f.Name)
		}

		torrent := config.Torrent{
			Hash:            t.Hash,
			Name:            t.Name,
			DownloadDir:     td.SavePath,
			Files:           files,
			TotalBytes:      t.Size,
			DownloadedBytes: td.TotalDownloaded,
			PercentDone:     t.Progress,
			Finished:        t.Progress >= 1,
			Ratio:           td.ShareRatio,
			SeedingSeconds:  int64(td.SeedingTime),
			Label:           t.Category,
			TrackerName:     trackerName,
			TrackerStatus:   trackerStatus,
		}

		torrents[torrent.Hash] = torrent
	}

	return torrents, nil
}

func (c *QBittorrent) RemoveTorrent(ctx context.Context, t *config.Torrent, deleteData bool) (bool, error) {
	if err := c.client.DeleteTorrentsCtx(ctx, []string{t.Hash}, deleteData); err != nil {
		return false, fmt.Errorf("delete torrent: %v: %w", t.Hash, err)
	}

	return true, nil
}

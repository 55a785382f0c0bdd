package client

import (
	"context"
	"fmt"
	"time"

	delugeclient "github.com/autobrr/go-deluge"
	"github.com/sirupsen/logrus"

	"github.com/rlcone/ptm/pkg/config"
	"github.com/rlcone/ptm/pkg/logger"
)

/* Struct */

type Deluge struct {
	Host     *string `validate:"required"`
	Port     *uint   `validate:"required"`
	Login    *string `validate:"required"`
	Password *string `validate:"required"`
	V2       bool

	// internal
	log        *logrus.Entry
	clientType string
	client     *delugeclient.LabelPlugin
	client1    *delugeclient.Client
	client2    *delugeclient.ClientV2
}

/* Initializer */

func NewDeluge(name string) (Interface, error) {
	tc := Deluge{
		log:        logger.GetLogger(name),
		clientType: "Deluge",
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
	settings := delugeclient.Settings{
		Hostname: *tc.Host,
		Port:     *tc.Port,
		Login:    *tc.Login,
		Password: *tc.Password,
	}

	if tc.V2 {
		tc.client2 = delugeclient.NewV2(settings)
	} else {
		tc.client1 = delugeclient.NewV1(settings)
	}

	return &tc, nil
}

/* Interface */

func (c *Deluge) Type() string {
	return c.clientType
}

func (c *Deluge) Connect(ctx context.Context) error {
	var err error

	// connect to deluge daemon
	c.log.Tracef("Connecting to %s:%d", *c.Host, *c.Port)

	if c.V2 {
		err = c.client2.Connect(ctx)
	} else {
		err = c.client1.Connect(ctx)
	}

	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	// retrieve & set common label client
	var lc *delugeclient.LabelPlugin

	if c.V2 {
		lc, err = c.client2.LabelPlugin(ctx)
	} else {
		lc, err = c.client1.LabelPlugin(ctx)
	}

	if err != nil {
		return fmt.Errorf("get label plugin: %w", err)
	}

	// retrieve daemon version
	daemonVersion, err := lc.DaemonVersion(ctx)
	if err != nil {
		return fmt.Errorf("get daemon version: %w", err)
	}
	c.log.Debugf("Daemon Version: %v", daemonVersion)

	c.client = lc
	return nil
}

func (c *Deluge) GetTorrents(ctx context.Context) (map[string]config.Torrent, error) {
	// retrieve torrents from client
	c.log.Tracef("Retrieving torrents...")
	t, err := c.client.TorrentsStatus(ctx, delugeclient.StateUnspecified, nil)
	if err != nil {
		return nil, fmt.Errorf("get torrents: %w", err)
	}
	c.log.Tracef("Retrieved %d torrents", len(t))

	// retrieve torrent labels
	labels, err := c.client.GetTorrentsLabels(delugeclient.StateUnspecified, nil)
	if err != nil {
		return nil, fmt.Errorf("get torrent labels: %w", err)
	}
	c.log.Tracef("Retrieved labels for %d torrents", len(labels))

	// build torrent list
	torrents := make(map[string]config.Torrent)
	for h, t := range t {
		// torrent files, relative to the download location
		var files []string
		for _, f := range t.Files {
			files = append(files, f.Path)
		}

		// get torrent label
		label := ""
		if l, ok := labels[h]; ok {
			label = l
		}

		percentDone := 0.0
		if t.TotalSize > 0 {
			percentDone = float64(t.TotalDone) / float64(t.TotalSize)
		}

		torrent := config.Torrent{
			Hash:            h,
			Name:            t.Name,
			DownloadDir:     t.DownloadLocation,
			Files:           files,
			TotalBytes:      t.TotalSize,
			DownloadedBytes: t.TotalDone,
			PercentDone:     percentDone,
			Finished:        t.TotalDone == t.TotalSize,
			Ratio:           float64(t.Ratio),
			SeedingSeconds:  t.SeedingTime,
			Label:           label,
			TrackerName:     t.TrackerHost,
			TrackerStatus:   t.TrackerStatus,
		}

		torrents[h] = torrent
	}

	return torrents, nil
}

func (c *Deluge) RemoveTorrent(ctx context.Context, t *config.Torrent, deleteData bool) (bool, error) {
	// pause torrent
	if err := c.client.PauseTorrents(ctx, t.Hash); err != nil {
		return false, fmt.Errorf("pause torrent: %v: %w", t.Hash, err)
	}

	time.Sleep(1 * time.Second)

	// resume torrent
	if err := c.client.ResumeTorrents(ctx, t.Hash); err != nil {
		return false, fmt.Errorf("resume torrent: %v: %w", t.Hash, err)
	}

	// sleep before re-announcing torrent
	time.Sleep(2 * time.Second)

	// re-announce torrent
	if err := c.client.ForceReannounce(ctx, []string{t.Hash}); err != nil {
		return false, fmt.Errorf("re-announce torrent: %v: %w", t.Hash, err)
	}

	// sleep before removing torrent
	time.Sleep(2 * time.Second)

	// remove
	if ok, err := c.client.RemoveTorrent(ctx, t.Hash, deleteData); err != nil {
		return false, fmt.Errorf("remove torrent: %v: %w", t.Hash, err)
	} else if !ok {
		return false, fmt.Errorf("remove torrent: %v", t.Hash)
	}

	return true, nil
}

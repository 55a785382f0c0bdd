package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rlcone/ptm/pkg/config"
	"github.com/rlcone/ptm/pkg/httputils"
	"github.com/rlcone/ptm/pkg/logger"
)

/* Struct */

type Transmission struct {
	Host     *string `validate:"required"`
	Port     *uint   `validate:"required"`
	User     string
	Password string
	RPCPath  string `koanf:"rpc_path"`

	// internal
	log        *logrus.Entry
	clientType string
	client     *http.Client
	rpcURL     string
	sessionID  string
}

type rpcRequest struct {
	Method    string      `json:"method"`
	Arguments interface{} `json:"arguments,omitempty"`
}

type rpcResponse struct {
	Result    string          `json:"result"`
	Arguments json.RawMessage `json:"arguments"`
}

type torrentGetArgs struct {
	Fields []string `json:"fields"`
}

type torrentRemoveArgs struct {
	IDs             []int64 `json:"ids"`
	DeleteLocalData bool    `json:"delete-local-data"`
}

type transmissionFile struct {
	Name           string `json:"name"`
	Length         int64  `json:"length"`
	BytesCompleted int64  `json:"bytesCompleted"`
}

type transmissionTrackerStat struct {
	Announce           string `json:"announce"`
	LastAnnounceResult string `json:"lastAnnounceResult"`
}

type transmissionTorrent struct {
	ID             int64                     `json:"id"`
	HashString     string                    `json:"hashString"`
	Name           string                    `json:"name"`
	DownloadDir    string                    `json:"downloadDir"`
	TotalSize      int64                     `json:"totalSize"`
	DownloadedEver int64                     `json:"downloadedEver"`
	PercentDone    float64                   `json:"percentDone"`
	UploadRatio    float64                   `json:"uploadRatio"`
	SecondsSeeding int64                     `json:"secondsSeeding"`
	IsFinished     bool                      `json:"isFinished"`
	Labels         []string                  `json:"labels"`
	Files          []transmissionFile        `json:"files"`
	TrackerStats   []transmissionTrackerStat `json:"trackerStats"`
}

var torrentGetFields = []string{
	"id",
	"hashString",
	"name",
	"downloadDir",
	"totalSize",
	"downloadedEver",
	"percentDone",
	"uploadRatio",
	"secondsSeeding",
	"isFinished",
	"labels",
	"files",
	"trackerStats",
}

const sessionHeader = "X-Transmission-Session-Id"

/* Initializer */

func NewTransmission(name string) (Interface, error) {
	tc := Transmission{
		log:        logger.GetLogger(name),
		clientType: "Transmission",
	}

	// load config
	if err := config.K.Unmarshal(fmt.Sprintf("clients%s%s", config.Delimiter, name), &tc); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// validate config
	if errs := config.ValidateStruct(tc); errs != nil {
		return nil, fmt.Errorf("validate config: %v", errs)
	}

	if tc.RPCPath == "" {
		tc.RPCPath = "/transmission/rpc"
	}

	tc.rpcURL = fmt.Sprintf("http://%s:%d%s", *tc.Host, *tc.Port, tc.RPCPath)
	tc.client = httputils.NewRetryableHttpClient(30*time.Second, nil)

	return &tc, nil
}

/* Interface */

func (c *Transmission) Type() string {
	return c.clientType
}

func (c *Transmission) Connect(ctx context.Context) error {
	c.log.Tracef("Connecting to %s", c.rpcURL)

	// session-get doubles as the reachability check and primes the session id
	var args struct {
		Version    string      `json:"version"`
		RPCVersion json.Number `json:"rpc-version"`
	}
	if err := c.call(ctx, "session-get", nil, &args); err != nil {
		return errors.Wrap(err, "session-get")
	}

	c.log.Debugf("Daemon Version: %v (rpc: %v)", args.Version, args.RPCVersion)
	return nil
}

func (c *Transmission) GetTorrents(ctx context.Context) (map[string]config.Torrent, error) {
	// retrieve torrents from client
	c.log.Tracef("Retrieving torrents...")

	var resp struct {
		Torrents []transmissionTorrent `json:"torrents"`
	}
	if err := c.call(ctx, "torrent-get", torrentGetArgs{Fields: torrentGetFields}, &resp); err != nil {
		return nil, errors.Wrap(err, "torrent-get")
	}
	c.log.Tracef("Retrieved %d torrents", len(resp.Torrents))

	// build torrent list
	torrents := make(map[string]config.Torrent)
	for _, t := range resp.Torrents {
		// parse tracker details
		trackerName := ""
		trackerStatus := ""
		for _, ts := range t.TrackerStats {
			trackerName = parseTrackerDomain(ts.Announce)
			trackerStatus = ts.LastAnnounceResult
			break
		}

		files := make([]string, 0, len(t.Files))
		for _, f := range t.Files {
			files = append(files, f.Name)
		}

		label := ""
		if len(t.Labels) > 0 {
			label = t.Labels[0]
		}

		torrent := config.Torrent{
			Hash:            t.HashString,
			ID:              t.ID,
			Name:            t.Name,
			DownloadDir:     t.DownloadDir,
			Files:           files,
			TotalBytes:      t.TotalSize,
			DownloadedBytes: t.DownloadedEver,
			PercentDone:     t.PercentDone,
			Finished:        t.IsFinished || t.PercentDone >= 1,
			Ratio:           t.UploadRatio,
			SeedingSeconds:  t.SecondsSeeding,
			Label:           label,
			TrackerName:     trackerName,
			TrackerStatus:   trackerStatus,
		}

		torrents[torrent.Hash] = torrent
	}

	return torrents, nil
}

func (c *Transmission) RemoveTorrent(ctx context.Context, t *config.Torrent, deleteData bool) (bool, error) {
	if err := c.call(ctx, "torrent-remove", torrentRemoveArgs{
		IDs:             []int64{t.ID},
		DeleteLocalData: deleteData,
	}, nil); err != nil {
		return false, errors.Wrap(err, "torrent-remove")
	}

	return true, nil
}

/* Private */

// call performs one RPC round trip, transparently re-issuing the request when
// the daemon demands a new CSRF session id via 409.
func (c *Transmission) call(ctx context.Context, method string, args interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{Method: method, Arguments: args})
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	res, err := c.post(ctx, body)
	if err != nil {
		return err
	}

	if res.StatusCode == http.StatusConflict {
		c.sessionID = res.Header.Get(sessionHeader)
		c.log.Tracef("Renewed session id: %s", c.sessionID)
		res.Body.Close()

		if res, err = c.post(ctx, body); err != nil {
			return err
		}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var rpcRes rpcResponse
	if err := json.NewDecoder(res.Body).Decode(&rpcRes); err != nil {
		return errors.Wrap(err, "decode response")
	}

	if rpcRes.Result != "success" {
		return fmt.Errorf("rpc result: %q", rpcRes.Result)
	}

	if result != nil && len(rpcRes.Arguments) > 0 {
		if err := json.Unmarshal(rpcRes.Arguments, result); err != nil {
			return errors.Wrap(err, "unmarshal arguments")
		}
	}

	return nil
}

func (c *Transmission) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.Header.Set(sessionHeader, c.sessionID)
	}
	if c.User != "" {
		req.SetBasicAuth(c.User, c.Password)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}

	return res, nil
}

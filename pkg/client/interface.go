package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/rlcone/ptm/pkg/config"
)

type Interface interface {
	Type() string
	Connect(ctx context.Context) error
	GetTorrents(ctx context.Context) (map[string]config.Torrent, error)
	RemoveTorrent(ctx context.Context, torrent *config.Torrent, deleteData bool) (bool, error)
}

func NewClient(clientType string, clientName string) (Interface, error) {
	switch strings.ToLower(clientType) {
	case "transmission":
		return NewTransmission(clientName)
	case "qbittorrent":
		return NewQBittorrent(clientName)
	case "deluge":
		return NewDeluge(clientName)
	default:
		return nil, fmt.Errorf("unsupported client type: %q", clientType)
	}
}

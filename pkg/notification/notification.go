package notification

import (
	"time"

	"github.com/rlcone/ptm/pkg/config"
)

type Action int

const (
	ActionLink Action = iota + 1
	ActionRemove
	ActionOrphan
)

type Sender interface {
	CanSend() bool
	Send(title string, description string, client string, runTime time.Duration, fields []Field, dryRun bool) error
	BuildField(action Action, options BuildOptions) Field
	Name() string
}

type Field struct {
	Name  string
	Value string
}

type BuildOptions struct {
	Torrent config.Torrent

	// link
	LinkTarget string

	// remove
	RemovalReason string

	// orphan
	Orphan     string
	OrphanSize int64
	IsFile     bool
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"

	"github.com/rlcone/ptm/pkg/logger"
	"github.com/rlcone/ptm/pkg/stringutils"
)

type OrphanConfig struct {
	GracePeriod time.Duration `yaml:"grace_period" koanf:"grace_period"`
	IgnorePaths []string      `yaml:"ignore_paths" koanf:"ignore_paths"`
}

type Configuration struct {
	// shorthand for the default transmission client
	TransmissionHost string `yaml:"transmission_host" koanf:"transmission_host"`
	TransmissionPort uint   `yaml:"transmission_port" koanf:"transmission_port"`

	// additional/overriding client definitions, keyed by client name
	Clients map[string]map[string]interface{} `koanf:"clients"`

	// remote path prefix -> local path prefix
	MappedRemotePaths map[string]string `yaml:"mapped_remote_paths" koanf:"mapped_remote_paths"`

	TorrentDirs []TorrentRule `yaml:"torrent_dirs" koanf:"torrent_dirs"`

	// torrents matching any of these expressions are never touched
	Ignore []string `koanf:"ignore"`

	Orphan        OrphanConfig        `koanf:"orphan"`
	Notifications NotificationsConfig `koanf:"notifications"`
}

/* Vars */

var (
	cfgPath = ""

	Delimiter = "."
	Config    *Configuration
	K         = koanf.New(Delimiter)

	// Internal
	log = logger.GetLogger("cfg")
)

/* Public */

func Init(configFilePath string) error {
	// set package variables
	cfgPath = configFilePath

	// load config
	if err := K.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
		return fmt.Errorf("load file: %w", err)
	}

	// load environment variables
	if err := K.Load(env.Provider("PTM__", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "PTM__")), "_", ".", -1)
	}), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	// unmarshal config
	if err := K.Unmarshal("", &Config); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	if err := Config.setDefaults(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}

	return Config.validate()
}

func ShowUsing() {
	log.Infof("Using %s = %q", stringutils.LeftJust("CONFIG", " ", 10), cfgPath)
}

/* Private */

// setDefaults synthesizes the default transmission client entry from the
// transmission_host / transmission_port shorthand keys.
func (c *Configuration) setDefaults() error {
	if c.TransmissionHost == "" {
		c.TransmissionHost = "localhost"
	}
	if c.TransmissionPort == 0 {
		c.TransmissionPort = 9091
	}

	if c.Clients == nil {
		c.Clients = map[string]map[string]interface{}{}
	}

	if _, ok := c.Clients["transmission"]; !ok {
		c.Clients["transmission"] = map[string]interface{}{
			"type": "transmission",
			"host": c.TransmissionHost,
			"port": c.TransmissionPort,
		}

		// expose the synthesized entry to koanf so the client initializer can
		// unmarshal its section the same way explicit clients do
		if err := K.Load(confmap.Provider(map[string]interface{}{
			"clients.transmission.type": "transmission",
			"clients.transmission.host": c.TransmissionHost,
			"clients.transmission.port": c.TransmissionPort,
		}, Delimiter), nil); err != nil {
			return fmt.Errorf("load synthesized client: %w", err)
		}
	}

	if c.Orphan.GracePeriod == 0 {
		c.Orphan.GracePeriod = 10 * time.Minute
	}

	return nil
}

func (c *Configuration) validate() error {
	for i, rule := range c.TorrentDirs {
		if rule.DownloadDir == "" {
			return fmt.Errorf("torrent_dirs[%d]: download_dir must be set", i)
		}
		if rule.PostProcessingDir == "" {
			return fmt.Errorf("torrent_dirs[%d]: post_processing_dir must be set", i)
		}
	}

	return nil
}

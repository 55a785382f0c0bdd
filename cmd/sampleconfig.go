package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const sampleConfig = `# Connection details for the default transmission client.
transmission_host: localhost
transmission_port: 9091

# Additional or overriding client definitions, keyed by name.
# Supported types: transmission, qbittorrent, deluge.
#clients:
#  qbit:
#    type: qbittorrent
#    url: http://localhost:8080
#    user: admin
#    password: admin

# Remote path prefix -> local path prefix. Longest prefix wins.
mapped_remote_paths:
  /mnt/pool/downloads: /Volumes/downloads

# Download directories and their post-processing targets. First matching
# rule (in order) applies. ratio / seed_days are optional, unset means no
# requirement.
torrent_dirs:
  - download_dir: /Volumes/downloads/tv
    post_processing_dir: /Volumes/processing/tv
    ratio: 2.0
    seed_days: 7.0
  - download_dir: /Volumes/downloads/movies
    post_processing_dir: /Volumes/processing/movies
    ratio: 2.0

# Torrents matching any of these expressions are never touched.
#ignore:
#  - Label == "keep-forever"
#  - TrackerName == "example.org"

orphan:
  grace_period: 10m
  ignore_paths:
    - "*.part"

#notifications:
#  detailed: true
#  skip_empty_run: true
#  service:
#    discord:
#      webhook_url: https://discord.com/api/webhooks/...
`

var sampleConfigCmd = &cobra.Command{
	Use:   "sample-config",
	Short: "Print a sample config file",
	Long:  `Prints a commented sample config file to stdout.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(sampleConfig)
	},
	DisableFlagsInUseLine: true,
}

func init() {
	rootCmd.AddCommand(sampleConfigCmd)
}

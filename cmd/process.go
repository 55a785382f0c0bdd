package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rlcone/ptm/pkg/client"
	"github.com/rlcone/ptm/pkg/config"
	"github.com/rlcone/ptm/pkg/expression"
	"github.com/rlcone/ptm/pkg/logger"
	"github.com/rlcone/ptm/pkg/notification"
	"github.com/rlcone/ptm/pkg/processor"
)

var processCmd = &cobra.Command{
	Use:   "process [CLIENT]",
	Short: "Process completed torrents",
	Long: `This command checks the torrent client queue, hard-links finished torrents
into their post-processing directory and removes torrents whose seed
requirements have been met.`,

	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		start := time.Now()

		// init core
		if !initialized {
			initCore(true)
			initialized = true
		}

		// set log
		log := logger.GetLogger("process")

		noti := notification.NewDiscordSender(log, config.Config.Notifications)

		// retrieve client object
		clientName := "transmission"
		if len(args) > 0 {
			clientName = args[0]
		}

		clientConfig, ok := config.Config.Clients[clientName]
		if !ok {
			log.Fatalf("No client configuration found for: %q", clientName)
		}

		// validate client is enabled
		if err := validateClientEnabled(clientConfig); err != nil {
			log.WithError(err).Fatal("Failed validating client is enabled")
		}

		// retrieve client type
		clientType, err := getClientConfigString("type", clientConfig)
		if err != nil {
			log.WithError(err).Fatal("Failed determining client type")
		}

		// compile ignore expressions
		exp, err := expression.Compile(config.Config.Ignore)
		if err != nil {
			log.WithError(err).Fatal("Failed compiling ignore expressions")
		}

		// load client object
		c, err := client.NewClient(*clientType, clientName)
		if err != nil {
			log.WithError(err).Fatalf("Failed initializing client: %q", clientName)
		}

		log.Infof("Initialized client %q, type: %s", clientName, c.Type())

		// connect to client
		if err := c.Connect(ctx); err != nil {
			log.WithError(err).Fatal("Failed connecting")
		} else {
			log.Debugf("Connected to client")
		}

		// retrieve torrents
		torrents, err := c.GetTorrents(ctx)
		if err != nil {
			log.WithError(err).Fatal("Failed retrieving torrents")
		} else {
			log.Infof("Retrieved %d torrents", len(torrents))
		}

		if flagLogLevel > 1 {
			if b, err := json.Marshal(torrents); err != nil {
				log.WithError(err).Error("Failed marshalling torrents")
			} else {
				log.Trace(string(b))
			}
		}

		// link finished torrents and remove those whose seed goals are met
		proc := processor.New(processor.Options{
			Log:        log,
			Client:     c,
			Config:     config.Config,
			Expression: exp,
			Sender:     noti,
			DryRun:     flagDryRun,
		})

		stats, err := proc.Process(ctx, torrents)
		if err != nil {
			log.WithError(err).Fatal("Failed processing torrents")
		}

		if !noti.CanSend() {
			log.Debug("Notifications disabled, skipping...")
			return
		}

		sendErr := noti.Send(
			"Processed",
			fmt.Sprintf("Linked **%d** and removed **%d** torrents | Total reclaimed **%s**",
				stats.Linked, stats.Removed, humanize.IBytes(uint64(stats.RemovedBytes))),
			clientName,
			time.Since(start),
			proc.Fields(),
			flagDryRun,
		)
		if sendErr != nil {
			log.WithError(sendErr).Error("Failed sending notification")
		}
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}

package notification

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/autobrr/autobrr/pkg/errors"
	"github.com/autobrr/autobrr/pkg/sharedhttp"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/rlcone/ptm/pkg/config"
)

const (
	maxEmbedsPerMessage = 10

	// hardcoded limit of fields to avoid hammering the api
	maxTotalFields = 250
)

type DiscordMessage struct {
	Content   interface{}    `json:"content"`
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Embeds    []DiscordEmbed `json:"embeds,omitempty"`
}

type DiscordEmbed struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Color       int                  `json:"color"`
	Fields      []DiscordEmbedsField `json:"fields,omitempty"`
	Footer      DiscordEmbedsFooter  `json:"footer,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
}

type DiscordEmbedsFooter struct {
	Text string `json:"text"`
}

type DiscordEmbedsField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedColors int

const (
	LIGHT_BLUE EmbedColors = 0x58b9ff
	RED        EmbedColors = 0xed4245
	GREEN      EmbedColors = 0x57f287
	GRAY       EmbedColors = 0x99aab5
)

// Discord markdown characters that need escaping
var discordMarkdownChars = regexp.MustCompile(`([\\*_~` + "`" + `|>])`)

func escapeDiscordMarkdown(text string) string {
	if text == "" {
		return text
	}

	return discordMarkdownChars.ReplaceAllString(text, `\$1`)
}

type discordSender struct {
	log    *logrus.Entry
	config config.NotificationsConfig

	httpClient *http.Client
	rl         ratelimit.Limiter
}

func (d *discordSender) Name() string {
	return "discord"
}

func NewDiscordSender(log *logrus.Entry, config config.NotificationsConfig) Sender {
	return &discordSender{
		log:    log.WithField("sender", "discord"),
		config: config,
		httpClient: &http.Client{
			Timeout:   time.Second * 30,
			Transport: sharedhttp.Transport,
		},
		// webhooks allow ~30 requests/min, stay well under it
		rl: ratelimit.New(25, ratelimit.Per(time.Minute)),
	}
}

func (d *discordSender) CanSend() bool {
	return d.config.Service.Discord.WebhookURL != ""
}

func (d *discordSender) Send(title string, description string, client string, runTime time.Duration, fields []Field, dryRun bool) error {
	var (
		allEmbeds   []DiscordEmbed
		totalFields = len(fields)
		timestamp   = time.Now()
	)

	if dryRun {
		title = title + " [Dry Run]"
	}

	// skip sending entirely when nothing happened this run
	if totalFields == 0 && d.config.SkipEmptyRun {
		return nil
	}

	rt := runTime.Truncate(time.Millisecond).String()

	// only send a summary embed if no fields are present, there are more
	// fields than allowed, or the detailed setting is disabled
	if totalFields == 0 || totalFields > maxTotalFields || !d.config.Detailed {
		allEmbeds = append(allEmbeds, DiscordEmbed{
			Title:       escapeDiscordMarkdown(title),
			Description: description,
			Color:       int(LIGHT_BLUE),
			Footer: DiscordEmbedsFooter{
				Text: d.buildFooter(0, 0, client, rt),
			},
			Timestamp: timestamp,
		})
	} else {
		for i, field := range fields {
			embed := DiscordEmbed{
				Color:  int(LIGHT_BLUE),
				Fields: d.parseFieldValueToInlineFields(field.Value),
				Footer: DiscordEmbedsFooter{
					Text: d.buildFooter(i+1, totalFields, client, rt),
				},
				Timestamp: timestamp,
			}

			if field.Name != "" {
				embed.Description = fmt.Sprintf("**%s**", escapeDiscordMarkdown(field.Name))
			}

			allEmbeds = append(allEmbeds, embed)
		}

		if totalFields > 1 {
			allEmbeds = append(allEmbeds, DiscordEmbed{
				Title:       fmt.Sprintf("%s - Summary", escapeDiscordMarkdown(title)),
				Description: description,
				Color:       int(LIGHT_BLUE),
				Footer: DiscordEmbedsFooter{
					Text: d.buildFooter(0, 0, client, rt),
				},
				Timestamp: timestamp,
			})
		}
	}

	// batch embeds for messages (max 10 embeds per message)
	var batches [][]DiscordEmbed
	for len(allEmbeds) > 0 {
		n := min(len(allEmbeds), maxEmbedsPerMessage)
		batches = append(batches, allEmbeds[:n])
		allEmbeds = allEmbeds[n:]
	}

	totalMsgs := len(batches)

	for i, batch := range batches {
		if batch[0].Title == "" {
			batch[0].Title = escapeDiscordMarkdown(title)

			if totalMsgs > 1 {
				batch[0].Title = fmt.Sprintf("%s (%d/%d)", batch[0].Title, i+1, totalMsgs)
			}
		}

		msg := DiscordMessage{
			Content:   nil,
			Username:  d.config.Service.Discord.Username,
			AvatarURL: d.config.Service.Discord.AvatarURL,
			Embeds:    batch,
		}

		jsonData, err := json.Marshal(msg)
		if err != nil {
			return errors.Wrap(err, "could not marshal json request for a message chunk")
		}

		if sendErr := d.sendRequest(jsonData); sendErr != nil {
			return errors.Wrap(sendErr, "failed to send a message chunk to Discord")
		}

		d.log.Debugf("Sent Discord message %d/%d (%d embeds, %d chars).",
			i+1, totalMsgs, len(batch), len(jsonData))
	}

	d.log.Debugf("All %d Discord messages sent successfully.", totalMsgs)
	return nil
}

func (d *discordSender) sendRequest(jsonData []byte) error {
	d.rl.Take()

	req, err := http.NewRequest(http.MethodPost, d.config.Service.Discord.WebhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return errors.Wrap(err, "could not create request")
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := d.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "client request error")
	}
	defer res.Body.Close()

	d.log.Tracef("Discord response status: %d", res.StatusCode)

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNoContent {
		body, readErr := io.ReadAll(bufio.NewReader(res.Body))
		if readErr != nil {
			return errors.Wrap(readErr, "could not read body")
		}

		return errors.New("unexpected status: %v body: %v", res.StatusCode, string(body))
	}

	d.log.Debug("Notification successfully sent to discord")
	return nil
}

// BuildField constructs a Field based on the provided action and build options.
func (d *discordSender) BuildField(action Action, opt BuildOptions) Field {
	switch action {
	case ActionLink:
		return d.buildLinkField(opt.Torrent, opt.LinkTarget)
	case ActionRemove:
		return d.buildRemoveField(opt.Torrent, opt.RemovalReason)
	case ActionOrphan:
		return d.buildOrphanField(opt.Orphan, opt.OrphanSize, opt.IsFile)
	}

	return Field{}
}

func (d *discordSender) buildLinkField(torrent config.Torrent, linkTarget string) Field {
	var inlineFields []DiscordEmbedsField

	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Linked To",
		Value:  escapeDiscordMarkdown(linkTarget),
		Inline: false,
	})

	if torrent.Label != "" {
		inlineFields = append(inlineFields, DiscordEmbedsField{
			Name:   "Label",
			Value:  escapeDiscordMarkdown(torrent.Label),
			Inline: true,
		})
	}

	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Tracker",
		Value:  escapeDiscordMarkdown(torrent.TrackerName),
		Inline: true,
	})

	jsonData, _ := json.Marshal(inlineFields)

	return Field{
		Name:  fmt.Sprintf("%s (%s)", torrent.Name, humanize.IBytes(uint64(torrent.TotalBytes))),
		Value: string(jsonData),
	}
}

func (d *discordSender) buildRemoveField(torrent config.Torrent, reason string) Field {
	var inlineFields []DiscordEmbedsField

	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Ratio",
		Value:  fmt.Sprintf("%.2f", torrent.Ratio),
		Inline: true,
	})

	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Seeded",
		Value:  fmt.Sprintf("%.1f days", torrent.SeedingDays()),
		Inline: true,
	})

	if torrent.Label != "" {
		inlineFields = append(inlineFields, DiscordEmbedsField{
			Name:   "Label",
			Value:  escapeDiscordMarkdown(torrent.Label),
			Inline: true,
		})
	}

	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Tracker",
		Value:  escapeDiscordMarkdown(torrent.TrackerName),
		Inline: true,
	})

	if torrent.TrackerStatus != "" {
		inlineFields = append(inlineFields, DiscordEmbedsField{
			Name:   "Tracker Status",
			Value:  escapeDiscordMarkdown(torrent.TrackerStatus),
			Inline: false,
		})
	}

	if reason != "" {
		inlineFields = append(inlineFields, DiscordEmbedsField{
			Name:   "Reason",
			Value:  escapeDiscordMarkdown(reason),
			Inline: false,
		})
	}

	jsonData, _ := json.Marshal(inlineFields)

	return Field{
		Name:  fmt.Sprintf("%s (%s)", torrent.Name, humanize.IBytes(uint64(torrent.TotalBytes))),
		Value: string(jsonData),
	}
}

func (d *discordSender) buildOrphanField(orphan string, orphanSize int64, isFile bool) Field {
	var inlineFields []DiscordEmbedsField

	prefix := "Folder"
	if isFile {
		prefix = "File"
	}

	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Type",
		Value:  prefix,
		Inline: true,
	})

	if isFile {
		inlineFields = append(inlineFields, DiscordEmbedsField{
			Name:   "Size",
			Value:  humanize.IBytes(uint64(orphanSize)),
			Inline: true,
		})
	}

	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Path",
		Value:  escapeDiscordMarkdown(orphan),
		Inline: false,
	})

	jsonData, _ := json.Marshal(inlineFields)

	return Field{
		Name:  "",
		Value: string(jsonData),
	}
}

func (d *discordSender) buildFooter(progress int, totalFields int, client string, runTime string) string {
	if totalFields == 0 {
		return fmt.Sprintf("Client: %s | Started: %s ago", client, runTime)
	}

	return fmt.Sprintf("Progress: %d/%d | Client: %s | Started: %s ago", progress, totalFields, client, runTime)
}

func (d *discordSender) parseFieldValueToInlineFields(value string) []DiscordEmbedsField {
	var fields []DiscordEmbedsField

	if err := json.Unmarshal([]byte(value), &fields); err != nil {
		d.log.WithError(err).Error("Failed to parse field value as JSON")
		return []DiscordEmbedsField{}
	}

	return fields
}

package config

// NotificationsConfig controls run summaries sent after a command finishes.
// Detailed includes a field per linked/removed/orphaned item, SkipEmptyRun
// suppresses summaries for runs where nothing happened.
type NotificationsConfig struct {
	Detailed     bool
	SkipEmptyRun bool `yaml:"skip_empty_run" koanf:"skip_empty_run"`
	Service      NotificationService
}

type NotificationService struct {
	Discord DiscordConfig `yaml:"discord" koanf:"discord"`
}

// DiscordConfig holds the webhook settings for the Discord sender.
// Username and AvatarURL override the webhook defaults when set.
type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url" koanf:"webhook_url"`
	Username   string `yaml:"username" koanf:"username"`
	AvatarURL  string `yaml:"avatar_url" koanf:"avatar_url"`
}

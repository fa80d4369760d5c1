package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// OpenAI configuration
	OpenAIAPIKey  string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key (empty disables classification)"`
	OpenAIModel   string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"OpenAI model for classification"`
	OpenAIBaseURL string `long:"openai-base-url" env:"OPENAI_BASE_URL" description:"Custom OpenAI-compatible base URL"`

	// Telegram configuration
	TelegramEnabled  bool   `long:"telegram-enabled" env:"TELEGRAM_ENABLED" description:"Enable Telegram notifications"`
	TelegramBotToken string `long:"telegram-bot-token" env:"TELEGRAM_BOT_TOKEN" description:"Telegram bot token"`
	TelegramChatID   string `long:"telegram-chat-id" env:"TELEGRAM_CHAT_ID" description:"Telegram forum chat id"`

	// Feishu configuration
	FeishuEnabled           bool   `long:"feishu-enabled" env:"FEISHU_ENABLED" description:"Enable Feishu notifications"`
	FeishuReleaseWebhookURL string `long:"feishu-release-webhook-url" env:"FEISHU_RELEASE_WEBHOOK_URL" description:"Feishu webhook for release cards"`
	FeishuBlogWebhookURL    string `long:"feishu-blog-webhook-url" env:"FEISHU_BLOG_WEBHOOK_URL" description:"Feishu webhook for blog cards"`

	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"data/aipulse.db" description:"SQLite database path"`

	// Release source
	ReleaseEnabled              bool   `long:"release-enabled" env:"RELEASE_ENABLED" description:"Enable the vendor release pipeline"`
	ReleaseFetchIntervalMinutes int    `long:"release-fetch-interval" env:"RELEASE_FETCH_INTERVAL_MINUTES" default:"30" description:"Release fetch interval in minutes"`
	ReleaseDigestHourUTC        int    `long:"release-digest-hour" env:"RELEASE_DIGEST_HOUR_UTC" default:"1" description:"UTC hour for the daily release digest"`
	VendorsT0                   string `long:"vendors-t0" env:"VENDORS_T0" default:"openai,anthropic,google" description:"Tier 0 vendors (all importance levels pushed)"`
	VendorsT1                   string `long:"vendors-t1" env:"VENDORS_T1" default:"xai,meta,deepseek,qwen,minimax,zai,volcengine,cursor" description:"Tier 1 vendors (high and medium pushed)"`
	VendorsT2                   string `long:"vendors-t2" env:"VENDORS_T2" default:"vercel" description:"Tier 2 vendors (high only)"`

	// Blog source
	BlogEnabled              bool   `long:"blog-enabled" env:"BLOG_ENABLED" description:"Enable the blog pipeline"`
	BlogOPMLPath             string `long:"blog-opml-path" env:"BLOG_OPML_PATH" default:"config/blogs.opml" description:"OPML subscription list path"`
	BlogFetchIntervalMinutes int    `long:"blog-fetch-interval" env:"BLOG_FETCH_INTERVAL_MINUTES" default:"60" description:"Blog fetch interval in minutes"`
	BlogMaxArticlesPerFeed   int    `long:"blog-max-articles" env:"BLOG_MAX_ARTICLES_PER_FEED" default:"1" description:"Maximum new articles processed per feed per run"`
	BlogDigestHourUTC        int    `long:"blog-digest-hour" env:"BLOG_DIGEST_HOUR_UTC" default:"2" description:"UTC hour for the daily blog digest"`

	// Sitemap source
	SitemapEnabled              bool   `long:"sitemap-enabled" env:"SITEMAP_ENABLED" description:"Enable the sitemap pipeline"`
	SitemapConfigPath           string `long:"sitemap-config-path" env:"SITEMAP_CONFIG_PATH" default:"config/sitemaps.yaml" description:"Sitemap sources YAML path"`
	SitemapFetchIntervalMinutes int    `long:"sitemap-fetch-interval" env:"SITEMAP_FETCH_INTERVAL_MINUTES" default:"120" description:"Default sitemap fetch interval in minutes"`

	// Retention
	RetentionDays int `long:"retention-days" env:"RETENTION_DAYS" default:"30" description:"Days to keep processed records before cleanup"`

	// Application
	APIAccessKey string `long:"api-access-key" env:"API_ACCESS_KEY" description:"Access key for mutating API endpoints (empty disables them)"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount  int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers"`
	UserAgent    string `long:"user-agent" env:"USER_AGENT" default:"aipulse/1.0" description:"User agent string for HTTP requests"`
	Debug        bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		OpenAIAPIKey:                raw.OpenAIAPIKey,
		OpenAIModel:                 raw.OpenAIModel,
		OpenAIBaseURL:               raw.OpenAIBaseURL,
		TelegramEnabled:             raw.TelegramEnabled,
		TelegramBotToken:            raw.TelegramBotToken,
		TelegramChatID:              raw.TelegramChatID,
		FeishuEnabled:               raw.FeishuEnabled,
		FeishuReleaseWebhookURL:     raw.FeishuReleaseWebhookURL,
		FeishuBlogWebhookURL:        raw.FeishuBlogWebhookURL,
		DBPath:                      raw.DBPath,
		ReleaseEnabled:              raw.ReleaseEnabled,
		ReleaseFetchIntervalMinutes: raw.ReleaseFetchIntervalMinutes,
		ReleaseDigestHourUTC:        raw.ReleaseDigestHourUTC,
		VendorsT0:                   splitList(raw.VendorsT0),
		VendorsT1:                   splitList(raw.VendorsT1),
		VendorsT2:                   splitList(raw.VendorsT2),
		BlogEnabled:                 raw.BlogEnabled,
		BlogOPMLPath:                raw.BlogOPMLPath,
		BlogFetchIntervalMinutes:    raw.BlogFetchIntervalMinutes,
		BlogMaxArticlesPerFeed:      raw.BlogMaxArticlesPerFeed,
		BlogDigestHourUTC:           raw.BlogDigestHourUTC,
		SitemapEnabled:              raw.SitemapEnabled,
		SitemapConfigPath:           raw.SitemapConfigPath,
		SitemapFetchIntervalMinutes: raw.SitemapFetchIntervalMinutes,
		RetentionDays:               raw.RetentionDays,
		APIAccessKey:                raw.APIAccessKey,
		Port:                        raw.Port,
		WorkerCount:                 raw.WorkerCount,
		UserAgent:                   raw.UserAgent,
		Debug:                       raw.Debug,
		Version:                     GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(c *Cfg) error {
	if c.ReleaseDigestHourUTC < 0 || c.ReleaseDigestHourUTC > 23 {
		return fmt.Errorf("release digest hour must be 0-23, got %d", c.ReleaseDigestHourUTC)
	}
	if c.BlogDigestHourUTC < 0 || c.BlogDigestHourUTC > 23 {
		return fmt.Errorf("blog digest hour must be 0-23, got %d", c.BlogDigestHourUTC)
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("retention days must be positive, got %d", c.RetentionDays)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.WorkerCount)
	}
	return nil
}

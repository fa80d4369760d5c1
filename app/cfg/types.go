package cfg

type Cfg struct {
	// OpenAI (shared by both classifiers)
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Telegram
	TelegramEnabled  bool
	TelegramBotToken string
	TelegramChatID   string

	// Feishu
	FeishuEnabled           bool
	FeishuReleaseWebhookURL string
	FeishuBlogWebhookURL    string

	// Database
	DBPath string

	// Release source
	ReleaseEnabled              bool
	ReleaseFetchIntervalMinutes int
	ReleaseDigestHourUTC        int
	VendorsT0                   []string
	VendorsT1                   []string
	VendorsT2                   []string

	// Blog source
	BlogEnabled              bool
	BlogOPMLPath             string
	BlogFetchIntervalMinutes int
	BlogMaxArticlesPerFeed   int
	BlogDigestHourUTC        int

	// Sitemap source
	SitemapEnabled              bool
	SitemapConfigPath           string
	SitemapFetchIntervalMinutes int

	// Retention
	RetentionDays int

	// Application
	APIAccessKey string
	Port         string
	WorkerCount  int
	UserAgent    string
	Debug        bool
	Version      string
}

// AllVendors returns every configured vendor across all tiers.
func (c *Cfg) AllVendors() []string {
	out := make([]string, 0, len(c.VendorsT0)+len(c.VendorsT1)+len(c.VendorsT2))
	out = append(out, c.VendorsT0...)
	out = append(out, c.VendorsT1...)
	out = append(out, c.VendorsT2...)
	return out
}

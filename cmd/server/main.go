package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmtral/aipulse/app/api"
	"github.com/dmtral/aipulse/app/cfg"
	"github.com/dmtral/aipulse/app/classifier"
	"github.com/dmtral/aipulse/app/database"
	"github.com/dmtral/aipulse/app/fetcher"
	"github.com/dmtral/aipulse/app/model"
	"github.com/dmtral/aipulse/app/notifier"
	"github.com/dmtral/aipulse/app/pipeline"
	"github.com/dmtral/aipulse/app/routing"
	"github.com/dmtral/aipulse/app/tasks"
)

func main() {
	// .env is optional; real deployments set environment variables
	_ = godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting AI Pulse server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	recordRepo := database.NewRecordRepository(db)
	topicRepo := database.NewTopicRepository(db)

	httpClient := &http.Client{Timeout: 30 * time.Second}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancelStartup()

	var notifiers []notifier.Notifier
	if appCfg.TelegramEnabled {
		topicManager := notifier.NewTopicManager(topicRepo, appCfg.TelegramBotToken, appCfg.TelegramChatID, httpClient)
		if err := topicManager.EnsureTopics(startupCtx); err != nil {
			log.Fatalf("Failed to prepare Telegram topics: %v", err)
		}
		notifiers = append(notifiers, notifier.NewTelegram(appCfg.TelegramBotToken, appCfg.TelegramChatID, topicManager, httpClient))
	}
	if appCfg.FeishuEnabled {
		notifiers = append(notifiers, notifier.NewFeishu(appCfg.FeishuReleaseWebhookURL, appCfg.FeishuBlogWebhookURL, httpClient))
	}
	if len(notifiers) == 0 {
		slog.Warn("No notification channels enabled, records will be stored only")
	}

	var transport classifier.Transport
	if appCfg.OpenAIAPIKey != "" {
		transport = classifier.NewOpenAITransport(appCfg.OpenAIAPIKey, appCfg.OpenAIModel, appCfg.OpenAIBaseURL)
	} else {
		slog.Warn("OpenAI API key not set, classification disabled, items will be stored as irrelevant")
	}
	gateway := classifier.NewGateway(transport)

	table := routing.NewTable(appCfg.VendorsT0, appCfg.VendorsT1, appCfg.VendorsT2)
	processor := pipeline.NewProcessor(recordRepo, gateway, table, notifiers)

	scheduler := tasks.NewScheduler()
	registerSchedules(scheduler, appCfg, processor, recordRepo, table, notifiers, httpClient)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(db, recordRepo, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func registerSchedules(scheduler *tasks.Scheduler, appCfg *cfg.Cfg, processor *pipeline.Processor,
	recordRepo database.RecordRepository, table *routing.Table,
	notifiers []notifier.Notifier, httpClient *http.Client) {

	var sitemapSources []fetcher.SitemapSource
	if appCfg.SitemapEnabled {
		var err error
		sitemapSources, err = fetcher.LoadSitemapSources(appCfg.SitemapConfigPath)
		if err != nil {
			log.Fatalf("Failed to load sitemap sources: %v", err)
		}
	}

	var opmlFeeds []fetcher.FeedInfo
	if appCfg.BlogEnabled {
		feeds, err := fetcher.ParseOPML(appCfg.BlogOPMLPath)
		if err != nil {
			slog.Warn("Failed to parse OPML subscription list", "path", appCfg.BlogOPMLPath, "error", err)
		}
		opmlFeeds = feeds
	}

	if appCfg.ReleaseEnabled {
		releaseFetcher := fetcher.NewReleasebotFetcher(httpClient, appCfg.UserAgent, 10)
		vendors := appCfg.AllVendors()
		scheduler.AddIntervalTask(func() tasks.TaskInterface {
			return tasks.NewFetchReleasesTask(releaseFetcher, processor, vendors)
		}, time.Duration(appCfg.ReleaseFetchIntervalMinutes)*time.Minute, true)

		slog.Info("Release pipeline enabled", "vendors", len(vendors),
			"interval_minutes", appCfg.ReleaseFetchIntervalMinutes)
	}

	if appCfg.BlogEnabled {
		blogFetcher := fetcher.NewBlogFetcher(appCfg.BlogOPMLPath, appCfg.UserAgent, appCfg.BlogMaxArticlesPerFeed)
		scheduler.AddIntervalTask(func() tasks.TaskInterface {
			return tasks.NewFetchBlogsTask(blogFetcher, processor)
		}, time.Duration(appCfg.BlogFetchIntervalMinutes)*time.Minute, true)

		slog.Info("Blog pipeline enabled", "opml", appCfg.BlogOPMLPath,
			"interval_minutes", appCfg.BlogFetchIntervalMinutes)
	}

	if appCfg.SitemapEnabled {
		sitemapFetcher := fetcher.NewSitemapFetcher(httpClient)
		for _, source := range sitemapSources {
			source := source
			interval := appCfg.SitemapFetchIntervalMinutes
			if source.FetchIntervalMinutes > 0 {
				interval = source.FetchIntervalMinutes
			}
			scheduler.AddIntervalTask(func() tasks.TaskInterface {
				return tasks.NewFetchSitemapTask(sitemapFetcher, processor, source)
			}, time.Duration(interval)*time.Minute, true)
		}

		slog.Info("Sitemap pipeline enabled", "sources", len(sitemapSources))
	}

	releaseDigest, blogDigest := digestKindsNeeded(appCfg, sitemapSources, opmlFeeds)
	if releaseDigest {
		scheduler.AddDailyTask(func() tasks.TaskInterface {
			return tasks.NewDigestTask(model.KindRelease, recordRepo, table, notifiers)
		}, appCfg.ReleaseDigestHourUTC)
		slog.Info("Release digest scheduled", "hour_utc", appCfg.ReleaseDigestHourUTC)
	}
	if blogDigest {
		scheduler.AddDailyTask(func() tasks.TaskInterface {
			return tasks.NewDigestTask(model.KindBlog, recordRepo, table, notifiers)
		}, appCfg.BlogDigestHourUTC)
		slog.Info("Blog digest scheduled", "hour_utc", appCfg.BlogDigestHourUTC)
	}

	// Retention sweep runs weekly, early Sunday morning UTC
	scheduler.AddWeeklyTask(func() tasks.TaskInterface {
		return tasks.NewCleanupTask(recordRepo, appCfg.RetentionDays)
	}, time.Sunday, 3)
}

// digestKindsNeeded reports which record kinds accumulate rows and so
// need a daily digest. Release records come from the release pipeline,
// but also from sitemap sources and OPML feeds routed as releases, even
// when the release pipeline itself is disabled.
func digestKindsNeeded(appCfg *cfg.Cfg, sources []fetcher.SitemapSource, feeds []fetcher.FeedInfo) (release, blog bool) {
	release = appCfg.ReleaseEnabled
	blog = appCfg.BlogEnabled

	for _, source := range sources {
		if source.Kind() == model.KindRelease {
			release = true
		} else {
			blog = true
		}
	}
	for _, feed := range feeds {
		if feed.NotifyAs == model.KindRelease {
			release = true
		}
	}

	return release, blog
}

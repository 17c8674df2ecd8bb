package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"WealthPulse/internal/advisor"
	"WealthPulse/internal/cache"
	"WealthPulse/internal/collector"
	"WealthPulse/internal/config"
	"WealthPulse/internal/logger"
	"WealthPulse/internal/model"
	"WealthPulse/internal/notifier"
	"WealthPulse/internal/recorder"
	"WealthPulse/internal/scheduler"
	"WealthPulse/internal/server"
	"WealthPulse/internal/strategy"
)

func main() {
	cfgPath := config.DefaultPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		bootLog().Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(log)
	log.Info().Str("config", cfgPath).Msg("WealthPulse starting")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	waterfalls, err := cfg.Waterfalls()
	if err != nil {
		log.Fatal().Err(err).Msg("config waterfalls")
	}
	ttls, err := cfg.TTLs()
	if err != nil {
		log.Fatal().Err(err).Msg("config ttls")
	}

	// Init collector
	col, err := collector.New(collector.Options{
		Client: collector.NewHTTPClient(cfg.Proxy),
		FanOut: collector.FanOut{
			MaxParallel:   cfg.Collector.MaxParallel,
			SymbolTimeout: cfg.Collector.SymbolTimeout,
			Log:           log,
		},
		IBJAAPIKey: cfg.Collector.IBJAAPIKey,
		GoldAPIKey: cfg.Collector.GoldAPIKey,
		Waterfalls: waterfalls,
		BaseURLs:   cfg.Collector.BaseURLs,
		RetryPolicy: collector.RetryPolicy{
			Attempts: cfg.Collector.Retry.Attempts,
			Timeout:  cfg.Collector.Retry.Timeout,
			Backoff:  cfg.Collector.Retry.Backoff,
		},
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init collector")
	}
	for _, ds := range model.Datasets {
		names := make([]string, 0, len(col.Waterfalls[ds]))
		for _, a := range col.Waterfalls[ds] {
			names = append(names, a.Name())
		}
		log.Info().Str("dataset", string(ds)).Strs("adapters", names).Msg("waterfall")
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	quotes := cache.New(col.Collect, cache.Options{
		TTLs:        ttls,
		LoadTimeout: cfg.Cache.LoadTimeout,
		Store:       rec,
	}, log)

	// Init notifier
	var tn notifier.Notifier = notifier.Noop{}
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
	} else {
		log.Info().Msg("telegram not configured, alerts disabled")
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adv := advisor.New(newGateway(ctx, cfg, log), indexSource(quotes), cfg.Advisor.MaxPerHour, log)

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, quotes, col, tn, cfg.Collector.FundCodes, log)
	if err := sched.RegisterAll(cfg.Schedule.Refresh, cfg.Schedule.Probe); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Schedule.RunOnStart {
		log.Info().Msg("RUN_ON_START enabled, warming every dataset now")
		go sched.RunNow()
	}

	srv := server.New(server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		Log:         log,
		Quotes:      quotes,
		Prober:      col,
		Advisor:     adv,
		Recorder:    rec,
		Engine:      strategy.NewEngine(),
		Notifier:    tn,
		FundCodes:   cfg.Collector.FundCodes,
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().Int("port", cfg.Server.Port).Msg("WealthPulse is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	cancel()
	log.Info().Msg("WealthPulse stopped")
}

// bootLog is used before configuration decides the real log settings.
func bootLog() *zerolog.Logger {
	l := logger.New(logger.Config{Level: "info"})
	return &l
}

// newGateway picks the Gemini gateway when a key is available and the static
// fallback otherwise.
func newGateway(ctx context.Context, cfg *config.Config, log zerolog.Logger) advisor.Gateway {
	if cfg.Advisor.APIKey == "" {
		log.Info().Msg("advisor api key not set, serving static advice")
		return advisor.StaticGateway{}
	}
	gw, err := advisor.NewGenAIGateway(ctx, cfg.Advisor.APIKey, cfg.Advisor.Model)
	if err != nil {
		log.Warn().Err(err).Msg("init genai gateway failed, serving static advice")
		return advisor.StaticGateway{}
	}
	log.Info().Str("model", gw.Model).Msg("advisor gateway ready")
	return gw
}

// indexSource reads benchmark indices through the cache.
func indexSource(quotes *cache.QuoteCache) advisor.IndexSource {
	key := cache.NewKey(model.DatasetIndices, collector.DefaultSymbols(model.DatasetIndices, nil))
	return func(ctx context.Context) (map[string]model.Quote, error) {
		res, err := quotes.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		return model.QuoteIndex(res.Set), nil
	}
}

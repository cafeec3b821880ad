package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"TrendWatch/internal/config"
	"TrendWatch/internal/delivery"
	"TrendWatch/internal/health"
	"TrendWatch/internal/pipeline"
	"TrendWatch/internal/provider"
	"TrendWatch/internal/scheduler"
	"TrendWatch/internal/store"
	"TrendWatch/pkg/logger"
)

const usage = `Usage: trendwatch <command> [flags]

Commands:
  run        run the pipeline once (default: today)
  backfill   fetch price history for the watchlist without classifying
  scheduler  run the cron scheduler with the health endpoint
  status     print the last report summary
  migrate    create the database schema and exit
`

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.L()

	st, err := store.Open(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer st.Close()

	if command == "migrate" {
		log.Info("schema ready", zap.String("path", cfg.Database.SQLitePath))
		return
	}
	if command == "status" {
		if err := printStatus(st); err != nil {
			log.Fatal("status", zap.Error(err))
		}
		return
	}

	pipe := pipeline.New(cfg, st, newProvider(cfg), newEmail(cfg), newPoster(cfg))

	switch command {
	case "run":
		fs := flag.NewFlagSet("run", flag.ExitOnError)
		dateArg := fs.String("date", "", "run date as YYYY-MM-DD (default today)")
		fs.Parse(os.Args[2:])

		runDate, err := resolveRunDate(*dateArg, cfg.Schedule.Timezone)
		if err != nil {
			log.Fatal("parse run date", zap.Error(err))
		}
		if err := pipe.Run(signalContext(), runDate); err != nil {
			log.Fatal("pipeline run", zap.Error(err))
		}

	case "backfill":
		end, err := resolveRunDate("", cfg.Schedule.Timezone)
		if err != nil {
			log.Fatal("resolve date", zap.Error(err))
		}
		if err := pipe.Backfill(signalContext(), end); err != nil {
			log.Fatal("backfill", zap.Error(err))
		}

	case "scheduler":
		runScheduler(cfg, st, pipe)

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func runScheduler(cfg *config.Config, st *store.Store, pipe *pipeline.Pipeline) {
	log := logger.L()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched, err := scheduler.New(ctx, pipe, cfg.Schedule.Timezone)
	if err != nil {
		log.Fatal("init scheduler", zap.Error(err))
	}
	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		log.Fatal("register cron", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	hs := health.NewServer(st, cfg.Database.SQLitePath, cfg.Health.Host, cfg.Health.Port)
	hs.Start()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, executing daily run now")
		go sched.RunNow()
	}

	log.Info("trendwatch is running", zap.String("cron", cfg.Schedule.DailyCron))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		log.Warn("health server shutdown", zap.Error(err))
	}
}

func newProvider(cfg *config.Config) provider.Provider {
	if cfg.Provider.Name == "alphavantage" {
		return provider.NewAlphaVantageProvider(cfg.Provider.APIKey, cfg.Proxy)
	}
	return provider.NewYahooProvider(cfg.Proxy)
}

func newEmail(cfg *config.Config) *delivery.EmailSender {
	if !cfg.Email.Enabled {
		return nil
	}
	return delivery.NewEmailSender(cfg.Email.SMTPHost, cfg.Email.SMTPPort,
		cfg.Email.Username, cfg.Email.Password, cfg.Email.From,
		cfg.Email.Recipients, cfg.DryRun)
}

func newPoster(cfg *config.Config) *delivery.XPoster {
	if !cfg.Twitter.Enabled {
		return nil
	}
	return delivery.NewXPoster(cfg.Twitter.BearerToken, cfg.Twitter.MaxChars, cfg.Proxy, cfg.DryRun)
}

// resolveRunDate parses a YYYY-MM-DD argument, or takes today's date in the
// market timezone when the argument is empty.
func resolveRunDate(arg, tz string) (time.Time, error) {
	if arg != "" {
		return time.ParseInLocation("2006-01-02", arg, time.UTC)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
}

func printStatus(st *store.Store) error {
	rep, err := st.LastReport()
	if err != nil {
		return err
	}
	if rep == nil {
		fmt.Println("no reports yet")
		return nil
	}
	fmt.Printf("last run:  %s\n", rep.RunDate.Format("2006-01-02"))
	fmt.Printf("generated: %s\n", rep.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("tickers:   %d (up %d / down %d / sideways %d)\n",
		rep.TickerCount, rep.UptrendCount, rep.DowntrendCount, rep.SidewaysCount)
	if rep.MarkdownPath != "" {
		fmt.Printf("report:    %s\n", rep.MarkdownPath)
	}
	n, err := st.ReportCount()
	if err != nil {
		return err
	}
	fmt.Printf("total runs: %d\n", n)
	return nil
}

func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx
}

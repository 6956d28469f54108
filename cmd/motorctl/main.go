// motorctl runs one analytics pass against the configured database and
// prints a summary. Useful for cron jobs and manual reprocessing.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sablalpz/GreenEnergy-Insights/internal/config"
	"github.com/sablalpz/GreenEnergy-Insights/internal/motor"
	"github.com/sablalpz/GreenEnergy-Insights/internal/server"
	"github.com/sablalpz/GreenEnergy-Insights/internal/store"
	"github.com/sablalpz/GreenEnergy-Insights/internal/version"
	"github.com/sablalpz/GreenEnergy-Insights/pkg/plugin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	asOfFlag := flag.String("as-of", "", "compute over readings up to this RFC 3339 time (default: now)")
	namespace := flag.String("namespace", motor.DefaultNamespace, "analytics namespace")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	asOf := time.Now().UTC()
	if *asOfFlag != "" {
		ts, err := time.Parse(time.RFC3339, *asOfFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -as-of value: %v\n", err)
			os.Exit(2)
		}
		asOf = ts.UTC()
	}

	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.New(viperCfg)

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	db, err := store.Open(viperCfg.GetString("database.driver"), viperCfg.GetString("database.dsn"))
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		logger.Fatal("schema version check failed", zap.Error(err))
	}

	mod := motor.New(nil)
	if err := mod.Init(ctx, plugin.Dependencies{
		Config: cfg.Sub("modules.motor"),
		Logger: logger.Named("motor"),
		Store:  db,
	}); err != nil {
		logger.Fatal("failed to initialize motor", zap.Error(err))
	}

	report, err := mod.Runner().Run(ctx, *namespace, asOf, nil)
	if err != nil {
		var ae *motor.AnalyticsError
		if errors.As(err, &ae) && ae.Kind == motor.KindInsufficientData {
			fmt.Fprintf(os.Stderr, "not enough data: %v\n", ae)
			os.Exit(3)
		}
		logger.Fatal("analytics run failed", zap.Error(err))
	}

	fmt.Printf("analytics run completed (strategy %s)\n", report.Strategy)
	fmt.Printf("  metrics:     %v\n", report.Metrics)
	if len(report.Skipped) > 0 {
		fmt.Printf("  skipped:     %v (below sample threshold)\n", report.Skipped)
	}
	fmt.Printf("  predictions: %d\n", report.Predictions)
	fmt.Printf("  anomalies:   %d\n", report.Anomalies)
	fmt.Printf("  duration:    %dms\n", report.DurationMS)
}

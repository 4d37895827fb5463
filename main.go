package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"optionflow/chain"
	"optionflow/config"
	"optionflow/logger"
	"optionflow/models"
	"optionflow/venue/deribit"
	"optionflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	symbol := flag.String("symbol", "BTC", "Underlying symbol to fetch")
	side := flag.String("side", "call", "Option side to display (call or put)")
	expiry := flag.String("expiry", chain.AllExpiries, "Expiry filter: 'all' or a date token like 25DEC24")
	outDir := flag.String("out", "", "Directory for CSV export (overrides config)")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Optionflow.Name,
		"version":     cfg.Optionflow.Version,
		"environment": config.AppEnvironment(),
	}).Info("starting optionflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.InitCloudWatch(cfg.Storage.S3.Region, "", cfg.Logging.DashboardName)
		logger.StartReport(ctx, log, 30*time.Second)
	}

	client := deribit.NewClient(cfg)

	optionsChain, err := chain.New(cfg, client, *symbol)
	if err != nil {
		log.WithError(err).Error("failed to create options chain")
		os.Exit(1)
	}

	if err := optionsChain.Refresh(ctx); err != nil {
		log.WithError(err).Error("failed to fetch options chain")
		os.Exit(1)
	}

	records, err := optionsChain.BySide(*side, *expiry)
	if err != nil {
		log.WithError(err).Error("failed to filter options chain")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"symbol":  optionsChain.Symbol(),
		"side":    *side,
		"expiry":  *expiry,
		"records": len(records),
	}).Info("options chain fetched")

	printChain(records)

	dir := cfg.Writer.CSV.OutputDir
	if *outDir != "" {
		dir = *outDir
	}
	if dir != "" {
		// BySide already validated the side token.
		sideValue, _ := models.SideFromString(*side)
		path, err := writer.ExportCSV(dir, optionsChain.Symbol(), sideValue, records)
		if err != nil {
			log.WithError(err).Error("failed to export csv")
			os.Exit(1)
		}
		fmt.Printf("\nwrote %s\n", path)
	}

	if cfg.Storage.S3.Enabled {
		archive, err := writer.NewArchiveWriter(cfg)
		if err != nil {
			log.WithError(err).Error("failed to create archive writer")
			os.Exit(1)
		}
		key, err := archive.WriteSnapshot(ctx, optionsChain.Snapshot())
		if err != nil {
			log.WithError(err).Error("failed to archive snapshot")
			os.Exit(1)
		}
		log.WithFields(logger.Fields{"s3_key": key}).Info("snapshot archived to S3")
	}

	log.Info("optionflow finished")
}

func printChain(records []models.EnrichedInstrumentRecord) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STRIKE\tDOLLAR BID\tDOLLAR MID\tDOLLAR ASK\tYEARS")
	for _, rec := range records {
		fmt.Fprintf(tw, "%d\t%.2f\t%.2f\t%.2f\t%.4f\n",
			rec.Strike, rec.DollarBid, rec.DollarMid, rec.DollarAsk, rec.YearsToExpiry)
	}
	tw.Flush()
}

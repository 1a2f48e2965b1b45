package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sjsage522/dealerworker/config"
	"sjsage522/dealerworker/helpers"
	"sjsage522/dealerworker/internal/crawler"
	"sjsage522/dealerworker/internal/translator"
	"sjsage522/dealerworker/logger"
	"sjsage522/dealerworker/services/worker"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "dealerworker",
	Short:         "dealerworker crawls dealer and service outlet locations into CSV files.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.LoadConfig()
		if err := cfg.LoadVendorOverrides(); err != nil {
			return fmt.Errorf("load vendor overrides: %w", err)
		}
		return cfg.Validate()
	},
}

var (
	crawlResume  bool
	crawlStrict  bool
	scheduleCron string
)

func init() {
	crawlCmd.Flags().BoolVar(&crawlResume, "resume", false, "Continue from the saved progress of each vendor.")
	crawlCmd.Flags().BoolVar(&crawlStrict, "strict", false, "Exit non-zero when any branch was skipped.")
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "Cron expression (defaults to CRAWL_CRON).")
	scheduleCmd.Flags().BoolVar(&crawlResume, "resume", false, "Continue from the saved progress of each vendor.")

	rootCmd.AddCommand(crawlCmd, listCmd, scheduleCmd, translateCmd)
}

// newWorker wires the services, runner and worker for a list of vendors
func newWorker(cmd *cobra.Command, vendors []string) (*worker.Worker, *Services, error) {
	services, err := initializeServices(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}

	failures := helpers.NewLogger(cfg.ErrorLogFile)
	runner := crawler.NewRunner(cfg, &services.Dependencies, failures)

	for _, name := range vendors {
		if _, err := runner.Registry().Lookup(name); err != nil {
			services.Cleanup()
			return nil, nil, err
		}
	}
	return worker.NewWorker(runner, vendors, crawler.RunOptions{Resume: crawlResume}, failures), services, nil
}

var crawlCmd = &cobra.Command{
	Use:   "crawl <vendor...>",
	Short: "Crawls the given vendors once and prints a summary per vendor.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vendors := args
		if len(args) == 1 && args[0] == "all" {
			vendors = crawler.NewRegistry().Names()
		}

		w, services, err := newWorker(cmd, vendors)
		if err != nil {
			return err
		}
		defer services.Cleanup()

		summaries, runErr := w.RunOnce(cmd.Context())

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(summaries); err != nil {
			return err
		}

		if runErr != nil {
			return runErr
		}
		if crawlStrict {
			for _, s := range summaries {
				if s.Failed() {
					return fmt.Errorf("%s: %d branches skipped", s.Vendor, len(s.FailedBranches))
				}
			}
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the known vendors.",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, reg := range crawler.NewRegistry().Registrations() {
			settings := cfg.Settings(reg.Name, reg.Defaults)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", reg.Name, settings.Encoding, settings.Quoting, reg.Description)
		}
		return tw.Flush()
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule --cron <expr> <vendor...>",
	Short: "Crawls the given vendors on a cron schedule until interrupted.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := scheduleCron
		if spec == "" {
			spec = cfg.CrawlCron
		}
		if spec == "" {
			return fmt.Errorf("no schedule: pass --cron or set CRAWL_CRON")
		}

		w, services, err := newWorker(cmd, args)
		if err != nil {
			return err
		}
		defer services.Cleanup()

		return w.Start(cmd.Context(), spec)
	},
}

var translateCmd = &cobra.Command{
	Use:   "translate <name...>",
	Short: "Prints the English names of Chinese provinces and cities.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			tr  *translator.LocationTranslator
			err error
		)
		if cfg.TranslatorDir != "" {
			tr, err = translator.NewFromDir(cfg.TranslatorDir)
		} else {
			tr, err = translator.New()
		}
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, name := range args {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, tr.TranslateProvince(name), tr.TranslateCity(name), tr.ProvinceOfCity(name))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		logger.Debug("translated %d names", len(args))
		return nil
	},
}

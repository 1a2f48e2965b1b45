package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"sjsage522/dealerworker/helpers"
	"sjsage522/dealerworker/internal/crawler"
	"sjsage522/dealerworker/logger"
)

// VendorRunner runs the crawl of one vendor
type VendorRunner interface {
	Run(ctx context.Context, name string, opts crawler.RunOptions) (*crawler.Summary, error)
}

// Worker runs a list of vendors one after another, once or on a schedule
type Worker struct {
	runner  VendorRunner
	vendors []string
	opts    crawler.RunOptions
	logger  helpers.LoggerInterface
	log     *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(runner VendorRunner, vendors []string, opts crawler.RunOptions, failures helpers.LoggerInterface) *Worker {
	return &Worker{
		runner:  runner,
		vendors: vendors,
		opts:    opts,
		logger:  failures,
		log:     logger.ForWorker(),
	}
}

// RunOnce crawls every vendor in order and returns the summaries of the
// vendors that ran. A failing vendor does not stop the others; cancellation
// does.
func (w *Worker) RunOnce(ctx context.Context) ([]*crawler.Summary, error) {
	start := time.Now()
	var summaries []*crawler.Summary
	failed := 0

	for _, name := range w.vendors {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}

		summary, err := w.runner.Run(ctx, name, w.opts)
		if summary != nil {
			summaries = append(summaries, summary)
			w.log.Info().
				Str("vendor", name).
				Int("records", summary.Records).
				Int("failed_branches", len(summary.FailedBranches)).
				Dur("duration", summary.Duration).
				Msg("Vendor finished")
		}
		if err != nil {
			failed++
			w.logger.LogError(name, err)
			if ctx.Err() != nil {
				return summaries, ctx.Err()
			}
		}
	}

	w.logger.LogInfo("crawl of %d vendors took %s", len(w.vendors), time.Since(start))
	if failed > 0 {
		return summaries, fmt.Errorf("%d of %d vendors failed", failed, len(w.vendors))
	}
	return summaries, nil
}

// Start runs RunOnce on the cron schedule spec until ctx is cancelled.
// A run still in progress when the next one is due makes that one skip.
func (w *Worker) Start(ctx context.Context, spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.Warn().Err(err).Msg("Scheduled run finished with errors")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	w.log.Info().Str("cron", spec).Strs("vendors", w.vendors).Msg("Starting scheduler")
	c.Start()
	<-ctx.Done()

	w.log.Info().Msg("Stopping scheduler")
	<-c.Stop().Done()
	return nil
}

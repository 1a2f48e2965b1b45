package crawler

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"

	"sjsage522/dealerworker/config"
	"sjsage522/dealerworker/helpers"
	"sjsage522/dealerworker/internal"
	"sjsage522/dealerworker/logger"
	"sjsage522/dealerworker/services/progress"
	"sjsage522/dealerworker/services/sink"
)

// RunOptions are per-invocation switches
type RunOptions struct {
	// Resume continues from the saved cursor even for vendors that do not
	// resume by default
	Resume bool
}

// Runner wires a vendor to its sinks and dependencies and runs one session
type Runner struct {
	cfg      *config.Config
	deps     *internal.Dependencies
	failures helpers.LoggerInterface
	registry *Registry

	// newBrowser is replaceable in tests
	newBrowser func(provider string) Browser
}

// NewRunner creates a runner. failures may be nil.
func NewRunner(cfg *config.Config, deps *internal.Dependencies, failures helpers.LoggerInterface) *Runner {
	if deps == nil {
		deps = &internal.Dependencies{}
	}
	return &Runner{
		cfg:      cfg,
		deps:     deps,
		failures: failures,
		registry: NewRegistry(),
		newBrowser: func(provider string) Browser {
			return NewPlaywrightBrowser(provider, cfg.BrowserHeadless, cfg.RequestTimeout*3)
		},
	}
}

// Registry returns the vendor registry
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run crawls one vendor by name
func (r *Runner) Run(ctx context.Context, name string, opts RunOptions) (*Summary, error) {
	reg, err := r.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	log := logger.ForVendor(name)

	settings := r.cfg.Settings(name, reg.Defaults)
	if opts.Resume {
		settings.Resume = true
	}

	proxyURL := ""
	if r.deps.Proxy != nil {
		proxyURL = r.deps.Proxy.Next()
	}

	env := VendorEnv{
		Settings:   settings,
		HTTP:       helpers.NewHTTPClient(name, r.cfg.RequestTimeout, proxyURL),
		Translator: r.deps.Translator,
		Config:     r.cfg,
		NewBrowser: func() Browser { return r.newBrowser(name) },
	}
	v, err := reg.New(env)
	if err != nil {
		return nil, fmt.Errorf("create vendor %s: %w", name, err)
	}
	if c, ok := v.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close vendor")
			}
		}()
	}

	sessionOpts := SessionOptions{
		RunID:      uuid.NewString(),
		Settings:   settings,
		Retry:      NewRetryPolicy(r.cfg),
		Cache:      r.deps.Cache,
		BlockTime:  r.cfg.BlockTime,
		Translator: r.deps.Translator,
	}
	if settings.Resume {
		store := progress.NewStore(r.cfg.ProgressDir)
		cursor, err := store.Load(name)
		if err != nil {
			log.Warn().Err(err).Msg("Ignoring unreadable progress file")
			cursor = nil
		}
		sessionOpts.Progress = store
		sessionOpts.Cursor = cursor
		if cursor != nil {
			sessionOpts.RunID = cursor.RunID
		}
	}

	out, err := r.sinks(v, sessionOpts.RunID, settings)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("run_id", sessionOpts.RunID).
		Str("encoding", settings.Encoding).
		Bool("resume", settings.Resume).
		Int("sinks", out.Len()).
		Msg("Starting crawl")

	summary, err := NewSession(v, out, sessionOpts).Run(ctx)
	if summary != nil && r.failures != nil {
		for _, f := range summary.FailedBranches {
			r.failures.LogError(name, fmt.Errorf("%s", f.String()))
		}
	}
	if err != nil && r.failures != nil {
		r.failures.LogError(name, err)
	}
	return summary, err
}

// sinks builds the CSV sink plus every optional sink the config enables
func (r *Runner) sinks(v Vendor, runID string, settings config.VendorSettings) (*sink.MultiSink, error) {
	headers := v.Schema().Headers()
	name := v.Name()

	csvSink, err := sink.NewCSVSink(filepath.Join(r.cfg.OutputDir, name+".csv"), headers, sink.CSVOptions{
		Encoding:   settings.Encoding,
		Quoting:    settings.Quoting,
		FlushEvery: settings.FlushEvery,
	})
	if err != nil {
		return nil, err
	}
	sinks := []sink.Sink{csvSink}

	if r.cfg.XLSXOutput {
		sinks = append(sinks, sink.NewXLSXSink(filepath.Join(r.cfg.OutputDir, name+".xlsx"), headers))
	}
	if r.cfg.SQLitePath != "" {
		archive, err := sink.NewSQLiteSink(r.cfg.SQLitePath, runID, name, headers)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, archive)
	}
	if r.deps.Publisher != nil {
		sinks = append(sinks, sink.NewPublisherSink(r.deps.Publisher, name, headers))
	}

	return sink.NewMultiSink(sinks...), nil
}

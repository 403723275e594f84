// Package main implements the datalink command line interface. It learns
// schemas from JSONL record files, synthesizes records into other formats,
// validates configuration, and dispatches single intents against the
// configured data connectors with caching and usage tracking.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/datalink/capability"
	"github.com/c360/datalink/config"
	"github.com/c360/datalink/connectors"
	"github.com/c360/datalink/dispatch"
	"github.com/c360/datalink/event"
	"github.com/c360/datalink/logging"
	"github.com/c360/datalink/metric"
	"github.com/c360/datalink/pkg/cache"
	"github.com/c360/datalink/schema"
	"github.com/c360/datalink/synth"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "datalink"
)

func main() {
	// Handle panics gracefully
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := loadConfiguration(cliCfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case cliCfg.Validate:
		return runValidate(cfg)
	case cliCfg.LearnPath != "":
		return runLearn(ctx, cliCfg)
	case cliCfg.SynthesizePath != "":
		return runSynthesize(ctx, cliCfg)
	case cliCfg.DispatchPath != "":
		return runDispatch(ctx, cfg, cliCfg)
	default:
		printDetailedHelp()
		return nil
	}
}

// initializeCLI parses flags and sets up the process logger. The bool result
// is true when a special flag (version, help) already handled the invocation.
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	return cliCfg, false, nil
}

// loadConfiguration builds the runtime configuration. Without a config file
// the defaults are used, so -learn and -synthesize work out of the box.
func loadConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runValidate builds the configured connectors against a throwaway registry
// so connector settings fail here instead of at first dispatch.
func runValidate(cfg *config.Config) error {
	registry := capability.NewRegistry()
	if err := connectors.Register(registry, cfg.Connectors); err != nil {
		return fmt.Errorf("invalid connector configuration: %w", err)
	}

	slog.Info("Configuration is valid", "connectors", registry.Len())
	return nil
}

func runLearn(ctx context.Context, cliCfg *CLIConfig) error {
	f, err := os.Open(cliCfg.LearnPath)
	if err != nil {
		return fmt.Errorf("open records: %w", err)
	}
	defer f.Close()

	src := schema.NewJSONLSource(f)
	profile, err := schema.Learn(ctx, src)
	if err != nil {
		return fmt.Errorf("learn schema: %w", err)
	}
	if n := src.Malformed(); n > 0 {
		slog.Warn("Skipped malformed lines", "count", n)
	}

	data, err := json.MarshalIndent(profile.Proposal(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode proposal: %w", err)
	}
	return writeOutput(cliCfg.OutPath, append(data, '\n'))
}

func runSynthesize(ctx context.Context, cliCfg *CLIConfig) error {
	f, err := os.Open(cliCfg.SynthesizePath)
	if err != nil {
		return fmt.Errorf("open records: %w", err)
	}
	defer f.Close()

	src := schema.NewJSONLSource(f)
	profile, err := schema.Learn(ctx, src)
	if err != nil {
		return fmt.Errorf("learn schema: %w", err)
	}
	// Synthesize reads from the current position, so rewind past the learn pass.
	if err := src.Reset(); err != nil {
		return fmt.Errorf("rewind records: %w", err)
	}

	out, err := synth.Synthesize(ctx, src, profile, synth.TargetSpec{Format: synth.Target(cliCfg.Format)})
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if out.Skipped > 0 {
		slog.Warn("Skipped records that did not fit the plan", "count", out.Skipped)
	}

	slog.Info("Synthesis complete", "format", cliCfg.Format, "records", out.Records)
	return writeOutput(cliCfg.OutPath, out.Data)
}

func runDispatch(ctx context.Context, cfg *config.Config, cliCfg *CLIConfig) error {
	intent, err := loadIntent(cliCfg.DispatchPath)
	if err != nil {
		return err
	}

	registry := capability.NewRegistry()
	if err := connectors.Register(registry, cfg.Connectors); err != nil {
		return fmt.Errorf("register connectors: %w", err)
	}
	if registry.Len() == 0 {
		return fmt.Errorf("no connectors configured; add a connectors section to the config")
	}

	metricsRegistry := metric.NewMetricsRegistry()
	logger := slog.Default()

	store, err := cache.New[*capability.Result](ctx, cfg.Cache,
		cache.WithMetrics[*capability.Result](metricsRegistry, "dispatch_cache"))
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	defer store.Close()

	recorder := connectors.NewUsageRecorder(
		connectors.WithUsageLogger(logging.NewLogger("usage-recorder", nil, logger)),
		connectors.WithUsageMetrics(metricsRegistry),
	)
	if err := recorder.Start(ctx); err != nil {
		return fmt.Errorf("start usage recorder: %w", err)
	}
	defer func() {
		if err := recorder.Stop(cliCfg.ShutdownTimeout); err != nil {
			slog.Warn("Usage recorder stop", "error", err)
		}
	}()

	opts := []dispatch.Option{
		dispatch.WithDefaultTTL(cfg.Dispatch.DefaultTTL),
		dispatch.WithObserver(recorder),
		dispatch.WithMetrics(metricsRegistry.CoreMetrics()),
		dispatch.WithLogger(logging.NewLogger("dispatcher", nil, logger)),
	}
	if cfg.Dispatch.Timeout > 0 {
		opts = append(opts, dispatch.WithTimeout(cfg.Dispatch.Timeout))
	}
	for agent, rl := range cfg.Dispatch.RateLimits {
		opts = append(opts, dispatch.WithRateLimit(agent, rl.PerSecond, rl.Burst))
	}

	if cfg.Bus.Enabled {
		bus, err := connectBus(cfg, store, metricsRegistry, logger)
		if err != nil {
			return err
		}
		defer closeBus(bus, cliCfg.ShutdownTimeout)
		opts = append(opts, dispatch.WithInvalidationPublisher(bus))
	}

	dispatcher, err := dispatch.New(registry, store, opts...)
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	slog.Info("Dispatching", "agent", intent.AgentName)
	result, err := dispatcher.Dispatch(ctx, intent)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", intent.AgentName, err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return writeOutput(cliCfg.OutPath, append(data, '\n'))
}

// loadIntent reads an intent file. Numbers decode as json.Number so integer
// parameters survive schema validation.
func loadIntent(path string) (*dispatch.Intent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open intent: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()

	var intent dispatch.Intent
	if err := dec.Decode(&intent); err != nil {
		return nil, fmt.Errorf("parse intent: %w", err)
	}
	if intent.AgentName == "" {
		return nil, fmt.Errorf("intent is missing agent_name")
	}
	return &intent, nil
}

// connectBus dials NATS and applies remote invalidations to the local cache.
func connectBus(cfg *config.Config, store cache.Cache[*capability.Result], registry *metric.MetricsRegistry, logger *slog.Logger) (*event.Bus, error) {
	bus, err := event.Dial(cfg.Bus.URL,
		event.WithSubjectPrefix(cfg.Bus.SubjectPrefix),
		event.WithMetrics(registry.CoreMetrics()),
		event.WithLogger(logging.NewLogger("event-bus", nil, logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("connect invalidation bus: %w", err)
	}

	err = bus.SubscribeInvalidations(func(tag string) {
		if n, err := store.InvalidateTag(tag); err == nil && n > 0 {
			slog.Debug("Applied remote invalidation", "tag", tag, "entries", n)
		}
	})
	if err != nil {
		closeBus(bus, 5*time.Second)
		return nil, fmt.Errorf("subscribe invalidations: %w", err)
	}
	return bus, nil
}

func closeBus(bus *event.Bus, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := bus.Close(ctx); err != nil {
		slog.Warn("Invalidation bus close", "error", err)
	}
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	slog.Info("Wrote output", "path", path, "bytes", len(data))
	return nil
}

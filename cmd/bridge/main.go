// Command bridge is the mcp-llm-bridge entry point. It wires the
// conversation store, adapter registry, invoker, and orchestrator, and
// serves the bridge operations over a line-delimited JSON loop on
// stdin/stdout.
//
// Usage:
//
//	bridge serve [--config adapters.yaml]   # start the dispatch loop
//	bridge adapters [--config adapters.yaml] [--test]
//	bridge version
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sims1253/mcp-llm-bridge/adapter"
	"github.com/sims1253/mcp-llm-bridge/bridge"
	"github.com/sims1253/mcp-llm-bridge/config"
	"github.com/sims1253/mcp-llm-bridge/conversation"
	"github.com/sims1253/mcp-llm-bridge/internal/metrics"
	"github.com/sims1253/mcp-llm-bridge/selector"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "adapters":
		runAdapters(os.Args[2:])
	case "version":
		fmt.Printf("mcp-llm-bridge %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  bridge serve [--config path]     Start the stdin/stdout dispatch loop
  bridge adapters [--config path] [--test]
                                   List configured adapters
  bridge version                   Show version information`)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "adapters.yaml"
	}
	return filepath.Join(home, ".mcp-llm-bridge", "adapters.yaml")
}

// loadConfig resolves the config path, seeding a default config file on
// first run when none exists.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = defaultConfigPath()
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := config.WriteDefault(path); err != nil {
				return nil, err
			}
		}
	}
	return config.NewLoader().WithConfigPath(path).Load()
}

// newLogger builds a zap logger from the log configuration. Logs go to
// stderr so the stdout dispatch stream stays clean.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.DisableCaller = !cfg.EnableCaller

	return zc.Build()
}

// buildOrchestrator wires all components from the loaded configuration.
func buildOrchestrator(cfg *config.Config, logger *zap.Logger) (*bridge.Orchestrator, error) {
	store, err := conversation.NewFileStore(cfg.ConversationDir, logger)
	if err != nil {
		return nil, err
	}

	registry, err := adapter.NewRegistry(cfg.Adapters, cfg.DefaultAdapter, cfg.DefaultSummarizationAdapter, logger)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector("mcp_llm_bridge", nil, logger)
	invoker := adapter.NewInvoker(logger, collector)

	var counter selector.TokenCounter
	if cfg.MaxSmartContextTokens > 0 {
		counter = selector.NewTiktokenCounter(cfg.TokenEncoding)
	}
	sel := selector.New(counter, cfg.MaxSmartContextTokens)

	return bridge.New(store, registry, invoker, sel, collector, logger), nil
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	orch, err := buildOrchestrator(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build orchestrator", zap.Error(err))
	}

	logger.Info("bridge started",
		zap.String("version", Version),
		zap.String("conversation_dir", cfg.ConversationDir),
		zap.Int("adapters", len(cfg.Adapters)))

	if err := serve(os.Stdin, os.Stdout, orch, logger); err != nil {
		logger.Fatal("dispatch loop failed", zap.Error(err))
	}
}

func runAdapters(args []string) {
	fs := flag.NewFlagSet("adapters", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	testAvailability := fs.Bool("test", false, "Probe command availability")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	registry, err := adapter.NewRegistry(cfg.Adapters, cfg.DefaultAdapter, cfg.DefaultSummarizationAdapter, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid adapter configuration: %v\n", err)
		os.Exit(1)
	}

	for _, spec := range registry.List() {
		line := fmt.Sprintf("%-20s %s", spec.Name, spec.Command)
		if *testAvailability {
			available, _ := registry.TestAvailability(spec.Name)
			if available {
				line += "  [available]"
			} else {
				line += "  [missing]"
			}
		}
		if spec.Description != "" {
			line += "  " + spec.Description
		}
		fmt.Println(line)
	}
}

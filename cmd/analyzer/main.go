package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-price-analyzer/agent"
	"github.com/aluiziolira/go-price-analyzer/batch"
	"github.com/aluiziolira/go-price-analyzer/catalog"
	"github.com/aluiziolira/go-price-analyzer/command"
	"github.com/aluiziolira/go-price-analyzer/config"
	"github.com/aluiziolira/go-price-analyzer/gateway"
	"github.com/aluiziolira/go-price-analyzer/models"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	defaultCfg := config.DefaultConfig()
	modelDefault := defaultCfg.Model
	if value, ok := config.EnvString("ANALYZER_MODEL"); ok {
		modelDefault = value
	}
	endpointDefault := defaultCfg.Endpoint
	if value, ok := config.EnvString("ANALYZER_ENDPOINT"); ok {
		endpointDefault = value
	}
	relayDefault := ""
	if value, ok := config.EnvString("ANALYZER_RELAY_URL"); ok {
		relayDefault = value
	}
	delayDefault := defaultCfg.RequestDelay
	if value, ok, err := config.EnvDuration("ANALYZER_DELAY"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid ANALYZER_DELAY: %v\n", err)
		os.Exit(1)
	} else if ok {
		delayDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("ANALYZER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	productsFile := flag.String("products", "", "Product catalog to load (.csv or .json)")
	seed := flag.Bool("seed", false, "Use the built-in demo catalog instead of -products")
	kind := flag.String("kind", "competitor", "Price search kind: competitor or used")
	commandText := flag.String("command", "", "Natural-language command instead of -kind")
	promptFile := flag.String("prompt", "", "File with a custom competitor system prompt ({PRODUCT_NAME} placeholder)")
	model := flag.String("model", modelDefault, "Model name for chat completions")
	endpoint := flag.String("endpoint", endpointDefault, "Chat-completion endpoint URL")
	relayURL := flag.String("relay", relayDefault, "Relay URL; when set, requests go through the relay")
	temperature := flag.Float64("temperature", defaultCfg.Temperature, "Sampling temperature")
	maxTokens := flag.Int("max-tokens", defaultCfg.MaxTokens, "Completion token limit")
	delay := flag.Duration("delay", delayDefault, "Pause between batch requests")
	timeout := flag.Duration("timeout", defaultCfg.Timeout, "Per-request transport timeout")
	cacheSize := flag.Int("cache-size", defaultCfg.CacheSize, "Cached search results (0 disables)")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	outputFile := flag.String("output", "", "Export the catalog after the run (.csv path)")
	outputFormat := flag.String("format", "csv", "Export format: csv, json, or dual")
	historyFile := flag.String("history", "", "Write the operation history as JSON")
	testConnection := flag.Bool("test-connection", false, "Verify gateway connectivity and exit")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.Endpoint = *endpoint
	cfg.RelayURL = *relayURL
	cfg.Model = *model
	cfg.Temperature = *temperature
	cfg.MaxTokens = *maxTokens
	cfg.RequestDelay = *delay
	cfg.Timeout = *timeout
	cfg.CacheSize = *cacheSize
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if value, ok := config.EnvString("PRICE_API_KEY"); ok {
		cfg.APIKey = value
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	gw, err := gateway.NewClient(cfg)
	if err != nil {
		slog.Error("initialising gateway", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *testConnection {
		if err := gw.TestConnection(ctx); err != nil {
			slog.Error("connection test failed", slog.Any("error", err))
			os.Exit(1)
		}
		fmt.Println("connection ok")
		return
	}

	store, err := loadStore(*productsFile, *seed)
	if err != nil {
		slog.Error("loading catalog", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("catalog loaded", slog.Int("products", store.Len()))

	competitor := agent.NewCompetitorAgent(gw, cfg)
	marketplace := agent.NewMarketplaceAgent(gw, cfg)
	if *promptFile != "" {
		data, err := os.ReadFile(*promptFile)
		if err != nil {
			slog.Error("reading custom prompt", slog.Any("error", err))
			os.Exit(1)
		}
		competitor.SetCustomPrompt(string(data))
	}

	runner := batch.NewRunner(store, cfg.RequestDelay, cfg.CacheSize, cfg.HistoryLimit, gw.Metrics)
	runner.Register(competitor)
	runner.Register(marketplace)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && gw.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(gw.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	startTime := time.Now()
	summary, err := dispatch(ctx, gw, cfg, store, runner, *kind, *commandText)
	if err != nil {
		slog.Error("run failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if *outputFile != "" {
		if err := exportCatalog(store, *outputFormat, *outputFile); err != nil {
			slog.Error("exporting catalog", slog.Any("error", err))
			os.Exit(1)
		}
	}
	if *historyFile != "" {
		if err := exportHistory(runner.History(), *historyFile); err != nil {
			slog.Error("exporting history", slog.Any("error", err))
			os.Exit(1)
		}
	}

	printSummary(summary, time.Since(startTime), store, *outputFile)
}

// dispatch routes a free-text command through the interpreter, or runs a
// plain batch when only -kind was given.
func dispatch(ctx context.Context, gw *gateway.Client, cfg *config.Config, store *models.Store, runner *batch.Runner, kind, commandText string) (models.BatchSummary, error) {
	if commandText == "" {
		batchKind, err := parseKind(kind)
		if err != nil {
			return models.BatchSummary{}, err
		}
		return runBatch(ctx, runner, store, batchKind), nil
	}

	intent := command.Interpret(commandText)
	switch intent.Kind {
	case command.IntentSearchCompetitor, command.IntentUpdateAll:
		return runBatch(ctx, runner, store, models.KindCompetitor), nil
	case command.IntentSearchUsed:
		return runBatch(ctx, runner, store, models.KindUsed), nil
	case command.IntentEdit:
		editor := command.NewEditAgent(gw, cfg, store)
		cmd, err := editor.Execute(ctx, commandText)
		if err != nil {
			return models.BatchSummary{}, err
		}
		if err := store.ApplyEdit(cmd.ProductID, cmd.Field, cmd.Value, time.Now()); err != nil {
			return models.BatchSummary{}, err
		}
		slog.Info("product updated",
			slog.String("product", cmd.ProductName),
			slog.String("field", string(cmd.Field)),
			slog.Any("value", cmd.Value),
		)
		return models.BatchSummary{SuccessCount: 1}, nil
	default:
		return models.BatchSummary{}, fmt.Errorf("could not understand command %q", commandText)
	}
}

func runBatch(ctx context.Context, runner *batch.Runner, store *models.Store, kind models.BatchKind) models.BatchSummary {
	job := batch.NewJob(store.IDs(), kind)
	go func() {
		<-ctx.Done()
		job.Cancel()
	}()

	slog.Info("starting price search",
		slog.String("kind", kind.String()),
		slog.Int("products", store.Len()),
	)
	return runner.Run(ctx, job, func(index, total int, productName string) {
		slog.Info("searching",
			slog.Int("current", index+1),
			slog.Int("total", total),
			slog.String("product", productName),
		)
	})
}

func parseKind(s string) (models.BatchKind, error) {
	switch strings.ToLower(s) {
	case "competitor", "new":
		return models.KindCompetitor, nil
	case "used", "marketplace":
		return models.KindUsed, nil
	default:
		return 0, fmt.Errorf("unsupported kind: %s", s)
	}
}

func loadStore(productsFile string, seed bool) (*models.Store, error) {
	var products []*models.Product
	switch {
	case seed:
		products = catalog.SeedProducts()
	case productsFile != "":
		loaded, err := catalog.Load(productsFile)
		if err != nil {
			return nil, err
		}
		products = loaded
	default:
		return nil, fmt.Errorf("no catalog given: use -products or -seed")
	}

	store := models.NewStore()
	for _, p := range products {
		if _, err := store.Add(p); err != nil {
			return nil, fmt.Errorf("add product %q: %w", p.Name, err)
		}
	}
	return store, nil
}

func exportCatalog(store *models.Store, format, filename string) error {
	writer, err := createWriter(format, filename)
	if err != nil {
		return err
	}

	products := store.List()
	refs := make([]*models.Product, len(products))
	for i := range products {
		refs[i] = &products[i]
	}
	if err := writer.Write(refs); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return nil
}

func createWriter(format, filename string) (catalog.ProductWriter, error) {
	switch format {
	case "json":
		return catalog.NewJSONWriter(filename)
	case "csv":
		return catalog.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return catalog.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func exportHistory(history *batch.History, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create history file: %w", err)
	}
	if err := history.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(summary models.BatchSummary, duration time.Duration, store *models.Store, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Analysis complete")

	total := summary.SuccessCount + summary.FailureCount
	fmt.Printf("  Products:      %d\n", store.Len())
	fmt.Printf("  Processed:     %d\n", total)
	fmt.Printf("  Succeeded:     %d\n", summary.SuccessCount)
	fmt.Printf("  Failed:        %d\n", summary.FailureCount)
	successRate := 0.0
	if total > 0 {
		successRate = float64(summary.SuccessCount) / float64(total) * 100
	}
	fmt.Printf("  Success rate:  %.2f%%\n", successRate)
	fmt.Printf("  Duration:      %v\n", duration)
	if outputFile != "" {
		fmt.Printf("  Output file:   %s\n", outputFile)
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

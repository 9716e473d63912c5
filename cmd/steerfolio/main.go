package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/steerfolio/steerfolio/internal/cache"
	"github.com/steerfolio/steerfolio/internal/config"
	"github.com/steerfolio/steerfolio/internal/engine"
	"github.com/steerfolio/steerfolio/internal/history"
	"github.com/steerfolio/steerfolio/internal/propose"
	"github.com/steerfolio/steerfolio/internal/telemetry"
)

const (
	appName = "steerfolio"
	version = "v1.4.0"
)

var (
	flagConfig  string
	flagInputs  string
	flagJSON    bool
	flagVerbose bool
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Portfolio decision and allocation engine",
		Version: version,
		Long: `Steerfolio blends cycle, on-chain and risk signals into a market regime,
derives a risky/stable budget, and proposes a full 11-group allocation with
rebalance validation and phased execution planning.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if flagVerbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	// Accept snake_case spellings of every flag.
	rootCmd.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to engine YAML config (defaults when absent)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Emit machine-readable JSON instead of tables")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	decideCmd := &cobra.Command{
		Use:   "decide",
		Short: "Run one full decision cycle",
		Long:  "Blends the input signals, classifies the regime, applies overrides and produces validated targets with an execution plan",
		RunE:  runDecide,
	}
	decideCmd.Flags().StringVar(&flagInputs, "inputs", "", "Path to YAML inputs file (required)")
	decideCmd.Flags().String("strategy", "blend", "Proposal strategy (blend|macro|ccs|cycle|smart)")
	_ = decideCmd.MarkFlagRequired("inputs")

	proposeCmd := &cobra.Command{
		Use:   "propose",
		Short: "Show only the proposed allocation",
		Long:  "Runs the pipeline and prints the target allocation without validation or planning output",
		RunE:  runPropose,
	}
	proposeCmd.Flags().StringVar(&flagInputs, "inputs", "", "Path to YAML inputs file (required)")
	proposeCmd.Flags().String("strategy", "blend", "Proposal strategy (blend|macro|ccs|cycle|smart)")
	_ = proposeCmd.MarkFlagRequired("inputs")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a rebalance without planning it",
		Long:  "Runs the pipeline and reports the rule verdicts: blocks, warnings, skips and advisories",
		RunE:  runValidate,
	}
	validateCmd.Flags().StringVar(&flagInputs, "inputs", "", "Path to YAML inputs file (required)")
	validateCmd.Flags().String("strategy", "blend", "Proposal strategy (blend|macro|ccs|cycle|smart)")
	_ = validateCmd.MarkFlagRequired("inputs")

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the phased execution plan",
		Long:  "Runs the pipeline and prints only the execution phases for the validated change set",
		RunE:  runPlan,
	}
	planCmd.Flags().StringVar(&flagInputs, "inputs", "", "Path to YAML inputs file (required)")
	planCmd.Flags().String("strategy", "blend", "Proposal strategy (blend|macro|ccs|cycle|smart)")
	_ = planCmd.MarkFlagRequired("inputs")

	regimeCmd := &cobra.Command{
		Use:   "regime",
		Short: "Classify a blended score",
		Long:  "Maps a blended score onto its regime band with confidence and transition info",
		RunE:  runRegime,
	}
	regimeCmd.Flags().Float64("score", 50, "Blended score in [0,100]")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the telemetry HTTP server",
		Long:  "Serves /metrics and /healthz until interrupted; decision cycles submitted via the library surface are observable here",
		RunE:  runServe,
	}
	serveCmd.Flags().String("addr", "", "Listen address (overrides config)")

	rootCmd.AddCommand(decideCmd, proposeCmd, validateCmd, planCmd, regimeCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildEngine loads config and wires the optional Redis cache and history
// store. Both are best-effort: the engine runs library-only without them.
func buildEngine(ctx context.Context) (*engine.Engine, func(), error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}

	var opts []engine.Option
	cleanup := func() {}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, using in-process budget cache")
		} else {
			opts = append(opts, engine.WithBudgetCache(cache.NewRedis(client, cfg.Redis.Prefix)))
			prev := cleanup
			cleanup = func() { client.Close(); prev() }
		}
	}

	if cfg.History.DSN != "" {
		store, err := history.Open(ctx, cfg.History.DSN)
		if err != nil {
			log.Warn().Err(err).Msg("decision history unavailable, continuing without persistence")
		} else {
			opts = append(opts, engine.WithRecorder(historyRecorder{store: store}))
			prev := cleanup
			cleanup = func() { store.Close(); prev() }
		}
	}

	return engine.New(cfg, opts...), cleanup, nil
}

func parseStrategy(cmd *cobra.Command) (propose.Strategy, error) {
	name, _ := cmd.Flags().GetString("strategy")
	strategy, ok := propose.ParseStrategy(name)
	if !ok {
		return strategy, fmt.Errorf("unknown strategy %q (want blend|macro|ccs|cycle|smart)", name)
	}
	return strategy, nil
}

func runCycle(cmd *cobra.Command) (engine.Result, error) {
	strategy, err := parseStrategy(cmd)
	if err != nil {
		return engine.Result{}, err
	}

	in, err := loadInputs(flagInputs)
	if err != nil {
		return engine.Result{}, err
	}

	ctx := cmd.Context()
	eng, cleanup, err := buildEngine(ctx)
	if err != nil {
		return engine.Result{}, err
	}
	defer cleanup()

	return eng.DecideWith(ctx, strategy, in), nil
}

func runDecide(cmd *cobra.Command, args []string) error {
	res, err := runCycle(cmd)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(res)
	}
	renderDecision(os.Stdout, res)
	renderTargets(os.Stdout, res.Proposal)
	renderValidation(os.Stdout, res.Validation)
	renderPlan(os.Stdout, res.Plan)
	return nil
}

func runPropose(cmd *cobra.Command, args []string) error {
	res, err := runCycle(cmd)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(res.Proposal)
	}
	renderTargets(os.Stdout, res.Proposal)
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	res, err := runCycle(cmd)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(res.Validation)
	}
	renderValidation(os.Stdout, res.Validation)
	if !res.Validation.Valid {
		os.Exit(2)
	}
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	res, err := runCycle(cmd)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(res.Plan)
	}
	renderPlan(os.Stdout, res.Plan)
	return nil
}

func runRegime(cmd *cobra.Command, args []string) error {
	score, _ := cmd.Flags().GetFloat64("score")

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	classification := classifyOnly(cfg, score)
	if flagJSON {
		return printJSON(classification)
	}
	renderRegime(os.Stdout, classification)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Telemetry.Addr
	}

	reg := prometheus.NewRegistry()
	telemetry.NewMetrics(reg)
	srv := telemetry.NewServer(addr, reg)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

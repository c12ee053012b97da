package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cadence/internal/config"
	"cadence/internal/llm"
	"cadence/internal/logging"
	"cadence/internal/observability"
	"cadence/internal/schedule"
	"cadence/internal/schedule/answers"
	"cadence/internal/schedule/focus"
	"cadence/internal/schedule/importance"
	"cadence/internal/schedule/intent"
	"cadence/internal/schedule/pipeline"
	"cadence/internal/schedule/taskdraft"
	"cadence/internal/schedule/temporal"
	"cadence/internal/server"
	"cadence/internal/textutil"
)

const version = "0.3.0"

var (
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// app holds the assembled core shared by the subcommands.
type app struct {
	cfg         config.Config
	meta        config.Metadata
	logger      logging.Logger
	metrics     *observability.MetricsCollector
	pipeline    *pipeline.Pipeline
	interpreter *intent.Interpreter
	guard       *answers.Guard

	configFile string
	timezone   string
	bias       bool
	biasSet    bool
	asJSON     bool
	debug      bool
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "cadence",
		Short: "Turn raw signals into calendar drafts and task drafts",
		Long: fmt.Sprintf(`%s

cadence reads unstructured signals (email, chat, notes) and produces
deduplicated, timezone-correct calendar-event drafts and normalized
task drafts. Nothing is written to any calendar; output is always a
reviewable draft.

%s
  cadence drafts signals.yaml --timezone America/New_York
  cadence intent "schedule a weekly check-in with Sam"
  cadence tasks notes.txt
  cadence check "what time works? should we invite design?" "after 2pm; yes"
  cadence serve`,
			bold("cadence "+version), bold("EXAMPLES:")),
	}

	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&a.timezone, "timezone", "z", "", "User timezone (IANA name)")
	rootCmd.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Emit JSON instead of text")
	rootCmd.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "Debug logging")

	rootCmd.AddCommand(newDraftsCommand(a))
	rootCmd.AddCommand(newIntentCommand(a))
	rootCmd.AddCommand(newTasksCommand(a))
	rootCmd.AddCommand(newCheckCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newConfigCommand(a))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// initialize loads config and assembles the core. The completer is
// optional: without an API key the intent commands fall back to
// lexical routing and defaults.
func (a *app) initialize() error {
	var opts []config.Option
	if a.configFile != "" {
		opts = append(opts, config.WithConfigFile(a.configFile))
	}
	if a.timezone != "" {
		tz := a.timezone
		opts = append(opts, config.WithOverride(func(c *config.Config) {
			c.Pipeline.DefaultTimezone = tz
		}))
	}
	if a.biasSet {
		bias := a.bias
		opts = append(opts, config.WithOverride(func(c *config.Config) {
			c.Pipeline.ScheduleBias = bias
		}))
	}

	cfg, meta, err := config.Load(opts...)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.meta = meta

	if a.debug {
		logging.SetLevel(logging.DEBUG)
	}
	a.logger = logging.NewComponentLogger("cli")

	if cfg.Metrics.Enabled {
		// Scrape server starts in serve only; one-shot commands just
		// record into the local provider.
		collector, err := observability.NewMetricsCollector(observability.MetricsConfig{
			Enabled: true,
		})
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		a.metrics = collector
	}

	var completer llm.Completer
	if cfg.LLM.APIKey != "" {
		completer = llm.NewClient(cfg.LLM, logging.NewComponentLogger("llm"))
	}

	sim, err := textutil.ForName(cfg.Answers.Similarity)
	if err != nil {
		return err
	}

	a.pipeline = pipeline.New(
		pipeline.Config{
			FocusThreshold:   cfg.Pipeline.FocusThreshold,
			MergeWindow:      time.Duration(cfg.Pipeline.MergeWindowMinutes) * time.Minute,
			MinGap:           time.Duration(cfg.Pipeline.MinGapMinutes) * time.Minute,
			DefaultDuration:  time.Duration(cfg.Pipeline.DefaultDurationMins) * time.Minute,
			MaxParallel:      cfg.Pipeline.MaxParallelExtract,
			ImportanceRescue: cfg.Pipeline.ImportanceRescue,
		},
		focus.NewClassifier(cfg.Pipeline.FocusThreshold, nil),
		importance.NewScorer(cfg.Pipeline.ImportantContacts),
		temporal.NewParser(time.Duration(cfg.Pipeline.DefaultDurationMins)*time.Minute),
		sim,
		a.metrics,
		logging.NewComponentLogger("pipeline"),
	)
	a.interpreter = intent.NewInterpreter(completer, intent.InterpreterConfig{
		Temperature:       cfg.LLM.Temperature,
		MaxTokens:         cfg.LLM.MaxTokens,
		PromptTokenBudget: cfg.LLM.PromptTokenBudget,
		CacheSize:         cfg.LLM.CacheSize,
		CacheTTL:          cfg.LLM.CacheTTL(),
	}, a.metrics, logging.NewComponentLogger("intent"))
	a.guard = answers.NewGuard(answers.Config{
		SimilarityThreshold: cfg.Answers.SimilarityThreshold,
		RelevanceFloor:      cfg.Answers.RelevanceFloor,
		ImplicitCoverScore:  cfg.Answers.ImplicitCoverScore,
		MaxSubQuestions:     cfg.Answers.MaxSubQuestions,
	}, sim)
	return nil
}

// signalBatch is the on-disk format accepted by the drafts command:
// either a bare YAML list of signals or a document with a signals key.
type signalBatch struct {
	Signals []schedule.Signal `yaml:"signals"`
}

func loadSignals(path string) ([]schedule.Signal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signals: %w", err)
	}
	var batch signalBatch
	if err := yaml.Unmarshal(data, &batch); err == nil && len(batch.Signals) > 0 {
		return batch.Signals, nil
	}
	var bare []schedule.Signal
	if err := yaml.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("decode signals from %s: %w", path, err)
	}
	return bare, nil
}

func newDraftsCommand(a *app) *cobra.Command {
	var nowFlag string
	cmd := &cobra.Command{
		Use:   "drafts <signals.yaml>",
		Short: "Generate draft events from a signal batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initialize(); err != nil {
				return err
			}
			signals, err := loadSignals(args[0])
			if err != nil {
				return err
			}

			opts := pipeline.Options{UserTZ: a.cfg.Pipeline.DefaultTimezone}
			if nowFlag != "" {
				now, err := time.Parse(time.RFC3339, nowFlag)
				if err != nil {
					return fmt.Errorf("invalid --now: %w", err)
				}
				opts.Now = now
			}

			result := a.pipeline.Generate(cmd.Context(), signals, opts)
			if a.asJSON {
				return printJSON(result)
			}
			printDrafts(result, len(signals))
			return nil
		},
	}
	cmd.Flags().StringVar(&nowFlag, "now", "", "Reference instant (RFC3339) for reproducible batches")
	return cmd
}

func printDrafts(result schedule.PipelineResult, total int) {
	if len(result.Events) == 0 {
		fmt.Printf("%s no draft events (%d signals gated or without temporal cues)\n", yellow("~"), total)
		return
	}
	fmt.Printf("%s %d draft event(s) from %d signal(s)\n\n", green("*"), len(result.Events), total)
	for _, event := range result.Events {
		fmt.Printf("%s %s\n", bold(event.Title), gray(string(event.Source)))
		fmt.Printf("  %s  %s - %s (%s)\n", blue("when"), event.StartISO, event.EndISO, event.Timezone)
		fmt.Printf("  %s  %s\n", blue("why"), strings.Join(event.Reasons, "; "))
		if event.SourceRef != "" {
			fmt.Printf("  %s  %s\n", blue("ref"), gray(event.SourceRef))
		}
		fmt.Println()
	}
	if len(result.UnscheduledTaskIDs) > 0 {
		fmt.Printf("%s unscheduled: %s\n", yellow("~"), strings.Join(result.UnscheduledTaskIDs, ", "))
	}
}

func newIntentCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intent <message>",
		Short: "Route a message and extract a scheduling intent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.biasSet = cmd.Flags().Changed("bias")
			if err := a.initialize(); err != nil {
				return err
			}
			message := strings.Join(args, " ")

			route := intent.Route(message, intent.Options{ScheduleBias: a.cfg.Pipeline.ScheduleBias})
			if !intent.IsScheduleAllowed(route) {
				if a.asJSON {
					return printJSON(map[string]any{"route": route})
				}
				fmt.Printf("%s routed as %s; no calendar drafts will be emitted\n", yellow("~"), bold(string(route)))
				return nil
			}

			usi := a.interpreter.Interpret(cmd.Context(), message, a.cfg.Pipeline.DefaultTimezone)
			if a.asJSON {
				return printJSON(map[string]any{"route": route, "intent": usi})
			}
			fmt.Printf("%s %s\n", green("*"), bold(usi.Goal))
			fmt.Printf("  %s  %d min, %s, priority %d\n", blue("plan"), usi.DurationMin, usi.Cadence.Kind, usi.Priority)
			fmt.Printf("  %s  %s\n", blue("zone"), usi.Timezone)
			if usi.Window != "" {
				fmt.Printf("  %s  %s\n", blue("window"), usi.Window)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&a.bias, "bias", false, "Treat ambiguous input as a schedule request")
	return cmd
}

func newTasksCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks <notes.txt>",
		Short: "Extract normalized task drafts from free text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initialize(); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read notes: %w", err)
			}

			raws := a.interpreter.ExtractTasks(cmd.Context(), string(data))
			drafts := taskdraft.NormalizeAll(raws, time.Now())
			if a.asJSON {
				return printJSON(drafts)
			}
			if len(drafts) == 0 {
				fmt.Printf("%s nothing actionable found\n", yellow("~"))
				return nil
			}
			for _, draft := range drafts {
				fmt.Printf("%s %s %s\n", green("*"), bold(draft.Title), gray(fmt.Sprintf("[%s, %dm]", draft.Priority, draft.EffortMinutes)))
				if draft.DueAt != "" {
					fmt.Printf("  %s  %s\n", blue("due"), draft.DueAt)
				}
			}
			return nil
		},
	}
}

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <message> <answer>",
		Short: "Score how well an answer covers a message's questions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initialize(); err != nil {
				return err
			}

			m := a.guard.BuildAnswerMap(args[0], args[1])
			clarifier, needed := a.guard.MaybeClarifier(args[0], m.Relevance)
			if a.asJSON {
				return printJSON(map[string]any{"map": m, "clarifier": clarifier, "needsAsk": needed})
			}
			fmt.Printf("%s coverage %.2f, relevance %.2f\n", green("*"), m.Coverage, m.Relevance)
			for _, item := range m.Items {
				fmt.Printf("  %s %s\n    %s\n", blue("?"), item.Question, gray(item.Answer))
			}
			if needed {
				fmt.Printf("\n%s %s\n", yellow("~"), clarifier)
			}
			return nil
		},
	}
}

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP facade",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initialize(); err != nil {
				return err
			}

			if a.metrics != nil && a.cfg.Metrics.PrometheusPort > 0 {
				if err := a.metrics.StartPrometheusServer(a.cfg.Metrics.PrometheusPort); err != nil {
					return fmt.Errorf("prometheus exporter: %w", err)
				}
			}

			srv := server.New(a.cfg, a.pipeline, a.interpreter, a.guard, logging.NewComponentLogger("server"))

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigChan
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					a.logger.Error("shutdown: %v", err)
				}
				if a.metrics != nil {
					_ = a.metrics.Shutdown(ctx)
				}
			}()

			fmt.Printf("%s cadence listening on %s:%d\n", green("*"), a.cfg.Server.Host, a.cfg.Server.Port)
			return srv.Start()
		},
	}
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initialize(); err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(a.cfg)
			}
			fmt.Printf("\n%s Effective configuration:\n", bold("*"))
			if a.meta.FileUsed != "" {
				fmt.Printf("  %s: %s\n", bold("File"), blue(a.meta.FileUsed))
			}
			fmt.Printf("  %s: %s (%s)\n", bold("Model"), blue(a.cfg.LLM.Model), gray(a.cfg.LLM.Provider))
			fmt.Printf("  %s: %s\n", bold("Timezone"), blue(a.cfg.Pipeline.DefaultTimezone))
			fmt.Printf("  %s: %.2f\n", bold("Focus threshold"), a.cfg.Pipeline.FocusThreshold)
			fmt.Printf("  %s: %d min window, %d min gap\n", bold("Dedup"),
				a.cfg.Pipeline.MergeWindowMinutes, a.cfg.Pipeline.MinGapMinutes)
			for section, source := range a.meta.Sources {
				fmt.Printf("  %s: %s\n", gray(section), gray(string(source)))
			}
			return nil
		},
	})
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cadence %s\n", version)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/simwalk/simwalk/pkg/cfg"
	"github.com/simwalk/simwalk/pkg/config"
	"github.com/simwalk/simwalk/pkg/explore"
	"github.com/simwalk/simwalk/pkg/stores"
	"github.com/simwalk/simwalk/pkg/telemetry"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Explore a program graph with the configured techniques",
		Long: `Run one exploration to completion.

The configuration names the program description and composes the technique
chain: goals, limits, spilling, threading. The run finishes when a goal is
reached, the active stash drains, or the round limit is hit; the final
stash census is reported either way.`,
		Example: `  # Explore with a run configuration
  simwalk run ./examples/maze.yaml

  # Same, as JSON for scripting
  simwalk run --json ./examples/maze.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if verbose {
				runCfg.Logging.Level = "debug"
			}

			logger, err := telemetry.NewLogger(runCfg.Logging)
			if err != nil {
				return fmt.Errorf("configuring logger: %w", err)
			}

			ctx := cmd.Context()
			tracer, err := telemetry.NewTracer(runCfg.Tracing, "simwalk", cmd.Root().Version, "cli")
			if err != nil {
				return fmt.Errorf("configuring tracer: %w", err)
			}
			defer func() {
				if err := tracer.Shutdown(ctx); err != nil {
					logger.Warn().Err(err).Msg("Tracer shutdown failed")
				}
			}()

			metrics, err := telemetry.NewMetrics(runCfg.Metrics)
			if err != nil {
				return fmt.Errorf("configuring metrics: %w", err)
			}
			if h := metrics.Handler(); h != nil && runCfg.Metrics.Listen != "" {
				go func() {
					if err := http.ListenAndServe(runCfg.Metrics.Listen, h); err != nil {
						logger.Warn().Err(err).Msg("Metrics endpoint stopped")
					}
				}()
			}

			prog, err := cfg.LoadProgram(runCfg.Program)
			if err != nil {
				return err
			}
			introspect := runCfg.Introspection == nil || *runCfg.Introspection
			engine := cfg.NewEngine(prog, introspect)

			var otelTracer trace.Tracer
			if runCfg.Tracing.Enabled {
				otelTracer = tracer.Tracer()
			}
			mgr, err := explore.NewManager(explore.ManagerConfig{
				Project:  &explore.Project{Engine: engine},
				Initial:  []explore.State{cfg.NewState(prog)},
				Logger:   logger,
				Observer: metrics,
				Tracer:   otelTracer,
			})
			if err != nil {
				return err
			}

			cleanup, err := registerTechniques(cmd, mgr, runCfg, engine, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			logger.Info().Str("program", prog.Name).Uint64("entry", prog.Entry).
				Msg("Starting exploration")
			if err := mgr.Run(ctx, &explore.RunOptions{MaxRounds: runCfg.Limits.MaxRounds}); err != nil {
				return err
			}
			return printReport(mgr)
		},
	}
	return cmd
}

// registerTechniques composes the technique chain from configuration.
// Priorities keep the chain ordered: bookkeeping and round-replacing
// techniques outermost, goal filtering innermost.
func registerTechniques(cmd *cobra.Command, mgr *explore.Manager, runCfg *config.RunConfig, engine *cfg.Engine, logger zerolog.Logger) (func(), error) {
	cleanup := func() {}

	if sc := runCfg.Spiller; sc != nil {
		var store explore.SpillStore
		if sc.Path != "" {
			sqlStore, err := stores.NewSQLiteStore(stores.Config{Path: sc.Path})
			if err != nil {
				return cleanup, err
			}
			ctx := cmd.Context()
			if err := sqlStore.Init(ctx); err != nil {
				return cleanup, err
			}
			if err := sqlStore.Migrate(ctx); err != nil {
				_ = sqlStore.Close()
				return cleanup, err
			}
			cleanup = func() {
				if err := sqlStore.Close(); err != nil {
					logger.Warn().Err(err).Msg("Closing spill store failed")
				}
			}
			store = sqlStore
		} else {
			store = stores.NewMemoryStore()
		}
		spiller, err := explore.NewSpiller(explore.SpillerConfig{
			Max:    sc.Max,
			Min:    sc.Min,
			Store:  store,
			Codec:  engine,
			Logger: logger,
		})
		if err != nil {
			return cleanup, err
		}
		if err := mgr.Use(spiller, 100); err != nil {
			return cleanup, err
		}
	}

	if tc := runCfg.Threading; tc != nil {
		if err := mgr.Use(explore.NewThreading(tc.Workers, logger), 90); err != nil {
			return cleanup, err
		}
	}
	if st := runCfg.Stochastic; st != nil {
		if err := mgr.Use(explore.NewStochasticSearch(st.Seed, ""), 80); err != nil {
			return cleanup, err
		}
	}
	if w := runCfg.Limits.StepWidth; w > 0 {
		if err := mgr.Use(explore.NewDFS(w), 70); err != nil {
			return cleanup, err
		}
	}
	if ml := runCfg.Limits.MaxLength; ml > 0 {
		if err := mgr.Use(explore.NewLengthLimiter(ml, ""), 60); err != nil {
			return cleanup, err
		}
	}
	if runCfg.Unique {
		if err := mgr.Use(explore.NewUniqueSearch(nil, ""), 50); err != nil {
			return cleanup, err
		}
	}

	find, err := goalCondition(runCfg.Goals.Find, runCfg.Goals.FindScript)
	if err != nil {
		return cleanup, err
	}
	avoid, err := goalCondition(runCfg.Goals.Avoid, runCfg.Goals.AvoidScript)
	if err != nil {
		return cleanup, err
	}
	precedence := explore.AvoidFirst
	if runCfg.Goals.Precedence == "find" {
		precedence = explore.FindFirst
	}
	explorer, err := explore.NewExplorer(explore.ExplorerConfig{
		Find:       find,
		Avoid:      avoid,
		Precedence: precedence,
		NumFind:    runCfg.Goals.NumFind,
		Logger:     logger,
	})
	if err != nil {
		return cleanup, err
	}
	if err := mgr.Use(explorer, 10); err != nil {
		return cleanup, err
	}
	return cleanup, nil
}

// goalCondition builds a condition from either an address list or a
// Starlark predicate script; the loader guarantees they are exclusive.
func goalCondition(addrs []uint64, script string) (any, error) {
	if script != "" {
		pred, err := config.CompilePredicate(script)
		if err != nil {
			return nil, err
		}
		return pred, nil
	}
	if len(addrs) > 0 {
		return addrs, nil
	}
	return nil, nil
}

// runReport is the machine-readable run summary.
type runReport struct {
	Stashes map[string]int    `json:"stashes"`
	Found   [][]uint64        `json:"found,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func printReport(mgr *explore.Manager) error {
	report := runReport{Stashes: make(map[string]int)}
	for name, states := range mgr.Stashes() {
		report.Stashes[name] = len(states)
	}
	for _, s := range mgr.Stash(explore.StashFound) {
		if sim, ok := s.(*cfg.SimState); ok {
			report.Found = append(report.Found, sim.Trace())
		}
	}
	for _, s := range mgr.Stash(explore.StashErrored) {
		if err := mgr.Failure(s.ID()); err != nil {
			if report.Errors == nil {
				report.Errors = make(map[string]string)
			}
			report.Errors[s.ID()] = err.Error()
		}
	}

	if jsonOutput {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	names := make([]string, 0, len(report.Stashes))
	for name := range report.Stashes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-12s %d\n", name, report.Stashes[name])
	}
	for i, tr := range report.Found {
		fmt.Printf("found[%d]:", i)
		for _, addr := range tr {
			fmt.Printf(" %#x", addr)
		}
		fmt.Println()
	}
	if len(report.Errors) > 0 {
		log.Warn().Int("errored", len(report.Errors)).
			Msg("Run finished with quarantined states; inspect the errored stash")
	}
	return nil
}

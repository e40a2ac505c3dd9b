package cmd

import (
	"os"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gocotb/gocotb/cotb"
	"github.com/gocotb/gocotb/sim"
	"github.com/gocotb/gocotb/testbench"
)

var (
	configPath string // Path to the yaml testbench description
	logLevel   string // Log verbosity level
	seed       int64  // Seed for random stimulus generation
	toplevel   string // Design root name override
	horizon    uint64 // Simulation horizon (in ticks, 0 = unlimited)
	only       []string
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "gocotb",
	Short: "Coroutine-based test runner over an event-driven logic simulator",
}

// runCmd builds the configured testbench on the built-in simulator backend
// and drives the registered tests to completion.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the registered tests",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}

		cfg := DefaultConfig()
		if configPath != "" {
			cfg, err = LoadConfig(configPath)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
		}
		if toplevel != "" {
			cfg.Toplevel = toplevel
		}
		precision, err := cfg.PrecisionUnit()
		if err != nil {
			logrus.Fatalf("Invalid precision: %v", err)
		}

		backend := sim.New(cfg.Toplevel, precision)
		engine := cotb.NewEngine(backend)
		engine.Logger().SetLevel(level)
		backend.SetLogger(engine.Logger())

		for _, suite := range cfg.Suites {
			switch suite {
			case "dff":
				if err := backend.AttachDFF("clk", "d", "q"); err != nil {
					logrus.Fatalf("unable to build dff model: %v", err)
				}
				testbench.RegisterDFF(engine, seed)
			case "axil":
				if err := backend.AttachAxilRegFile(sim.AxilConfig{Words: cfg.AxilWords}); err != nil {
					logrus.Fatalf("unable to build axil model: %v", err)
				}
				testbench.RegisterAxil(engine, seed, cfg.AxilIterations)
			case "failure":
				testbench.RegisterFailure(engine)
			default:
				logrus.Fatalf("unknown suite %q", suite)
			}
		}

		if len(only) > 0 {
			engine.Runner().SetFilter(func(name string) bool {
				return slices.Contains(only, name)
			})
		}

		backend.Run(horizon)
		os.Exit(engine.ExitCode())
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to a yaml testbench description")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for random stimulus generation")
	runCmd.Flags().StringVar(&toplevel, "toplevel", "", "Design root name (overrides the config)")
	runCmd.Flags().Uint64Var(&horizon, "horizon", 0, "Simulation horizon in ticks (0 = unlimited)")
	runCmd.Flags().StringSliceVar(&only, "test", nil, "Run only the named tests")

	rootCmd.AddCommand(runCmd)
}

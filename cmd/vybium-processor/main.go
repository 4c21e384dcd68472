// vybium-processor runs programs on the Vybium processor and inspects them
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vybium/vybium-processor/internal/vybium-processor/advice"
	"github.com/vybium/vybium-processor/internal/vybium-processor/log"
	"github.com/vybium/vybium-processor/internal/vybium-processor/utils"
	vybiumprocessor "github.com/vybium/vybium-processor/pkg/vybium-processor"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "vybium-processor",
		Short: "Vybium processor",
		Long: `Executes code-block programs over the Goldilocks field and reports
the resulting stack, cycle count and trace shape.`,
		SilenceUsage: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	var (
		logLevel    string
		stackValues string
		advicePath  string
		nodeStore   string
		maxCycles   int
		checks      bool
		numOutputs  int
	)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		lvl, err := log.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.SetDefault(log.NewTextLogger(os.Stderr, lvl))
		return nil
	}

	// Run command - executes a program and builds its trace
	var runCmd = &cobra.Command{
		Use:   "run <program.json>",
		Short: "Execute a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := readProgram(args[0])
			if err != nil {
				return err
			}
			values, err := parseStack(stackValues)
			if err != nil {
				return err
			}
			inputs, err := vybiumprocessor.NewStackInputs(values)
			if err != nil {
				return err
			}
			provider, closeStore, err := openAdvice(advicePath, nodeStore)
			if err != nil {
				return err
			}
			defer closeStore()

			options := vybiumprocessor.DefaultExecutionOptions().WithTraceChecks(checks)
			if maxCycles > 0 {
				options.WithMaxCycles(maxCycles)
				if options.ExpectedCycles > maxCycles {
					options.WithExpectedCycles(maxCycles)
				}
			}
			proc, err := vybiumprocessor.NewProcessor(options, log.Root())
			if err != nil {
				return err
			}
			res, err := proc.Run(prog, inputs, provider)
			if err != nil {
				return err
			}

			lengths := res.Trace.Lengths()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "program: %s\n", prog.Hash().Hex())
			fmt.Fprintf(out, "cycles:  %d\n", res.Cycles)
			fmt.Fprintf(out, "trace:   2^%d rows x %d columns (main %d, chiplets %d, range %d)\n",
				utils.Log2(res.Trace.NumRows()), res.Trace.Width(), lengths.Main, lengths.Chiplets, lengths.Range)
			fmt.Fprintf(out, "stack:   %v\n", res.Outputs.Uint64s(numOutputs))
			fp := res.Trace.Fingerprint()
			fmt.Fprintf(out, "fingerprint: %x\n", fp[:])
			return nil
		},
	}
	runCmd.Flags().StringVar(&stackValues, "stack", "", "Comma-separated stack inputs; the last value ends up on top")
	runCmd.Flags().StringVar(&advicePath, "advice", "", "Advice inputs document (JSON)")
	runCmd.Flags().StringVar(&nodeStore, "node-store", "", "LevelDB directory backing the advice Merkle store")
	runCmd.Flags().IntVar(&maxCycles, "max-cycles", 0, "Cycle budget (0 = default)")
	runCmd.Flags().BoolVar(&checks, "check", true, "Check bus and range balance after building the trace")
	runCmd.Flags().IntVar(&numOutputs, "outputs", 16, "Number of stack outputs to print")

	// Hash command - prints the program hash without executing
	var hashCmd = &cobra.Command{
		Use:   "hash <program.json>",
		Short: "Print the program hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := readProgram(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prog.Hash().Hex())
			return nil
		},
	}

	// Tree command - renders the code-block tree
	var treeCmd = &cobra.Command{
		Use:   "tree <program.json>",
		Short: "Render the code-block tree of a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := readProgram(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), prog.Root().Tree().String())
			return nil
		},
	}

	// Version command
	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vybium-processor %s (commit %s, built %s)\n", Version, Commit, BuildTime)
		},
	}

	rootCmd.AddCommand(runCmd, hashCmd, treeCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func readProgram(path string) (*vybiumprocessor.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}
	return vybiumprocessor.DecodeProgram(data)
}

// parseStack parses "1,2,3" into stack inputs
func parseStack(s string) ([]uint64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	values := make([]uint64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("stack input %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

// openAdvice loads the advice document, if any, and backs its Merkle store
// with LevelDB when a directory is given.
func openAdvice(path, storeDir string) (vybiumprocessor.AdviceProvider, func(), error) {
	in := advice.Inputs{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read advice: %w", err)
		}
		if in, err = advice.DecodeInputsJSON(data); err != nil {
			return nil, nil, err
		}
	}

	if storeDir == "" {
		p, err := advice.NewMemProvider(in)
		return p, func() {}, err
	}

	store, err := advice.NewLevelDBNodeStore(storeDir)
	if err != nil {
		return nil, nil, err
	}
	p, err := advice.NewProviderWithStore(in, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return p, func() { store.Close() }, nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aelexs/hubclock/internal/config"
	"github.com/aelexs/hubclock/internal/domain"
	"github.com/aelexs/hubclock/internal/hubclock/port"
	"github.com/aelexs/hubclock/internal/hubtime"
	"github.com/aelexs/hubclock/internal/runner"
	"github.com/aelexs/hubclock/pkg/protocol"
)

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "hubclock",
		Short: "Hub clock: cycles, slices, ticks and tickules.",
		Long: `hubclock keeps Hub time: 16 slices per cycle, 100 ticks per slice and ` +
			`100 tickules per tick, one tickule every 60/77 of a second. ` +
			`Cycles are shown as splat dates truncated to a chosen precision.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("%w: %q", domain.ErrUnknownCommand, args[0])
			}
			return cmd.Help()
		},
	}
	// Flag parsing errors are usage errors, like unknown commands.
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	})
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(
		newRunCmd(),
		newFormatCmd(),
		newVersionCmd(),
	)
	return root
}

// noArgs is cobra.NoArgs reporting a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func newRunCmd() *cobra.Command {
	var configFile, envFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the live clock and read commands from stdin.",
		Long: "Run the live clock. Type `help` for the command list. " +
			"Settings come from HUBCLOCK_* environment variables, a dotenv file " +
			"and an optional YAML config file.",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts []config.LoadOption
			if configFile != "" {
				opts = append(opts, config.WithConfigFile(configFile))
			}
			if envFile != "" {
				opts = append(opts, config.WithEnvFile(envFile))
			}
			return runner.Run(cmd.Context(), runner.Params{
				Version:       version,
				Stdin:         cmd.InOrStdin(),
				Stdout:        cmd.OutOrStdout(),
				Stderr:        cmd.ErrOrStderr(),
				ConfigOptions: opts,
			})
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "YAML config file (overrides "+config.ConfigFileVar+")")
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file (overrides "+config.EnvFileVar+")")
	return cmd
}

func newFormatCmd() *cobra.Command {
	var (
		cycle     int
		elapsed   int
		precision int
		asJSON    bool
		frameFile string
	)

	cmd := &cobra.Command{
		Use:   "format",
		Short: "Print the display strings for one clock value.",
		Long: "Build a clock value and print it. Out-of-range values are clamped; " +
			"elapsed tickules beyond one cycle carry into the cycle number. " +
			"With --frame the value is read from a JSON snapshot or draft frame.",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := hubtime.New()
			t.SetCycle(cycle)
			t.SetPrecision(precision)
			t.SetTotalElapsed(elapsed)

			if frameFile != "" {
				for _, name := range []string{"cycle", "elapsed", "precision"} {
					if cmd.Flags().Changed(name) {
						return fmt.Errorf("%w: --frame cannot be combined with --%s", domain.ErrInvalidInput, name)
					}
				}
				var err error
				if t, err = readFrame(cmd.InOrStdin(), frameFile); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if !asJSON {
				_, err := fmt.Fprintln(out, t.String())
				return err
			}
			frame, err := protocol.NewFrame(protocol.FrameTypeSnapshot, port.SnapshotOf(t, false))
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
			}
			return json.NewEncoder(out).Encode(frame)
		},
	}
	cmd.Flags().IntVar(&cycle, "cycle", 0, "cycle number")
	cmd.Flags().IntVar(&elapsed, "elapsed", 0, "tickules since the cycle began")
	cmd.Flags().IntVar(&precision, "precision", hubtime.DefaultPrecision, "cycle digits shown (1-7)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON snapshot frame")
	cmd.Flags().StringVar(&frameFile, "frame", "", "read a JSON snapshot or draft frame from a file, or - for stdin")
	return cmd
}

// readFrame decodes the first frame in path, or in stdin for "-".
func readFrame(stdin io.Reader, path string) (hubtime.Time, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return hubtime.Time{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		defer f.Close()
		r = f
	}

	var frame protocol.Frame
	if err := json.NewDecoder(r).Decode(&frame); err != nil {
		return hubtime.Time{}, fmt.Errorf("%w: decode frame: %v", domain.ErrInvalidInput, err)
	}
	return port.TimeFromFrame(&frame)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version.",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hubclock %s\n", version)
		},
	}
}

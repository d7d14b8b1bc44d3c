package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcdev12/fingerpicker/go/internal/picker/config"
	"github.com/mcdev12/fingerpicker/go/internal/picker/events"
	"github.com/mcdev12/fingerpicker/go/internal/picker/pick"
	"github.com/mcdev12/fingerpicker/go/internal/picker/simulate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:          "picker-sim",
		Short:        "Replay scripted rounds of the finger picker on a fake clock",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// A missing .env is fine for the simulator.
			_ = godotenv.Load()
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Picker config file (YAML)")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log every feedback request and timer action")

	cmd.AddCommand(listCmd())
	cmd.AddCommand(runCmd(&configPath, &debug))
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in scenarios",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, s := range simulate.Scenarios() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", s.Name, s.Description)
			}
			return nil
		},
	}
}

func runCmd(configPath *string, debug *bool) *cobra.Command {
	var seed int64
	var scriptPath string
	var mode string
	var wavPath string

	c := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run built-in scenarios or a script file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if *debug {
				cfg.Log.Level = "debug"
			}
			config.SetupLogging(cfg.Log)

			opts := cfg.PickerOptions()
			if mode != "" {
				m, err := pick.ParseMode(mode)
				if err != nil {
					return err
				}
				opts.Mode = m
			}

			scripts, err := selectScripts(scriptPath, args)
			if err != nil {
				return err
			}
			if wavPath != "" && len(scripts) != 1 {
				return fmt.Errorf("--wav needs exactly one script, got %d", len(scripts))
			}

			for _, script := range scripts {
				res, err := simulate.Run(script, opts, seed)
				if err != nil {
					return fmt.Errorf("%s: %w", script.Name, err)
				}
				logResult(res)
				if err := simulate.Report(cmd.OutOrStdout(), res); err != nil {
					return err
				}

				if wavPath != "" {
					if err := writeWAV(wavPath, res); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	c.Flags().Int64Var(&seed, "seed", 1, "Random seed for the picker")
	c.Flags().StringVarP(&scriptPath, "script", "s", "", "Run a YAML script instead of built-in scenarios")
	c.Flags().StringVarP(&mode, "mode", "m", "", "Starting mode: single|group")
	c.Flags().StringVar(&wavPath, "wav", "", "Write the countdown tone to a WAV file")
	return c
}

func selectScripts(path string, names []string) ([]simulate.Script, error) {
	if path != "" {
		s, err := simulate.LoadScript(path)
		if err != nil {
			return nil, err
		}
		return []simulate.Script{s}, nil
	}
	if len(names) == 0 {
		return simulate.Scenarios(), nil
	}

	out := make([]simulate.Script, 0, len(names))
	for _, name := range names {
		s, ok := simulate.Scenario(name)
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q (try: %s)", name, scenarioNames())
		}
		out = append(out, s)
	}
	return out, nil
}

func scenarioNames() string {
	var names []string
	for _, s := range simulate.Scenarios() {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}

func logResult(res simulate.Result) {
	for _, e := range res.Timeline {
		ev := log.Info().
			Str("script", res.Script).
			Dur("at", e.At).
			Str("request", string(e.Request.Type))
		if e.Request.DurationMs > 0 {
			ev = ev.Int64("duration_ms", e.Request.DurationMs)
		}
		if e.Request.Type == events.RequestParticleBurst {
			ev = ev.Float64("x", e.Request.X).Float64("y", e.Request.Y)
		}
		ev.Msg("feedback")
	}

	for _, out := range res.Outcomes {
		log.Info().
			Str("script", res.Script).
			Str("round_id", out.RoundID.String()).
			Str("mode", out.Mode.Key()).
			Interface("winners", out.Winners).
			Str("color", out.WinningColor.String()).
			Msg("round finished")
	}

	log.Info().
		Str("script", res.Script).
		Int64("seed", res.Seed).
		Str("final_state", res.Final.State.String()).
		Int("contestants", len(res.Final.Contestants)).
		Dur("elapsed", res.Elapsed).
		Dur("tone", res.Tone.Duration()).
		Msg("script done")
}

func writeWAV(path string, res simulate.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := res.Tone.WriteWAV(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.Info().Str("path", path).Dur("duration", res.Tone.Duration()).Msg("tone written")
	return nil
}

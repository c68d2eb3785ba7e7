package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/soletide/hydrostat/pkg/errors"
	profileio "github.com/soletide/hydrostat/pkg/io"
	"github.com/soletide/hydrostat/pkg/pipeline"
)

// runCommand creates the run command.
func (c *CLI) runCommand() *cobra.Command {
	var (
		out     string
		refresh bool
		noCache bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "run <config.toml>",
		Short: "Solve a model configuration into a radial profile",
		Long: `Solve the layer stack described by a TOML configuration file and write
the assembled radial profile as JSON.

Converged profiles are cached under their input fingerprint, so re-running an
unchanged configuration returns instantly. Use --refresh to force a re-solve.`,
		Example: `  # Solve a model and write profile.json
  hydrostat run examples/europa.toml

  # Watch solver progress interactively
  hydrostat run examples/europa.toml --watch

  # Force a fresh solve and print to stdout
  hydrostat run examples/europa.toml --refresh -o -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := LoadConfig(args[0])
			if err != nil {
				printError("%v", err)
				return err
			}

			runner, err := c.newRunner(noCache)
			if err != nil {
				return err
			}

			opts := cfg.PipelineOptions()
			opts.Refresh = refresh
			opts.Logger = logger

			var result *pipeline.Result
			if watch {
				result, err = c.runWatched(ctx, runner, opts)
			} else {
				sp := newSpinnerWithContext(ctx, fmt.Sprintf("solving %s", args[0]))
				sp.Start()
				result, err = runner.Execute(ctx, opts)
				sp.Stop()
				if sp.Cancelled() && err == nil {
					err = ctx.Err()
				}
			}
			if err != nil {
				printError("%s", errors.UserMessage(err))
				logger.Debug("run failed", "code", errors.GetCode(err), "err", err)
				return err
			}

			if err := writeProfile(result, out); err != nil {
				return err
			}
			printRunSummary(args[0], out, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "profile.json", "output path, .json or .csv (- for JSON on stdout)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache read and re-solve")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the profile cache entirely")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "show interactive solver progress")

	return cmd
}

// writeProfile writes the profile to path, or stdout for "-". A .csv
// extension selects the point-table export; everything else gets JSON.
func writeProfile(result *pipeline.Result, path string) error {
	if path == "-" {
		return profileio.WriteJSON(result.Profile, os.Stdout)
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return profileio.ExportCSV(result.Profile, path)
	}
	return profileio.ExportJSON(result.Profile, path)
}

func printRunSummary(cfgPath, out string, result *pipeline.Result) {
	p := result.Profile
	printSuccess("solved %s", StyleHighlight.Render(cfgPath))
	printStats(len(p.Points), 0, result.CacheInfo.ProfileHit)
	printNewline()

	printKeyValue("run", result.RunID)
	printKeyValue("fingerprint", result.Fingerprint[:12])
	printKeyValue("mismatch", fmt.Sprintf("%.2e", result.Stats.MassMismatch))
	if p.Interior.MoI > 0 {
		printKeyValue("MoI", fmt.Sprintf("%.4f", p.Interior.MoI))
	}
	if p.Interior.SilicateRadius > 0 {
		printKeyValue("seafloor", fmt.Sprintf("%.1f km", p.Interior.SilicateRadius/1e3))
	}
	if p.Interior.CoreRadius > 0 {
		printKeyValue("core", fmt.Sprintf("%.1f km", p.Interior.CoreRadius/1e3))
	}
	if !result.CacheInfo.ProfileHit {
		printKeyValue("trials", fmt.Sprintf("%d", result.Stats.Trials))
		printKeyValue("solve", result.Stats.SolveTime.Round(time.Millisecond).String())
	}
	if out != "-" {
		printNewline()
		printFile(out)
	}
}

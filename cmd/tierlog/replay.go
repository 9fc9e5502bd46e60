package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/tierlog/internal/eventlog"
	"github.com/crimson-sun/tierlog/internal/manifest"
	"github.com/crimson-sun/tierlog/internal/pipeline"
	"github.com/crimson-sun/tierlog/internal/recording"
	"github.com/crimson-sun/tierlog/internal/sessionlog"
)

func newReplayCmd(a *app) *cobra.Command {
	var (
		manifestFlag string
		sessionsPath string
		workers      int
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded sessions and emit one event per session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			path := a.manifestPath(manifestFlag)
			if path == "" {
				return errors.New("a manifest is required (--manifest or scheme.manifest)")
			}
			m, err := manifest.Load(path)
			if err != nil {
				return err
			}
			decl, err := m.Declaration()
			if err != nil {
				return err
			}

			f, err := os.Open(sessionsPath)
			if err != nil {
				return errors.Wrap(err, "open sessions")
			}
			defer f.Close()

			out, err := newOutput(a.cfg.Output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer func() {
				if cerr := out.Close(); cerr != nil && err == nil {
					err = errors.Wrap(cerr, "close output")
				}
			}()

			group := eventlog.NewGroup(a.cfg.Scheme.Group, a.cfg.Scheme.GroupVersion, out)
			scheme, err := sessionlog.New(group, decl)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			slog.Info("replay starting", "event", scheme.Name(), "sessions", sessionsPath, "workers", workers)
			stats, err := pipeline.New(scheme, pipeline.WithWorkers(workers)).Stream(ctx, recording.NewDecoder(f))
			fmt.Fprintf(cmd.ErrOrStderr(), "tierlog: replayed %d sessions (%d finished, %d start failures, %d exceptions, %d scheme mismatches)\n",
				stats.Sessions, stats.Finished, stats.StartFailures, stats.Exceptions, stats.Mismatches)
			return err
		},
	}
	cmd.Flags().StringVar(&manifestFlag, "manifest", "", "level manifest (.yaml, .yml or .toml)")
	cmd.Flags().StringVar(&sessionsPath, "sessions", "", "recorded sessions (YAML document stream)")
	cmd.Flags().IntVar(&workers, "workers", 1, "sessions replayed concurrently")
	_ = cmd.MarkFlagRequired("sessions")
	return cmd
}

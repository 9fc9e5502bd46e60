package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/tierlog/internal/eventlog"
	"github.com/crimson-sun/tierlog/internal/manifest"
	"github.com/crimson-sun/tierlog/internal/output"
	"github.com/crimson-sun/tierlog/internal/output/stdout"
	"github.com/crimson-sun/tierlog/internal/sessionlog"
)

func newDescribeCmd(a *app) *cobra.Command {
	var manifestFlag string

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the event layout declared by a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			group := eventlog.NewGroup(a.cfg.Scheme.Group, a.cfg.Scheme.GroupVersion, stdout.NewWriter(io.Discard, output.Standard, false))
			scheme, err := sessionlog.New(group, decl)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(w, "%s.%s v%d (%d levels)\n", group.ID(), scheme.Name(), group.Version(), scheme.Depth()); err != nil {
				return err
			}
			return writeFields(w, scheme.Fields(), 1)
		},
	}
	cmd.Flags().StringVar(&manifestFlag, "manifest", "", "level manifest (.yaml, .yml or .toml)")
	return cmd
}

// writeFields prints one line per field, children indented below their
// object field.
func writeFields(w io.Writer, fields []eventlog.Field, depth int) error {
	indent := strings.Repeat("  ", depth)
	for _, f := range fields {
		line := indent + f.Name + ": " + f.Kind.String()
		if f.Nullable {
			line += " (nullable)"
		}
		if f.Object != nil && f.Object.Open() {
			line += " (open)"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		if f.Object != nil {
			if err := writeFields(w, f.Object.Fields(), depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

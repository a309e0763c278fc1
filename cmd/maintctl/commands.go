package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/maintrack/internal/application"
	"github.com/JonMunkholm/maintrack/internal/config"
	"github.com/JonMunkholm/maintrack/internal/core"
	"github.com/JonMunkholm/maintrack/internal/logging"
)

type cli struct {
	out    io.Writer
	errOut io.Writer
	lookup config.LookupFunc
	app    *application.App
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "maintctl",
		Short:         "Administer a maintrack database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(c.lookup)
			if err != nil {
				return err
			}
			slog.SetDefault(logging.New(c.errOut, cfg.Logging.Level, cfg.Logging.Format))

			app, err := application.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			c.app = app
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				c.app.Close()
			}
		},
	}
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	root.AddCommand(
		c.migrateCommand(),
		c.importCommand(),
		c.nextIDCommand(),
		c.kindsCommand(),
		c.pruneCommand(),
		c.resetCommand(),
	)
	return root
}

var errNeedsDatabase = errors.New("this command needs DATABASE_URL to point at PostgreSQL")

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.Postgres == nil {
				return errNeedsDatabase
			}
			// application.Open has already applied the schema.
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func (c *cli) importCommand() *cobra.Command {
	var delimiter string

	cmd := &cobra.Command{
		Use:   "import <kind> <file>",
		Short: "Import a CSV file of one entity kind",
		Long: `Import upserts every row of the file by its id column. Rows that fail are
listed and skipped; the rest are written. A file missing required columns or
values is rejected without writing anything.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, path := args[0], args[1]
			def, err := core.Lookup(kind)
			if err != nil {
				return err
			}

			delim := core.DefaultDelimiter
			if delimiter != "" {
				r, size := utf8.DecodeRuneInString(delimiter)
				if size != len(delimiter) {
					return fmt.Errorf("invalid delimiter %q: use a single character", delimiter)
				}
				delim = r
			}

			data, err := os.ReadFile(filepath.Clean(path))
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			out := cmd.OutOrStdout()
			outcome, err := c.app.Service.Import(cmd.Context(), def.Kind, filepath.Base(path), data, delim)
			var verr *core.ImportValidationError
			if errors.As(err, &verr) {
				fmt.Fprintln(out, "Validation failed")
				for _, e := range verr.Result.Errors {
					fmt.Fprintln(out, "  "+e)
				}
				return err
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "%d %s processed (%d created, %d updated) in %s\n",
				outcome.Processed, def.Plural, outcome.Created, outcome.Updated, outcome.Duration.Round(time.Millisecond))
			for _, e := range outcome.Errors {
				fmt.Fprintln(out, "  "+e)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&delimiter, "delimiter", "d", "", "cell delimiter (default \",\")")
	return cmd
}

func (c *cli) nextIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "next-id <kind>",
		Short: "Show the identifier the next create would most likely receive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.app.Service.PeekNextID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func (c *cli) kindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the registered entity kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tPREFIX\tLABEL")
			for _, def := range c.app.Service.ListEntities() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", def.Kind, def.Prefix, def.Label)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) pruneCommand() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune-activity",
		Short: "Delete activity entries older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.app.PruneConfig()
			if days > 0 {
				cfg.RetentionDays = days
			}
			removed := c.app.Service.PruneActivity(cmd.Context(), cfg)
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries older than %d days\n", removed, cfg.RetentionDays)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention in days (default ACTIVITY_RETENTION_DAYS)")
	return cmd
}

func (c *cli) resetCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all data, including identifier sequences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes every record; pass --yes to confirm")
			}
			if c.app.Postgres == nil {
				return errNeedsDatabase
			}
			if err := c.app.Postgres.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"compass.dev/tracker/internal/app"
	"compass.dev/tracker/internal/config"
	"compass.dev/tracker/internal/logger"
)

// CLI holds the tracker opened for the running command.
type CLI struct {
	tracker  *app.App
	logLevel string
}

// newRootCommand builds the command tree. The caller closes the returned CLI
// once Execute returns, whether or not the command failed.
func newRootCommand() (*cobra.Command, *CLI) {
	cli := &CLI{}

	rootCmd := &cobra.Command{
		Use:          "compassctl",
		Short:        "Record and review personal metrics from the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.open(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVar(&cli.logLevel, "log-level", "warn", "Log level for diagnostics on stderr")

	rootCmd.AddCommand(newUsersCommand(cli))
	rootCmd.AddCommand(newRecordCommand(cli))
	rootCmd.AddCommand(newTrendsCommand(cli))
	rootCmd.AddCommand(newSummaryCommand(cli))
	rootCmd.AddCommand(newAskCommand(cli))
	return rootCmd, cli
}

func (c *CLI) open(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	zapLogger, err := logger.New(c.logLevel)
	if err != nil {
		return err
	}
	c.tracker, err = app.New(cmd.Context(), cfg, zapLogger)
	return err
}

func (c *CLI) close() error {
	if c.tracker == nil {
		return nil
	}
	c.tracker.Logger.Sync()
	err := c.tracker.Close()
	c.tracker = nil
	return err
}

func newUsersCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := cli.tracker.Tracker.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCREATED")
			for _, u := range users {
				fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Name, u.CreatedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a user with the default metrics enabled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := cli.tracker.Tracker.CreateUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d)\n", u.Name, u.ID)
			return nil
		},
	})
	return cmd
}

func newRecordCommand(cli *CLI) *cobra.Command {
	var userName, metricName, value, at string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record one metric value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var ts *time.Time
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC 3339: %w", err)
				}
				ts = &parsed
			}

			u, err := cli.tracker.Tracker.FindUser(cmd.Context(), userName)
			if err != nil {
				return err
			}
			entry, err := cli.tracker.Tracker.Record(cmd.Context(), u.ID, metricName, value, ts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s = %v for %s at %s\n",
				entry.MetricName, entry.Value.Any(), u.Name, entry.Timestamp.Local().Format(time.DateTime))
			return nil
		},
	}
	cmd.Flags().StringVar(&userName, "user", "", "User name")
	cmd.Flags().StringVar(&metricName, "metric", "", "Metric name")
	cmd.Flags().StringVar(&value, "value", "", "Value to record")
	cmd.Flags().StringVar(&at, "at", "", "Timestamp (RFC 3339), defaults to now")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("metric")
	cmd.MarkFlagRequired("value")
	return cmd
}

func newTrendsCommand(cli *CLI) *cobra.Command {
	var userName string
	var days int

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Show aggregates for every enabled metric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			u, err := cli.tracker.Tracker.FindUser(cmd.Context(), userName)
			if err != nil {
				return err
			}
			trends, err := cli.tracker.Tracker.Trends(cmd.Context(), u.ID, days)
			if err != nil {
				return err
			}
			return printTrends(cmd.OutOrStdout(), trends, days)
		},
	}
	cmd.Flags().StringVar(&userName, "user", "", "User name")
	cmd.Flags().IntVar(&days, "days", 30, "Number of days to look back")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newSummaryCommand(cli *CLI) *cobra.Command {
	var userName string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show today's summary, generating it if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := cli.tracker.Tracker.FindUser(cmd.Context(), userName)
			if err != nil {
				return err
			}
			text, ok := cli.tracker.Summaries.DailySummary(cmd.Context(), u.ID)
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No summary available today.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&userName, "user", "", "User name")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newAskCommand(cli *CLI) *cobra.Command {
	var userName string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the last 30 days of data",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := cli.tracker.Tracker.FindUser(cmd.Context(), userName)
			if err != nil {
				return err
			}
			answer := cli.tracker.Summaries.AnswerQuestion(cmd.Context(), u.ID, strings.Join(args, " "))
			if !answer.OK {
				return fmt.Errorf("%s", answer.Reason)
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&userName, "user", "", "User name")
	cmd.MarkFlagRequired("user")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"faunasetup/db"
	"faunasetup/model"
	"faunasetup/plugins/fauna"
	"faunasetup/provision"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(fauna.NewExecRunner()).ExecuteContext(ctx); err != nil {
		stop()
		log.Fatalf("command failed: %v", err)
	}
}

func newRootCmd(runner fauna.CommandRunner) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "setup-fauna",
		Short:         "Ensure the local fauna database exists and write its API key to the local config",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			logger, err := newLogger(v.GetString(logLevelFlag))
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			p, err := provision.New(cfg, runner, logger)
			if err != nil {
				return err
			}
			if path := v.GetString(auditDBFlag); path != "" {
				store, err := openStore(cmd.Context(), path)
				if err != nil {
					return err
				}
				defer closeStore(logger, store)
				p.Audit = store
			}

			outcome, err := p.Run(cmd.Context())
			if err != nil {
				logger.Errorf("provisioning %s failed: %v", cfg.DatabaseName, err)
				return err
			}
			logger.Debugf("run %s finished: %s", p.RunID, outcome)
			return nil
		},
	}
	addProvisionFlags(rootCmd.Flags())
	addCommonFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newHistoryCmd())
	return rootCmd
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List provisioning runs recorded in the audit database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd.Flags())
			if err != nil {
				return err
			}
			path := v.GetString(auditDBFlag)
			if path == "" {
				return fmt.Errorf("--%s (or %s_AUDIT_DB) is required", auditDBFlag, envPrefix)
			}
			store, err := openStore(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer closeStore(zap.NewNop().Sugar(), store)

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			return printRuns(cmd.Context(), cmd.OutOrStdout(), store, runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

// printRuns writes one line per run, newest first.
func printRuns(ctx context.Context, out io.Writer, store db.Store, runs []model.ProvisionRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No provisioning runs recorded.")
		return err
	}
	if _, err := fmt.Fprintf(out, "%-36s  %-20s  %-14s  %-8s  %-16s  %s\n",
		"RUN", "STARTED", "OUTCOME", "COMMANDS", "DATABASE", "ERROR"); err != nil {
		return err
	}
	for _, r := range runs {
		cmds, err := store.ListCommandsByRun(ctx, r.RunID)
		if err != nil {
			return fmt.Errorf("list commands of run %s: %w", r.RunID, err)
		}
		if _, err := fmt.Fprintf(out, "%-36s  %-20s  %-14s  %8d  %-16s  %s\n",
			r.RunID,
			r.StartedAt.UTC().Format(time.DateTime),
			r.Outcome,
			len(cmds),
			r.DatabaseName,
			firstLine(r.Error),
		); err != nil {
			return err
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func openStore(ctx context.Context, path string) (*db.SQLStore, error) {
	conn, err := db.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	store := db.NewSQLStore(conn)
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ping audit db: %w", err)
	}
	return store, nil
}

func closeStore(logger *zap.SugaredLogger, store *db.SQLStore) {
	if err := store.Close(); err != nil {
		logger.Warnf("failed to close audit db: %v", err)
	}
}

package main

import (
	"fmt"
	"perdecomp/cmd/internal/utils"
	"time"

	"github.com/spf13/cobra"
)

func backfillRiskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill-risk",
		Short: "Recompute risk and per-credit columns of snapshots from stored facts",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")

			e, err := openEnv()
			if err != nil {
				return err
			}
			n, err := e.perdcomp.BackfillRisk(cmd.Context(), all)
			if err != nil {
				return fmt.Errorf("backfill stopped after %d rows: %w", n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d snapshots\n", n)
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "Recompute every row, not only rows missing the columns")
	return cmd
}

func reconcileIDsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile-ids",
		Short: "Move rows stored under COMP- placeholder ids to canonical client ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			n, err := e.perdcomp.ReconcileIDs(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reconciled %d placeholder ids\n", n)
			return nil
		},
	}
}

func seedDictionaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-dictionary",
		Short: "Write the embedded taxonomy into the dictionary tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			reset, _ := cmd.Flags().GetBool("reset")

			e, err := openEnv()
			if err != nil {
				return err
			}
			if reset {
				if apierr := e.dictionary.Reset(cmd.Context()); apierr != nil {
					return fmt.Errorf("reset failed with status %d", apierr.Code())
				}
			}
			resp, apierr := e.dictionary.Seed(cmd.Context())
			if apierr != nil {
				return fmt.Errorf("seed failed with status %d", apierr.Code())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d rows, reloaded %d entries\n", resp.Rows, resp.Reloaded)
			return nil
		},
	}
	cmd.Flags().Bool("reset", false, "drop operator edits before seeding")
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [subject]",
		Short: "Issue a service token signed with API_JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			write, _ := cmd.Flags().GetBool("write")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := utils.InitSigningKey(cfg.JWTSecret); err != nil {
				return err
			}

			scope := ""
			if write {
				scope = utils.ScopeWrite
			}
			token, err := utils.IssueToken(args[0], scope, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Bool("write", false, "Grant dictionary maintenance scope")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

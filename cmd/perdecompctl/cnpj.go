package main

import (
	"encoding/json"
	"fmt"
	"perdecomp/cmd/internal/domain/perdcomp"
	"perdecomp/cmd/internal/utils/cnpj"

	"github.com/spf13/cobra"
)

func cnpjCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cnpj",
		Short: "CNPJ utilities",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "matriz [cnpj]",
		Short: "Print the headquarters CNPJ of a company or branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := cnpj.Normalize(args[0])
			if !cnpj.IsValid(doc) {
				return fmt.Errorf("invalid CNPJ %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), cnpj.Format(cnpj.ToHeadquarters(doc)))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [cnpj...]",
		Short: "Check one or more CNPJs; exits non-zero if any is invalid",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bad := 0
			for _, arg := range args {
				status := "valid"
				if !cnpj.IsValid(arg) {
					status = "invalid"
					bad++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", arg, status)
			}
			if bad > 0 {
				return fmt.Errorf("%d of %d CNPJs are invalid", bad, len(args))
			}
			return nil
		},
	})

	return cmd
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [numero]",
		Short: "Decode a 24-digit PER/DCOMP identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := perdcomp.Parse(args[0])
			if parsed == nil {
				return fmt.Errorf("%q is not a PER/DCOMP identifier", args[0])
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(parsed)
		},
	}
}

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/support-router/internal/auth"
	"github.com/spec-kit/support-router/internal/directory"
)

func init() {
	rootCmd.AddCommand(accountsCmd, hashPasswordCmd)
	hashPasswordCmd.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost")
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the demo customer accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ACCOUNT\tNAME\tPHONE\tPREMISE\tETR")
		for _, a := range directory.NewDemo(time.Now()).All() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.Number, a.Name, a.Phone, a.Premise, a.ETR)
		}
		return w.Flush()
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for AUTH_OPERATOR_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cost, _ := cmd.Flags().GetInt("cost")
		hash, err := auth.HashPassword(args[0], cost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

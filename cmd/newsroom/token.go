package main

import (
	"fmt"

	"github.com/jonathan/jobs-newsroom/internal/server"
	"github.com/spf13/cobra"
)

var tokenSubject string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a signed trigger token",
	Long: `Prints an HS256 token signed with CRON_SECRET that the trigger endpoint accepts
in place of the raw secret. The token expires after TOKEN_TTL.`,
	RunE: runTokenCmd,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "scheduler", "Subject recorded in the token and in trigger logs")
	rootCmd.AddCommand(tokenCmd)
}

func runTokenCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	auth, err := cfg.TriggerAuth()
	if err != nil {
		return err
	}

	token, err := server.NewTokenService(auth).GenerateToken(tokenSubject)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

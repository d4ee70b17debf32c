package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildIndexCmd = &cobra.Command{
	Use:   "rebuild-index",
	Short: "Regenerate search documents from the content tables",
	Long: `Rebuilds every search document from snippets, blocks and tags, then removes
documents whose snippet no longer exists. Safe to run repeatedly.

With --user only that user's snippets are rebuilt.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("user")

		v, err := openVault(cmd.Context(), "vaultctl")
		if err != nil {
			return err
		}
		defer v.close()

		var owner *string
		if email != "" {
			user, err := v.services.Users.GetUserByEmail(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("find user %s: %w", email, err)
			}
			owner = &user.ID
		}

		stats, err := v.services.Index.Rebuild(cmd.Context(), owner)
		if err != nil {
			return fmt.Errorf("rebuild index: %w", err)
		}

		output, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("format output: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(output))
		return nil
	},
}

func init() {
	rebuildIndexCmd.Flags().String("user", "", "Only rebuild this user's documents (email)")
}

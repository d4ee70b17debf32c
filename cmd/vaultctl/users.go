package main

import (
	"encoding/json"
	"fmt"

	vaultSvc "snipvault/internal/domain/services/vault"

	"github.com/spf13/cobra"
)

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a user and print its API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		password, _ := cmd.Flags().GetString("password")
		admin, _ := cmd.Flags().GetBool("admin")

		v, err := openVault(cmd.Context(), "vaultctl")
		if err != nil {
			return err
		}
		defer v.close()

		user, apiKey, err := v.services.Users.CreateUser(cmd.Context(), &vaultSvc.CreateUserRequest{
			Email:    email,
			Name:     name,
			Password: password,
			Admin:    admin,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		output, err := json.MarshalIndent(map[string]interface{}{
			"user":    user,
			"api_key": apiKey,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("format output: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(output))
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password for a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		v, err := openVault(cmd.Context(), "vaultctl")
		if err != nil {
			return err
		}
		defer v.close()

		user, err := v.services.Users.GetUserByEmail(cmd.Context(), email)
		if err != nil {
			return fmt.Errorf("find user %s: %w", email, err)
		}
		if err := v.services.Users.ResetPassword(cmd.Context(), user.ID, password); err != nil {
			return fmt.Errorf("reset password: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", user.Email)
		return nil
	},
}

var rotateKeyCmd = &cobra.Command{
	Use:   "rotate-key",
	Short: "Issue a new API key for a user; the old key stops working",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")

		v, err := openVault(cmd.Context(), "vaultctl")
		if err != nil {
			return err
		}
		defer v.close()

		user, err := v.services.Users.GetUserByEmail(cmd.Context(), email)
		if err != nil {
			return fmt.Errorf("find user %s: %w", email, err)
		}
		apiKey, err := v.services.Users.RotateAPIKey(cmd.Context(), user.ID)
		if err != nil {
			return fmt.Errorf("rotate key: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), apiKey)
		return nil
	},
}

func init() {
	createUserCmd.Flags().String("email", "", "Email address (required)")
	createUserCmd.Flags().String("name", "", "Display name (required)")
	createUserCmd.Flags().String("password", "", "Initial password (required)")
	createUserCmd.Flags().Bool("admin", false, "Grant the admin role")
	for _, f := range []string{"email", "name", "password"} {
		if err := createUserCmd.MarkFlagRequired(f); err != nil {
			panic(err)
		}
	}

	resetPasswordCmd.Flags().String("email", "", "Email address (required)")
	resetPasswordCmd.Flags().String("password", "", "New password (required)")
	for _, f := range []string{"email", "password"} {
		if err := resetPasswordCmd.MarkFlagRequired(f); err != nil {
			panic(err)
		}
	}

	rotateKeyCmd.Flags().String("email", "", "Email address (required)")
	if err := rotateKeyCmd.MarkFlagRequired("email"); err != nil {
		panic(err)
	}
}

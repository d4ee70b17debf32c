package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"snipvault/internal/mcp"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the snipvault MCP server (stdio)",
	Long: `Start a Model Context Protocol server exposing snippet search and editing as
MCP tools over STDIO. Tools act as the user owning SNIPVAULT_API_KEY.

Example:

  SNIPVAULT_API_KEY=... vaultctl mcp`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault(cmd.Context(), "mcp")
		if err != nil {
			return err
		}
		defer v.close()

		if v.cfg.APIKey == "" {
			return errors.New("SNIPVAULT_API_KEY must be set")
		}
		user, err := v.services.Users.AuthenticateAPIKey(cmd.Context(), v.cfg.APIKey)
		if err != nil {
			return fmt.Errorf("resolve SNIPVAULT_API_KEY: %w", err)
		}

		srv := mcp.NewVaultMCPServer(user.ID, Version, mcp.Services{
			Search:      v.services.Search,
			Snippets:    v.services.Snippets,
			Collections: v.services.Collections,
			Tags:        v.services.Tags,
		}, v.logger)

		// Log to stderr so we don't contaminate the JSON-RPC stream on stdout.
		fmt.Fprintf(os.Stderr, "snipvault MCP server started as %s\n", user.Email)
		fmt.Fprintf(os.Stderr, "Available tools: %s\n", strings.Join(mcp.ToolNames, ", "))

		return srv.Start()
	},
}

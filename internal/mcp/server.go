// Package mcp exposes the vault as Model Context Protocol tools over stdio.
// Every tool acts as a single user, resolved from an API key at startup.
package mcp

import (
	"log/slog"

	vaultSvc "snipvault/internal/domain/services/vault"

	"github.com/mark3labs/mcp-go/server"
)

// Services are the vault operations the tools call into
type Services struct {
	Search      vaultSvc.SearchService
	Snippets    vaultSvc.SnippetService
	Collections vaultSvc.CollectionService
	Tags        vaultSvc.TagService
}

// VaultMCPServer wraps an mcp-go server with every vault tool registered
type VaultMCPServer struct {
	mcpServer *server.MCPServer
}

// NewVaultMCPServer creates a server whose tools run as userID
func NewVaultMCPServer(userID, version string, services Services, logger *slog.Logger) *VaultMCPServer {
	s := server.NewMCPServer(
		"snipvault",
		version,
		server.WithLogging(),
		server.WithRecovery(),
	)

	t := &tools{userID: userID, services: services, logger: logger}
	t.register(s)

	return &VaultMCPServer{mcpServer: s}
}

// Start runs the stdio event loop until stdin closes
func (s *VaultMCPServer) Start() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPRawServer exposes the underlying mcp-go server
func (s *VaultMCPServer) MCPRawServer() *server.MCPServer {
	return s.mcpServer
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	models "snipvault/internal/domain/models/vault"
	vaultSvc "snipvault/internal/domain/services/vault"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolNames lists every registered tool in registration order
var ToolNames = []string{
	"search_snippets",
	"get_snippet",
	"list_snippets",
	"create_snippet",
	"update_snippet",
	"delete_snippet",
	"list_collections",
	"list_tags",
}

type tools struct {
	userID   string
	services Services
	logger   *slog.Logger
}

func (t *tools) register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("search_snippets",
		mcp.WithDescription("Full-text search over your snippets, ranked by how many query terms match. An empty query with a filter lists matching snippets."),
		mcp.WithString("query", mcp.Description("Search terms; each term also matches as a prefix.")),
		mcp.WithString("collection_id", mcp.Description("Only snippets filed directly in this collection.")),
		mcp.WithString("tag", mcp.Description("Only snippets carrying this tag name.")),
		mcp.WithString("status", mcp.Description("draft or published.")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20, max 100).")),
	), t.searchSnippets)

	s.AddTool(mcp.NewTool("get_snippet",
		mcp.WithDescription("Retrieves a snippet with its blocks and tags."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Snippet id.")),
	), t.getSnippet)

	s.AddTool(mcp.NewTool("list_snippets",
		mcp.WithDescription("Lists your snippets, or the snippets of a collection you can read."),
		mcp.WithString("collection_id", mcp.Description("Collection to list instead of your own snippets.")),
		mcp.WithBoolean("subtree", mcp.Description("Include every descendant collection.")),
		mcp.WithString("status", mcp.Description("draft or published.")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50, max 200).")),
		mcp.WithNumber("offset", mcp.Description("Rows to skip.")),
	), t.listSnippets)

	s.AddTool(mcp.NewTool("create_snippet",
		mcp.WithDescription("Creates a snippet from a markdown note and/or a code block."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Snippet title.")),
		mcp.WithString("description", mcp.Description("Optional description.")),
		mcp.WithString("markdown", mcp.Description("Markdown block, placed first.")),
		mcp.WithString("code", mcp.Description("Code block, placed after the markdown.")),
		mcp.WithString("language", mcp.Description("Language of the code block.")),
		mcp.WithString("collection_id", mcp.Description("Collection to file the snippet in.")),
		mcp.WithString("status", mcp.DefaultString(models.StatusDraft), mcp.Description("draft or published.")),
		mcp.WithString("tags", mcp.Description("Comma-separated names of your existing tags.")),
	), t.createSnippet)

	s.AddTool(mcp.NewTool("update_snippet",
		mcp.WithDescription("Updates a snippet. Giving markdown or code replaces all blocks; giving tags replaces all tags."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Snippet id.")),
		mcp.WithString("title", mcp.Description("New title.")),
		mcp.WithString("description", mcp.Description("New description.")),
		mcp.WithString("markdown", mcp.Description("Replacement markdown block.")),
		mcp.WithString("code", mcp.Description("Replacement code block.")),
		mcp.WithString("language", mcp.Description("Language of the replacement code block.")),
		mcp.WithString("collection_id", mcp.Description("Move to this collection; empty string unfiles.")),
		mcp.WithString("status", mcp.Description("draft or published.")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag names; empty string removes all tags.")),
	), t.updateSnippet)

	s.AddTool(mcp.NewTool("delete_snippet",
		mcp.WithDescription("Deletes a snippet."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Snippet id.")),
	), t.deleteSnippet)

	s.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("Lists collections you own or are a member of, with their paths and your rank."),
	), t.listCollections)

	s.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("Lists your tags with usage counts."),
	), t.listTags)
}

func (t *tools) searchSnippets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	req := &models.SearchRequest{
		Query:        stringArg(args, "query"),
		CollectionID: stringArg(args, "collection_id"),
		TagName:      stringArg(args, "tag"),
		Status:       stringArg(args, "status"),
		Limit:        intArg(args, "limit"),
	}

	results, err := t.services.Search.Search(ctx, t.userID, req)
	if err != nil {
		return toolError("search", err), nil
	}
	return jsonResult(results)
}

func (t *tools) getSnippet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := stringArg(request.Params.Arguments, "id")
	if id == "" {
		return mcp.NewToolResultError("'id' parameter is required."), nil
	}

	snippet, err := t.services.Snippets.GetSnippet(ctx, t.userID, id)
	if err != nil {
		return toolError("get snippet", err), nil
	}
	return jsonResult(snippet)
}

func (t *tools) listSnippets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	subtree, _ := args["subtree"].(bool)
	req := &vaultSvc.ListSnippetsRequest{
		Status:  stringArg(args, "status"),
		Subtree: subtree,
		Limit:   intArg(args, "limit"),
		Offset:  intArg(args, "offset"),
	}

	var (
		page *models.SnippetPage
		err  error
	)
	if collectionID := stringArg(args, "collection_id"); collectionID != "" {
		page, err = t.services.Snippets.ListCollectionSnippets(ctx, t.userID, collectionID, req)
	} else {
		page, err = t.services.Snippets.ListSnippets(ctx, t.userID, req)
	}
	if err != nil {
		return toolError("list snippets", err), nil
	}
	return jsonResult(page)
}

func (t *tools) createSnippet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	title := stringArg(args, "title")
	if title == "" {
		return mcp.NewToolResultError("'title' parameter is required."), nil
	}

	req := &vaultSvc.CreateSnippetRequest{
		Title:       title,
		Description: optionalArg(args, "description"),
		Status:      stringArg(args, "status"),
		Blocks:      blocksFromArgs(args),
	}
	if id := stringArg(args, "collection_id"); id != "" {
		req.CollectionID = &id
	}

	if names, ok := args["tags"].(string); ok && names != "" {
		ids, err := t.resolveTags(ctx, names)
		if err != nil {
			return toolError("resolve tags", err), nil
		}
		req.TagIDs = ids
	}

	snippet, err := t.services.Snippets.CreateSnippet(ctx, t.userID, req)
	if err != nil {
		return toolError("create snippet", err), nil
	}

	t.logger.Info("snippet created via mcp", "id", snippet.ID)
	return jsonResult(snippet)
}

func (t *tools) updateSnippet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	id := stringArg(args, "id")
	if id == "" {
		return mcp.NewToolResultError("'id' parameter is required."), nil
	}

	req := &vaultSvc.UpdateSnippetRequest{
		Title:       optionalArg(args, "title"),
		Description: optionalArg(args, "description"),
		Status:      optionalArg(args, "status"),
	}

	if collectionID, ok := args["collection_id"].(string); ok {
		if collectionID == "" {
			req.CollectionID = vaultSvc.Set(nil)
		} else {
			req.CollectionID = vaultSvc.Set(&collectionID)
		}
	}

	_, hasMarkdown := args["markdown"].(string)
	_, hasCode := args["code"].(string)
	if hasMarkdown || hasCode {
		blocks := blocksFromArgs(args)
		req.Blocks = &blocks
	}

	if names, ok := args["tags"].(string); ok {
		ids := []string{}
		if strings.TrimSpace(names) != "" {
			resolved, err := t.resolveTags(ctx, names)
			if err != nil {
				return toolError("resolve tags", err), nil
			}
			ids = resolved
		}
		req.TagIDs = &ids
	}

	snippet, err := t.services.Snippets.UpdateSnippet(ctx, t.userID, id, req)
	if err != nil {
		return toolError("update snippet", err), nil
	}
	return jsonResult(snippet)
}

func (t *tools) deleteSnippet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := stringArg(request.Params.Arguments, "id")
	if id == "" {
		return mcp.NewToolResultError("'id' parameter is required."), nil
	}

	if err := t.services.Snippets.DeleteSnippet(ctx, t.userID, id); err != nil {
		return toolError("delete snippet", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Snippet %s deleted.", id)), nil
}

func (t *tools) listCollections(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collections, err := t.services.Collections.ListCollections(ctx, t.userID)
	if err != nil {
		return toolError("list collections", err), nil
	}
	return jsonResult(collections)
}

func (t *tools) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := t.services.Tags.ListTags(ctx, t.userID)
	if err != nil {
		return toolError("list tags", err), nil
	}
	return jsonResult(tags)
}

// resolveTags maps comma-separated tag names to the caller's tag ids, case-insensitively
func (t *tools) resolveTags(ctx context.Context, names string) ([]string, error) {
	tags, err := t.services.Tags.ListTags(ctx, t.userID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]string, len(tags))
	for _, tag := range tags {
		byName[strings.ToLower(tag.Name)] = tag.ID
	}

	var ids []string
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, ok := byName[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown tag %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// blocksFromArgs builds the markdown block then the code block, skipping absent ones
func blocksFromArgs(args map[string]interface{}) []vaultSvc.BlockInput {
	blocks := []vaultSvc.BlockInput{}
	if md, ok := args["markdown"].(string); ok && md != "" {
		blocks = append(blocks, vaultSvc.BlockInput{Type: models.BlockMarkdown, Content: &md})
	}
	if code, ok := args["code"].(string); ok && code != "" {
		blocks = append(blocks, vaultSvc.BlockInput{
			Type:     models.BlockCode,
			Content:  &code,
			Language: optionalArg(args, "language"),
		})
	}
	return blocks
}

func stringArg(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return s
}

func optionalArg(args map[string]interface{}, name string) *string {
	if s, ok := args[name].(string); ok {
		return &s
	}
	return nil
}

// intArg reads a JSON number; absent or non-numeric values are zero
func intArg(args map[string]interface{}, name string) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func toolError(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize result to JSON: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

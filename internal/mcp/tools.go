package mcp

import (
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerName identifies the MCP server to clients
const ServerName = "modbot-admin"

// NewServer creates an MCP server exposing the moderation admin tools
func NewServer(h *Handler, version string) *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{
		Name:    ServerName,
		Version: version,
	}, nil)
	RegisterTools(server, h)
	return server
}

// RegisterTools adds every moderation admin tool to server
func RegisterTools(server *sdk.Server, h *Handler) {
	// Whitelist management tools
	sdk.AddTool(server, &sdk.Tool{
		Name:        "modbot_list_whitelist",
		Description: "List the whitelisted phrases. Messages containing any of them are never flagged.",
	}, h.listWhitelist)
	sdk.AddTool(server, &sdk.Tool{
		Name:        "modbot_add_whitelist",
		Description: "Whitelist a phrase so messages containing it are always considered safe.",
	}, h.addWhitelist)
	sdk.AddTool(server, &sdk.Tool{
		Name:        "modbot_remove_whitelist",
		Description: "Remove a phrase from the whitelist.",
	}, h.removeWhitelist)

	// Exempt list tools
	sdk.AddTool(server, &sdk.Tool{
		Name:        "modbot_list_exempt",
		Description: "List exempt users. Exempt users are moderated with the lenient profile.",
	}, h.listExempt)
	sdk.AddTool(server, &sdk.Tool{
		Name:        "modbot_add_exempt",
		Description: "Exempt a user so only explicit hate speech is flagged for them.",
	}, h.addExempt)
	sdk.AddTool(server, &sdk.Tool{
		Name:        "modbot_remove_exempt",
		Description: "Remove a user's exemption.",
	}, h.removeExempt)

	// User state tools
	sdk.AddTool(server, &sdk.Tool{
		Name:        "modbot_list_jailed",
		Description: "List users currently holding the jail role.",
	}, h.listJailed)
	sdk.AddTool(server, &sdk.Tool{
		Name:        "modbot_user_state",
		Description: "Show a user's warning count and whether they are jailed or exempt.",
	}, h.userState)
	sdk.AddTool(server, &sdk.Tool{
		Name:        "modbot_reset_warnings",
		Description: "Reset a user's warning count to zero.",
	}, h.resetWarnings)

	// Review tools
	sdk.AddTool(server, &sdk.Tool{
		Name:        "modbot_list_pending_reviews",
		Description: "List open jail reviews waiting for a moderator decision.",
	}, h.listPendingReviews)
	sdk.AddTool(server, &sdk.Tool{
		Name:        "modbot_review_history",
		Description: "Show a user's open jail review and past review decisions, newest first.",
	}, h.reviewHistory)

	// Staff actions
	sdk.AddTool(server, &sdk.Tool{
		Name:        "modbot_send_dm",
		Description: "Send a private message to a user as the bot.",
	}, h.sendDM)
	sdk.AddTool(server, &sdk.Tool{
		Name:        "modbot_summarize",
		Description: "Summarize the most recent messages of a chat.",
	}, h.summarize)
}

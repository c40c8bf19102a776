package gateway

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"authrelay/pkg/logging"
)

func (g *Gateway) registerTools() {
	validateTool := mcp.NewTool("validate",
		mcp.WithDescription("Returns the identifier this deployment validates as. Use this to confirm the gateway is reachable and authenticated."),
	)
	g.mcpServer.AddTool(validateTool, g.handleValidate)

	sendGmailTool := mcp.NewTool("send_gmail",
		mcp.WithDescription("Sends an email through the authenticated user's Gmail account."),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient email address"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject line"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Plain text email body"),
		),
	)
	g.mcpServer.AddTool(sendGmailTool, g.handleSendGmail)
}

func (g *Gateway) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	props := PropsFromContext(ctx)
	if !props.Authenticated() {
		return mcp.NewToolResultError("authentication required: no user context is bound to this session"), nil
	}
	return mcp.NewToolResultText(g.validateIdentifier), nil
}

func (g *Gateway) handleSendGmail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	props := PropsFromContext(ctx)
	if !props.Authenticated() {
		return mcp.NewToolResultError("authentication required: no upstream access token is bound to this session"), nil
	}

	to, err := request.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError("to argument is required"), nil
	}
	subject, err := request.RequireString("subject")
	if err != nil {
		return mcp.NewToolResultError("subject argument is required"), nil
	}
	body, err := request.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError("body argument is required"), nil
	}

	if err := g.sendGmail(ctx, props, to, subject, body); err != nil {
		logging.Warn("Gateway", "send_gmail failed for %s: %v", logging.TruncateSubject(props.Email), err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to send email: %v", err)), nil
	}

	logging.Info("Gateway", "Email sent to %s on behalf of %s", to, logging.TruncateSubject(props.Email))
	return mcp.NewToolResultText(fmt.Sprintf("Email sent successfully to %s", to)), nil
}

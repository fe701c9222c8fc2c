package app

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the coinchat server version and status. Use this to verify connectivity."),
	)
}

// createChatTool returns the chat tool definition
func createChatTool() mcp.Tool {
	return mcp.NewTool("chat",
		mcp.WithDescription("Send a natural-language message about crypto prices, trending coins, coin stats, or a self-declared portfolio, and get the assistant's reply. Omit session_id to start a new session."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The user's message (e.g., 'price of bitcoin', 'I have 2.5 eth', 'portfolio')"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session to continue; a new session is created when omitted"),
		),
	)
}

// createGetPortfolioTool returns the get_portfolio tool definition
func createGetPortfolioTool() mcp.Tool {
	return mcp.NewTool("get_portfolio",
		mcp.WithDescription("List the self-declared holdings of a session, in the order they were added."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session whose portfolio to return"),
		),
	)
}

// createGetConversationTool returns the get_conversation tool definition
func createGetConversationTool() mcp.Tool {
	return mcp.NewTool("get_conversation",
		mcp.WithDescription("Return the ordered conversation history of a session."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session whose conversation to return"),
		),
	)
}

// createResetSessionTool returns the reset_session tool definition
func createResetSessionTool() mcp.Tool {
	return mcp.NewTool("reset_session",
		mcp.WithDescription("End a session, discarding its conversation and portfolio."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session to end"),
		),
	)
}

package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"coinchat/internal/common"
	"coinchat/internal/interfaces"
	"coinchat/internal/models"
)

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("coinchat MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

// handleChat implements the chat tool
func handleChat(chatService interfaces.ChatService, sessions interfaces.SessionStore, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := request.RequireString("message")
		if err != nil || strings.TrimSpace(message) == "" {
			return errorResult("Error: message parameter is required"), nil
		}

		sessionID := request.GetString("session_id", "")
		if sessionID == "" {
			sessionID = sessions.Create().ID
		}

		session, release, ok := sessions.Acquire(sessionID)
		if !ok {
			return errorResult(fmt.Sprintf("Error: session %s not found", sessionID)), nil
		}
		defer release()

		// A cycle runs to completion or failure even if the MCP client
		// drops mid-call.
		reply, handled := chatService.HandleMessage(context.WithoutCancel(ctx), session, message)
		if !handled {
			return errorResult("Error: message parameter is required"), nil
		}

		logger.Debug().Str("session", sessionID).Msg("Chat tool handled message")
		return textResult(fmt.Sprintf("session_id: %s\n%s", sessionID, reply)), nil
	}
}

// handleGetPortfolio implements the get_portfolio tool
func handleGetPortfolio(sessions interfaces.SessionStore) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := request.RequireString("session_id")
		if err != nil || sessionID == "" {
			return errorResult("Error: session_id parameter is required"), nil
		}

		session, release, ok := sessions.Acquire(sessionID)
		if !ok {
			return errorResult(fmt.Sprintf("Error: session %s not found", sessionID)), nil
		}
		holdings := session.Portfolio.Holdings()
		release()

		if len(holdings) == 0 {
			return textResult("No holdings declared."), nil
		}

		var sb strings.Builder
		for _, h := range holdings {
			fmt.Fprintf(&sb, "%s: %g\n", strings.ToUpper(h.Symbol), h.Quantity)
		}
		return textResult(sb.String()), nil
	}
}

// handleGetConversation implements the get_conversation tool
func handleGetConversation(sessions interfaces.SessionStore) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := request.RequireString("session_id")
		if err != nil || sessionID == "" {
			return errorResult("Error: session_id parameter is required"), nil
		}

		session, release, ok := sessions.Acquire(sessionID)
		if !ok {
			return errorResult(fmt.Sprintf("Error: session %s not found", sessionID)), nil
		}
		entries := append([]models.ConversationEntry{}, session.Conversation...)
		release()

		if len(entries) == 0 {
			return textResult("No messages yet."), nil
		}

		var sb strings.Builder
		for _, entry := range entries {
			fmt.Fprintf(&sb, "%s: %s\n", entry.Sender, entry.Text)
		}
		return textResult(sb.String()), nil
	}
}

// handleResetSession implements the reset_session tool
func handleResetSession(chatService interfaces.ChatService, sessions interfaces.SessionStore, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := request.RequireString("session_id")
		if err != nil || sessionID == "" {
			return errorResult("Error: session_id parameter is required"), nil
		}

		if _, ok := sessions.Get(sessionID); !ok {
			return errorResult(fmt.Sprintf("Error: session %s not found", sessionID)), nil
		}

		sessions.Delete(sessionID)
		chatService.ForgetSpeech(sessionID)

		logger.Debug().Str("session", sessionID).Msg("Session reset via MCP")
		return textResult(fmt.Sprintf("Session %s ended.", sessionID)), nil
	}
}

// Helper functions

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

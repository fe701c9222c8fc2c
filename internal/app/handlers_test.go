package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinchat/internal/common"
	"coinchat/internal/interfaces"
	"coinchat/internal/models"
	"coinchat/internal/services/chat"
	"coinchat/internal/storage/memory"
)

type stubMarketClient struct {
	prices map[string]float64
}

func (s *stubMarketClient) GetSimplePrice(_ context.Context, id, _ string) (float64, bool, error) {
	price, ok := s.prices[id]
	return price, ok, nil
}

func (s *stubMarketClient) GetTrending(_ context.Context) ([]models.TrendingCoin, error) {
	return []models.TrendingCoin{{Name: "Bitcoin"}}, nil
}

func (s *stubMarketClient) GetCoinStats(_ context.Context, id string) (*models.CoinStats, error) {
	return &models.CoinStats{Name: "Bitcoin", Symbol: "btc"}, nil
}

type toolFixture struct {
	sessions interfaces.SessionStore
	chat     interfaces.ChatService
	logger   *common.Logger
}

func newToolFixture() *toolFixture {
	logger := common.NewSilentLogger()
	market := &stubMarketClient{prices: map[string]float64{"bitcoin": 67000}}
	return &toolFixture{
		sessions: memory.NewStore(logger),
		chat:     chat.NewService(market, nil, logger),
		logger:   logger,
	}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleGetVersion(t *testing.T) {
	handler := handleGetVersion()

	result, err := handler(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "coinchat MCP Server")
	assert.Contains(t, text, "Status: OK")
}

func TestHandleChatNewSession(t *testing.T) {
	f := newToolFixture()
	handler := handleChat(f.chat, f.sessions, f.logger)

	result, err := handler(context.Background(), callRequest(map[string]any{
		"message": "price of bitcoin",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "session_id: ")
	assert.Contains(t, text, "BITCOIN is trading at $67000")
	assert.Equal(t, 1, f.sessions.Count())
}

func TestHandleChatContinuesSession(t *testing.T) {
	f := newToolFixture()
	handler := handleChat(f.chat, f.sessions, f.logger)

	session := f.sessions.Create()
	result, err := handler(context.Background(), callRequest(map[string]any{
		"message":    "i have 2 btc",
		"session_id": session.ID,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	assert.Contains(t, resultText(t, result), "session_id: "+session.ID)
	qty, ok := session.Portfolio.Get("btc")
	require.True(t, ok)
	assert.Equal(t, 2.0, qty)
}

func TestHandleChatMissingMessage(t *testing.T) {
	f := newToolFixture()
	handler := handleChat(f.chat, f.sessions, f.logger)

	for _, args := range []map[string]any{
		nil,
		{"message": ""},
		{"message": "   "},
	} {
		result, err := handler(context.Background(), callRequest(args))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	}
	assert.Equal(t, 0, f.sessions.Count())
}

func TestHandleChatUnknownSession(t *testing.T) {
	f := newToolFixture()
	handler := handleChat(f.chat, f.sessions, f.logger)

	result, err := handler(context.Background(), callRequest(map[string]any{
		"message":    "hello",
		"session_id": "nope",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not found")
}

func TestHandleGetPortfolio(t *testing.T) {
	f := newToolFixture()
	handler := handleGetPortfolio(f.sessions)

	session := f.sessions.Create()
	session.Portfolio.Set("eth", 2.5)
	session.Portfolio.Set("btc", 1)

	result, err := handler(context.Background(), callRequest(map[string]any{
		"session_id": session.ID,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ETH: 2.5", lines[0])
	assert.Equal(t, "BTC: 1", lines[1])
}

func TestHandleGetPortfolioEmpty(t *testing.T) {
	f := newToolFixture()
	handler := handleGetPortfolio(f.sessions)

	session := f.sessions.Create()
	result, err := handler(context.Background(), callRequest(map[string]any{
		"session_id": session.ID,
	}))
	require.NoError(t, err)
	assert.Equal(t, "No holdings declared.", resultText(t, result))
}

func TestHandleGetConversation(t *testing.T) {
	f := newToolFixture()
	handler := handleGetConversation(f.sessions)

	session := f.sessions.Create()
	session.Append(models.SenderUser, "hello")
	session.Append(models.SenderBot, "I'm not sure how to help with that.")

	result, err := handler(context.Background(), callRequest(map[string]any{
		"session_id": session.ID,
	}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "user: hello")
	assert.Contains(t, text, "bot: I'm not sure how to help with that.")
}

func TestHandleGetConversationEmpty(t *testing.T) {
	f := newToolFixture()
	handler := handleGetConversation(f.sessions)

	session := f.sessions.Create()
	result, err := handler(context.Background(), callRequest(map[string]any{
		"session_id": session.ID,
	}))
	require.NoError(t, err)
	assert.Equal(t, "No messages yet.", resultText(t, result))
}

func TestHandleResetSession(t *testing.T) {
	f := newToolFixture()
	handler := handleResetSession(f.chat, f.sessions, f.logger)

	session := f.sessions.Create()
	result, err := handler(context.Background(), callRequest(map[string]any{
		"session_id": session.ID,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, 0, f.sessions.Count())

	// Resetting again reports not found.
	result, err = handler(context.Background(), callRequest(map[string]any{
		"session_id": session.ID,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// Exercises the read tools against in-flight chat cycles on one session;
// meaningful under the race detector.
func TestToolReadsDuringChatCycles(t *testing.T) {
	f := newToolFixture()
	chatHandler := handleChat(f.chat, f.sessions, f.logger)
	portfolioHandler := handleGetPortfolio(f.sessions)
	conversationHandler := handleGetConversation(f.sessions)

	session := f.sessions.Create()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := chatHandler(context.Background(), callRequest(map[string]any{
				"message":    fmt.Sprintf("i have %d btc", i+1),
				"session_id": session.ID,
			}))
			assert.NoError(t, err)
		}
	}()
	for _, handler := range []func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		portfolioHandler,
		conversationHandler,
	} {
		wg.Add(1)
		go func(handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				result, err := handler(context.Background(), callRequest(map[string]any{
					"session_id": session.ID,
				}))
				assert.NoError(t, err)
				assert.False(t, result.IsError)
			}
		}(handler)
	}
	wg.Wait()

	qty, ok := session.Portfolio.Get("btc")
	require.True(t, ok)
	assert.Equal(t, 50.0, qty)
}

func TestToolRequiresSessionID(t *testing.T) {
	f := newToolFixture()

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"get_portfolio":    handleGetPortfolio(f.sessions),
		"get_conversation": handleGetConversation(f.sessions),
		"reset_session":    handleResetSession(f.chat, f.sessions, f.logger),
	}

	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			result, err := handler(context.Background(), callRequest(nil))
			require.NoError(t, err)
			assert.True(t, result.IsError)
		})
	}
}

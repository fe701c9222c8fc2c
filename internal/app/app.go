// Package app wires configuration, clients, services, and the MCP server.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"coinchat/internal/clients/coingecko"
	"coinchat/internal/clients/speech"
	"coinchat/internal/common"
	"coinchat/internal/interfaces"
	"coinchat/internal/services/chat"
	"coinchat/internal/storage/memory"
)

// App holds all initialized services, clients, and the MCP server.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	MarketClient interfaces.MarketDataClient
	SpeechClient interfaces.SpeechClient
	Sessions     interfaces.SessionStore
	ChatService  interfaces.ChatService
	MCPServer    *server.MCPServer
	StartupTime  time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes the application from a config path. configPath may be
// empty, in which case COINCHAT_CONFIG, then the binary directory, then the
// development fallback are checked.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("COINCHAT_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "coinchat.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/coinchat.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewAppFromConfig(config)
}

// NewAppFromConfig initializes the application from an already-loaded config.
func NewAppFromConfig(config *common.Config) (*App, error) {
	startupStart := time.Now()

	logger := common.NewLoggerFromConfig(config.Logging)

	marketClient := coingecko.NewClient(
		coingecko.WithBaseURL(config.Clients.CoinGecko.BaseURL),
		coingecko.WithAPIKey(config.Clients.CoinGecko.APIKey),
		coingecko.WithRateLimit(config.Clients.CoinGecko.RateLimit),
		coingecko.WithTimeout(config.Clients.CoinGecko.GetTimeout()),
		coingecko.WithLogger(logger),
	)

	// Speech is optional: without a Gemini key replies are text-only.
	var speechClient interfaces.SpeechClient
	if config.Clients.Gemini.APIKey != "" {
		client, err := speech.NewClient(context.Background(), config.Clients.Gemini.APIKey,
			speech.WithModel(config.Clients.Gemini.Model),
			speech.WithVoice(config.Clients.Gemini.Voice),
			speech.WithLogger(logger),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize speech client - replies will not be spoken")
		} else {
			speechClient = client
		}
	} else {
		logger.Info().Msg("Gemini API key not configured - replies will not be spoken")
	}

	sessions := memory.NewStore(logger)
	chatService := chat.NewService(marketClient, speechClient, logger)

	mcpServer := server.NewMCPServer(
		"coinchat",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:       config,
		Logger:       logger,
		MarketClient: marketClient,
		SpeechClient: speechClient,
		Sessions:     sessions,
		ChatService:  chatService,
		MCPServer:    mcpServer,
		StartupTime:  startupStart,
	}

	a.registerTools()

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer

	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createChatTool(), handleChat(a.ChatService, a.Sessions, a.Logger))
	s.AddTool(createGetPortfolioTool(), handleGetPortfolio(a.Sessions))
	s.AddTool(createGetConversationTool(), handleGetConversation(a.Sessions))
	s.AddTool(createResetSessionTool(), handleResetSession(a.ChatService, a.Sessions, a.Logger))
}

// Package interfaces defines service contracts for coinchat
package interfaces

import (
	"context"

	"coinchat/internal/models"
)

// MarketDataClient provides access to the public market-data API.
type MarketDataClient interface {
	// GetSimplePrice retrieves the spot price of a coin in the given fiat
	// currency. found is false when the service has no data for the id.
	GetSimplePrice(ctx context.Context, id, currency string) (price float64, found bool, err error)

	// GetTrending retrieves the currently trending coins in service order.
	GetTrending(ctx context.Context) ([]models.TrendingCoin, error)

	// GetCoinStats retrieves full metadata for a coin.
	GetCoinStats(ctx context.Context, id string) (*models.CoinStats, error)
}

// SpeechClient renders text as audio. Implementations are expected to be
// slow; callers treat synthesis as a fire-and-forget side effect.
type SpeechClient interface {
	Synthesize(ctx context.Context, text string) (*models.SpeechClip, error)
}

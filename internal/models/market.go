package models

// TrendingCoin is one entry from the trending list, in service order.
type TrendingCoin struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank int    `json:"market_cap_rank"`
}

// CoinStats holds the metadata returned for a single coin.
type CoinStats struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Symbol       string  `json:"symbol"`
	MarketCapUSD float64 `json:"market_cap_usd"`
	Change24h    float64 `json:"change_24h"`
	Description  string  `json:"description,omitempty"`
}

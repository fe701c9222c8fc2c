package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinchat/internal/common"
	"coinchat/internal/models"
)

// --- Mocks ---

type mockMarketClient struct {
	prices      map[string]float64
	priceErr    error
	priceErrOn  string // return priceErr only for this id; empty = always when set
	trending    []models.TrendingCoin
	trendingErr error
	stats       *models.CoinStats
	statsErr    error

	priceCalls []string
	calls      int
}

func (m *mockMarketClient) GetSimplePrice(_ context.Context, id, _ string) (float64, bool, error) {
	m.calls++
	m.priceCalls = append(m.priceCalls, id)
	if m.priceErr != nil && (m.priceErrOn == "" || m.priceErrOn == id) {
		return 0, false, m.priceErr
	}
	price, ok := m.prices[id]
	return price, ok, nil
}

func (m *mockMarketClient) GetTrending(_ context.Context) ([]models.TrendingCoin, error) {
	m.calls++
	return m.trending, m.trendingErr
}

func (m *mockMarketClient) GetCoinStats(_ context.Context, _ string) (*models.CoinStats, error) {
	m.calls++
	return m.stats, m.statsErr
}

type mockSpeechClient struct {
	texts []string
	err   error
}

func (m *mockSpeechClient) Synthesize(_ context.Context, text string) (*models.SpeechClip, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.texts = append(m.texts, text)
	return &models.SpeechClip{Text: text, MIMEType: "audio/wav", Data: []byte{1}, CreatedAt: time.Now()}, nil
}

func newTestService(market *mockMarketClient) (*Service, *models.Session) {
	return NewService(market, nil, common.NewSilentLogger()), models.NewSession()
}

// --- Tests ---

func TestUnknownIntentReply(t *testing.T) {
	market := &mockMarketClient{}
	svc, sess := newTestService(market)

	reply, handled := svc.HandleMessage(context.Background(), sess, "tell me a joke")
	require.True(t, handled)
	assert.Equal(t, "I'm not sure how to help with that.", reply)
	assert.Equal(t, 0, market.calls)
	assert.Equal(t, 0, sess.Portfolio.Len())
}

func TestPriceLookupFound(t *testing.T) {
	market := &mockMarketClient{prices: map[string]float64{"bitcoin": 67000}}
	svc, sess := newTestService(market)

	reply, handled := svc.HandleMessage(context.Background(), sess, "price of bitcoin")
	require.True(t, handled)
	assert.Equal(t, "BITCOIN is trading at $67000", reply)
	assert.Equal(t, []string{"bitcoin"}, market.priceCalls)
}

func TestPriceLookupFractionalPrice(t *testing.T) {
	market := &mockMarketClient{prices: map[string]float64{"dogecoin": 0.082}}
	svc, sess := newTestService(market)

	reply, _ := svc.HandleMessage(context.Background(), sess, "price of Dogecoin")
	assert.Equal(t, "DOGECOIN is trading at $0.082", reply)
}

func TestPriceLookupNotFound(t *testing.T) {
	market := &mockMarketClient{prices: map[string]float64{}}
	svc, sess := newTestService(market)

	reply, _ := svc.HandleMessage(context.Background(), sess, "price of doesnotexist")
	// Not-found keeps the identifier's original casing.
	assert.Equal(t, "Couldn't find price for doesnotexist", reply)

	reply, _ = svc.HandleMessage(context.Background(), sess, "price of DoesNotExist")
	assert.Equal(t, "Couldn't find price for DoesNotExist", reply)
}

func TestTrendingPreservesServiceOrder(t *testing.T) {
	market := &mockMarketClient{trending: []models.TrendingCoin{
		{Name: "Foo"},
		{Name: "Bar"},
	}}
	svc, sess := newTestService(market)

	reply, _ := svc.HandleMessage(context.Background(), sess, "trending")
	assert.Equal(t, "Trending coins: Foo, Bar", reply)
}

func TestStatsReply(t *testing.T) {
	market := &mockMarketClient{stats: &models.CoinStats{
		Name:         "Bitcoin",
		Symbol:       "btc",
		MarketCapUSD: 1310000000000,
		Change24h:    -3.256,
		Description:  "Bitcoin is the first decentralised cryptocurrency. It was created in 2009.",
	}}
	svc, sess := newTestService(market)

	reply, _ := svc.HandleMessage(context.Background(), sess, "stats for bitcoin")
	assert.Equal(t, "Bitcoin (BTC) - Market Cap: $1310000000000, 24h Change: -3.26%, Bitcoin is the first decentralised cryptocurrency", reply)
}

func TestStatsReplyWithoutDescription(t *testing.T) {
	market := &mockMarketClient{stats: &models.CoinStats{
		Name:         "Newcoin",
		Symbol:       "new",
		MarketCapUSD: 5000,
		Change24h:    1.5,
	}}
	svc, sess := newTestService(market)

	reply, _ := svc.HandleMessage(context.Background(), sess, "stats for newcoin")
	assert.Equal(t, "Newcoin (NEW) - Market Cap: $5000, 24h Change: 1.50%", reply)
}

func TestPortfolioAddAndValuation(t *testing.T) {
	market := &mockMarketClient{prices: map[string]float64{"eth": 2000}}
	svc, sess := newTestService(market)

	reply, _ := svc.HandleMessage(context.Background(), sess, "I have 2.5 ETH")
	assert.Equal(t, "Noted! You have 2.5 ETH", reply)

	reply, _ = svc.HandleMessage(context.Background(), sess, "portfolio")
	assert.Contains(t, reply, "Your portfolio value is $5000.00")
	assert.Contains(t, reply, "ETH: $5000.00")

	require.Equal(t, 1, sess.Portfolio.Len())
	qty, ok := sess.Portfolio.Get("eth")
	require.True(t, ok)
	assert.Equal(t, 2.5, qty)
}

func TestPortfolioAddOverwrites(t *testing.T) {
	market := &mockMarketClient{}
	svc, sess := newTestService(market)

	svc.HandleMessage(context.Background(), sess, "i have 1 BTC")
	svc.HandleMessage(context.Background(), sess, "i have 3 BTC")

	qty, ok := sess.Portfolio.Get("btc")
	require.True(t, ok)
	assert.Equal(t, 3.0, qty)
	assert.Equal(t, 1, sess.Portfolio.Len())
}

func TestValuationEmptyPortfolio(t *testing.T) {
	market := &mockMarketClient{}
	svc, sess := newTestService(market)

	reply, _ := svc.HandleMessage(context.Background(), sess, "portfolio")
	assert.Equal(t, "Your portfolio value is $0.00\n", reply)
	assert.Equal(t, 0, market.calls)
}

func TestValuationMissingPriceContributesZero(t *testing.T) {
	market := &mockMarketClient{prices: map[string]float64{"eth": 2000}}
	svc, sess := newTestService(market)

	svc.HandleMessage(context.Background(), sess, "i have 2 eth")
	svc.HandleMessage(context.Background(), sess, "i have 5 unknowncoin")

	reply, _ := svc.HandleMessage(context.Background(), sess, "portfolio")
	assert.Contains(t, reply, "Your portfolio value is $4000.00")
	assert.Contains(t, reply, "ETH: $4000.00, UNKNOWNCOIN: $0.00")
}

func TestValuationIterationOrder(t *testing.T) {
	market := &mockMarketClient{prices: map[string]float64{"btc": 1, "eth": 1, "sol": 1}}
	svc, sess := newTestService(market)

	svc.HandleMessage(context.Background(), sess, "i have 1 sol")
	svc.HandleMessage(context.Background(), sess, "i have 1 btc")
	svc.HandleMessage(context.Background(), sess, "i have 1 eth")
	// Re-adding keeps the original position.
	svc.HandleMessage(context.Background(), sess, "i have 2 sol")

	svc.HandleMessage(context.Background(), sess, "portfolio")
	assert.Equal(t, []string{"sol", "btc", "eth"}, market.priceCalls)
}

func TestValuationErrorAbortsWholeLoop(t *testing.T) {
	market := &mockMarketClient{
		prices:     map[string]float64{"btc": 100, "eth": 200},
		priceErr:   errors.New("rate limited"),
		priceErrOn: "eth",
	}
	svc, sess := newTestService(market)

	svc.HandleMessage(context.Background(), sess, "i have 1 btc")
	svc.HandleMessage(context.Background(), sess, "i have 1 eth")

	reply, _ := svc.HandleMessage(context.Background(), sess, "portfolio")
	assert.Equal(t, "Oops! Hit an API error or rate limit.", reply)
}

func TestServiceFailureUniformReply(t *testing.T) {
	failing := errors.New("connection refused")
	cases := []struct {
		name   string
		market *mockMarketClient
		input  string
	}{
		{"price", &mockMarketClient{priceErr: failing}, "price of bitcoin"},
		{"trending", &mockMarketClient{trendingErr: failing}, "trending"},
		{"stats", &mockMarketClient{statsErr: failing}, "stats for bitcoin"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, sess := newTestService(tc.market)
			sess.Portfolio.Set("btc", 1)

			reply, handled := svc.HandleMessage(context.Background(), sess, tc.input)
			require.True(t, handled)
			assert.Equal(t, "Oops! Hit an API error or rate limit.", reply)

			// Portfolio state from before the call is untouched.
			qty, ok := sess.Portfolio.Get("btc")
			require.True(t, ok)
			assert.Equal(t, 1.0, qty)
			assert.Equal(t, 1, sess.Portfolio.Len())

			// The conversation still records the user message and the fallback.
			require.Len(t, sess.Conversation, 2)
			assert.Equal(t, models.SenderUser, sess.Conversation[0].Sender)
			assert.Equal(t, models.SenderBot, sess.Conversation[1].Sender)
			assert.Equal(t, reply, sess.Conversation[1].Text)
		})
	}
}

func TestChartStub(t *testing.T) {
	market := &mockMarketClient{}
	svc, sess := newTestService(market)

	reply, _ := svc.HandleMessage(context.Background(), sess, "chart bitcoin")
	assert.Equal(t, "Chart feature coming soon for BITCOIN.", reply)
	assert.Equal(t, 0, market.calls)
}

func TestBlankInputIsNoOp(t *testing.T) {
	market := &mockMarketClient{}
	svc, sess := newTestService(market)

	for _, input := range []string{"", "   ", "\n\t "} {
		reply, handled := svc.HandleMessage(context.Background(), sess, input)
		assert.False(t, handled)
		assert.Empty(t, reply)
	}

	assert.Empty(t, sess.Conversation)
	assert.Equal(t, 0, market.calls)
}

func TestConversationAppendOrder(t *testing.T) {
	market := &mockMarketClient{prices: map[string]float64{"btc": 5}}
	svc, sess := newTestService(market)

	svc.HandleMessage(context.Background(), sess, "price of btc")
	svc.HandleMessage(context.Background(), sess, "hello")

	require.Len(t, sess.Conversation, 4)
	assert.Equal(t, "price of btc", sess.Conversation[0].Text)
	assert.Equal(t, "BTC is trading at $5", sess.Conversation[1].Text)
	assert.Equal(t, "hello", sess.Conversation[2].Text)
	assert.Equal(t, "I'm not sure how to help with that.", sess.Conversation[3].Text)
}

func TestSpeechSideEffect(t *testing.T) {
	market := &mockMarketClient{prices: map[string]float64{"btc": 5}}
	speech := &mockSpeechClient{}
	svc := NewService(market, speech, common.NewSilentLogger())
	sess := models.NewSession()

	reply, _ := svc.HandleMessage(context.Background(), sess, "price of btc")

	require.Eventually(t, func() bool {
		clip, ok := svc.LastSpeech(sess.ID)
		return ok && clip.Text == reply
	}, time.Second, 5*time.Millisecond)

	svc.ForgetSpeech(sess.ID)
	_, ok := svc.LastSpeech(sess.ID)
	assert.False(t, ok)
}

func TestSpeechFailureNotSurfaced(t *testing.T) {
	market := &mockMarketClient{prices: map[string]float64{"btc": 5}}
	speech := &mockSpeechClient{err: errors.New("tts unavailable")}
	svc := NewService(market, speech, common.NewSilentLogger())
	sess := models.NewSession()

	reply, handled := svc.HandleMessage(context.Background(), sess, "price of btc")
	require.True(t, handled)
	assert.Equal(t, "BTC is trading at $5", reply)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "67000", formatAmount(67000))
	assert.Equal(t, "0.082", formatAmount(0.082))
	assert.Equal(t, "1310000000000", formatAmount(1310000000000))
}

func TestFirstSentence(t *testing.T) {
	assert.Equal(t, "First", firstSentence("First. Second."))
	assert.Equal(t, "No period", firstSentence("No period"))
	assert.Equal(t, "", firstSentence(""))
}

package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"coinchat/internal/common"
	"coinchat/internal/interfaces"
	"coinchat/internal/models"
)

const (
	// Currency is the quote currency for every lookup.
	Currency = "usd"

	replyUnknown  = "I'm not sure how to help with that."
	replyAPIError = "Oops! Hit an API error or rate limit."

	speechTimeout = 60 * time.Second
)

// Service routes user messages to intent handlers. One instance serves all
// sessions; the caller serializes cycles per session via the session store.
type Service struct {
	market interfaces.MarketDataClient
	speech interfaces.SpeechClient
	logger *common.Logger

	mu    sync.Mutex
	clips map[string]*models.SpeechClip
}

// NewService creates a new chat service.
// speech may be nil, in which case replies are not synthesized.
func NewService(market interfaces.MarketDataClient, speech interfaces.SpeechClient, logger *common.Logger) *Service {
	return &Service{
		market: market,
		speech: speech,
		logger: logger,
		clips:  make(map[string]*models.SpeechClip),
	}
}

// HandleMessage runs one classification/response cycle. Blank input is a
// no-op: nothing is appended and no call is made. Every other path appends
// the user message and a bot reply, and queues the reply for speech.
func (s *Service) HandleMessage(ctx context.Context, session *models.Session, text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	session.Append(models.SenderUser, text)

	cls := Classify(text)

	reply, err := s.dispatch(ctx, session, cls)
	if err != nil {
		// Transport, parsing, and rate-limit failures all collapse to the
		// one uniform reply. No retry, no partial results.
		s.logger.Warn().Err(err).Str("intent", cls.Intent.String()).Msg("Handler failed")
		reply = replyAPIError
	}

	session.Append(models.SenderBot, reply)
	s.speak(session.ID, reply)

	s.logger.Debug().
		Str("session", session.ID).
		Str("intent", cls.Intent.String()).
		Msg("Message handled")

	return reply, true
}

func (s *Service) dispatch(ctx context.Context, session *models.Session, cls Classification) (string, error) {
	switch cls.Intent {
	case IntentPriceLookup:
		return s.handlePrice(ctx, cls.Coin)
	case IntentTrendingLookup:
		return s.handleTrending(ctx)
	case IntentStatsLookup:
		return s.handleStats(ctx, cls.Coin)
	case IntentPortfolioAdd:
		return s.handlePortfolioAdd(session, cls), nil
	case IntentPortfolioValuation:
		return s.handleValuation(ctx, session)
	case IntentChart:
		return fmt.Sprintf("Chart feature coming soon for %s.", strings.ToUpper(cls.Coin)), nil
	default:
		return replyUnknown, nil
	}
}

func (s *Service) handlePrice(ctx context.Context, coin string) (string, error) {
	price, found, err := s.market.GetSimplePrice(ctx, strings.ToLower(coin), Currency)
	if err != nil {
		return "", err
	}
	if !found {
		// Not-found keeps the identifier's original casing; found uppercases.
		return fmt.Sprintf("Couldn't find price for %s", coin), nil
	}
	return fmt.Sprintf("%s is trading at $%s", strings.ToUpper(coin), formatAmount(price)), nil
}

func (s *Service) handleTrending(ctx context.Context) (string, error) {
	coins, err := s.market.GetTrending(ctx)
	if err != nil {
		return "", err
	}
	names := make([]string, len(coins))
	for i, c := range coins {
		names[i] = c.Name
	}
	return "Trending coins: " + strings.Join(names, ", "), nil
}

func (s *Service) handleStats(ctx context.Context, coin string) (string, error) {
	stats, err := s.market.GetCoinStats(ctx, strings.ToLower(coin))
	if err != nil {
		return "", err
	}

	reply := fmt.Sprintf("%s (%s) - Market Cap: $%s, 24h Change: %.2f%%",
		stats.Name,
		strings.ToUpper(stats.Symbol),
		formatAmount(stats.MarketCapUSD),
		stats.Change24h,
	)
	if sentence := firstSentence(stats.Description); sentence != "" {
		reply += ", " + sentence
	}
	return reply, nil
}

func (s *Service) handlePortfolioAdd(session *models.Session, cls Classification) string {
	session.Portfolio.Set(cls.Coin, cls.Quantity)
	return fmt.Sprintf("Noted! You have %s %s", cls.QuantityText, strings.ToUpper(cls.Coin))
}

// handleValuation prices every holding sequentially, in insertion order. A
// missing price contributes zero; a fetch error voids the whole valuation.
func (s *Service) handleValuation(ctx context.Context, session *models.Session) (string, error) {
	total := 0.0
	items := make([]string, 0, session.Portfolio.Len())

	for _, symbol := range session.Portfolio.Symbols() {
		price, found, err := s.market.GetSimplePrice(ctx, symbol, Currency)
		if err != nil {
			return "", err
		}
		qty, _ := session.Portfolio.Get(symbol)
		value := 0.0
		if found {
			value = qty * price
		}
		total += value
		items = append(items, fmt.Sprintf("%s: $%.2f", strings.ToUpper(symbol), value))
	}

	return fmt.Sprintf("Your portfolio value is $%.2f\n", total) + strings.Join(items, ", "), nil
}

// speak queues the reply for spoken playback. Synthesis runs off-cycle and
// its failures are never surfaced; only the latest clip per session is kept.
func (s *Service) speak(sessionID, text string) {
	if s.speech == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), speechTimeout)
		defer cancel()

		clip, err := s.speech.Synthesize(ctx, text)
		if err != nil {
			s.logger.Debug().Err(err).Str("session", sessionID).Msg("Speech synthesis failed")
			return
		}

		s.mu.Lock()
		s.clips[sessionID] = clip
		s.mu.Unlock()
	}()
}

// LastSpeech returns the most recent synthesized clip for a session.
func (s *Service) LastSpeech(sessionID string) (*models.SpeechClip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clip, ok := s.clips[sessionID]
	return clip, ok
}

// ForgetSpeech drops any retained clip for a session.
func (s *Service) ForgetSpeech(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clips, sessionID)
}

// formatAmount renders a price the way the service returned it, without
// forcing decimal places: 67000 stays "67000", 0.082 stays "0.082".
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// firstSentence returns the text up to the first period, exclusive.
func firstSentence(s string) string {
	if s == "" {
		return ""
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}

// Ensure Service implements ChatService
var _ interfaces.ChatService = (*Service)(nil)

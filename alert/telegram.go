package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// TelegramConfig configures the Telegram alerter.
type TelegramConfig struct {
	// Token is the bot API token. Empty token means construction fails.
	Token string

	// ChatID is the operator chat (or channel) alerts are sent to.
	ChatID int64

	// PollTimeout is the long-poll timeout for the underlying bot.
	// Defaults to 10s.
	PollTimeout time.Duration

	// SendsPerMinute caps outbound alerts; Telegram throttles chatty bots.
	// Defaults to 20.
	SendsPerMinute int
}

// Telegram sends plain alerts to a fixed chat through the Bot API.
type Telegram struct {
	cfg     TelegramConfig
	bot     *tele.Bot
	limiter *rate.Limiter
	log     *slog.Logger
}

var _ Alerter = (*Telegram)(nil)

// NewTelegram creates a Telegram alerter.
func NewTelegram(cfg TelegramConfig, log *slog.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("alert: telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("alert: telegram chat ID is empty")
	}
	if log == nil {
		log = slog.Default()
	}

	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	perMinute := cfg.SendsPerMinute
	if perMinute <= 0 {
		perMinute = 20
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("alert: create telegram bot: %w", err)
	}

	return &Telegram{
		cfg:     cfg,
		bot:     bot,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		log:     log,
	}, nil
}

// Enabled reports whether the alerter can send.
func (t *Telegram) Enabled() bool {
	return t != nil && t.bot != nil
}

// SendPlainAlert delivers text to the configured chat, waiting on the rate
// limiter first so bursts never trip Telegram's flood control.
func (t *Telegram) SendPlainAlert(ctx context.Context, text string) error {
	if !t.Enabled() {
		return ErrDisabled
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("alert: rate limit wait: %w", err)
	}

	_, err := t.bot.Send(&tele.Chat{ID: t.cfg.ChatID}, text, &tele.SendOptions{
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("alert: telegram send: %w", err)
	}

	t.log.Debug("alert sent", slog.Int64("chat_id", t.cfg.ChatID), slog.Int("len", len(text)))
	return nil
}

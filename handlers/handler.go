package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"stadion-bot/booking"
	"stadion-bot/i18n"
	"stadion-bot/storage"
	"stadion-bot/types"
)

// Sender is the part of *tgbotapi.BotAPI the handlers need.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Backend is the Stadion REST API.
type Backend interface {
	booking.Gateway
	FetchStadiums(ctx context.Context, limit int) ([]types.Stadium, error)
	FetchStadium(ctx context.Context, id int64) (types.Stadium, error)
	FetchMyBookings(ctx context.Context, token string) ([]types.Booking, error)
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (types.AuthResult, error)
	GetProfile(ctx context.Context, token, role string) (types.User, error)
	UpdateProfile(ctx context.Context, token, role, name string) (types.User, error)
	UploadAvatar(ctx context.Context, token, role string, jpeg []byte) error
	DeleteAccount(ctx context.Context, token, role string) error
	FetchTournaments(ctx context.Context) ([]types.Tournament, error)
	FetchMedia(ctx context.Context, token string) ([]types.Media, error)
}

// Store keeps per-chat state between updates.
type Store interface {
	GetSession(ctx context.Context, chatID int64) (*types.Session, error)
	SaveSession(ctx context.Context, sess *types.Session) error
	DeleteSession(ctx context.Context, chatID int64) error
	GetLanguage(ctx context.Context, chatID int64) string
	SaveLanguage(ctx context.Context, chatID int64, lang string) error
	SavePendingPhone(ctx context.Context, chatID int64, phone string) error
	GetPendingPhone(ctx context.Context, chatID int64) (string, error)
	DeletePendingPhone(ctx context.Context, chatID int64) error
	SetInputMode(ctx context.Context, chatID int64, mode string) error
	GetInputMode(ctx context.Context, chatID int64) (string, error)
}

type Options struct {
	DaysAhead     int
	StadiumsLimit int
	Policy        booking.RemovalPolicy
	Location      *time.Location
	// Timeout bounds the backend calls made for one update.
	Timeout time.Duration
}

type Handler struct {
	Bot   Sender
	Store Store
	API   Backend

	flows  *booking.Registry
	loader *booking.Loader
	opts   Options
	files  *http.Client
	now    func() time.Time
	log    *zap.Logger

	names sync.Map // stadium id -> name shown in the dialog header
	wg    sync.WaitGroup
}

func New(bot Sender, store Store, backend Backend, flows *booking.Registry, loader *booking.Loader, opts Options, log *zap.Logger) *Handler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.DaysAhead < 1 {
		opts.DaysAhead = 14
	}
	return &Handler{
		Bot:    bot,
		Store:  store,
		API:    backend,
		flows:  flows,
		loader: loader,
		opts:   opts,
		files:  &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
		log:    log,
	}
}

// Wait blocks until background work started by the handlers has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.opts.Timeout)
}

func (h *Handler) today() time.Time {
	return booking.Day(h.now().In(h.opts.Location))
}

func (h *Handler) lang(ctx context.Context, chatID int64) string {
	return h.Store.GetLanguage(ctx, chatID)
}

func (h *Handler) send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := h.Bot.Send(c)
	if err != nil {
		h.log.Warn("Telegram send failed", zap.Error(err))
	}
	return m, err
}

func (h *Handler) sendText(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handler) answer(cq *tgbotapi.CallbackQuery, text string) {
	if _, err := h.Bot.Request(tgbotapi.NewCallback(cq.ID, text)); err != nil {
		h.log.Debug("Callback answer failed", zap.Error(err))
	}
}

// session returns the chat's session, or nil after telling the user to log in.
func (h *Handler) session(ctx context.Context, chatID int64, lang string) *types.Session {
	sess, err := h.Store.GetSession(ctx, chatID)
	if err != nil {
		h.log.Error("Failed to read session", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "common.unavailable"))
		return nil
	}
	if sess == nil || sess.Token == "" {
		h.sendText(chatID, i18n.T(lang, "auth.required"))
		return nil
	}
	return sess
}

// expired logs the chat out when err says the backend rejected the token.
func (h *Handler) expired(ctx context.Context, chatID int64, lang string, err error) bool {
	if !errors.Is(err, types.ErrUnauthorized) && !errors.Is(err, booking.ErrUnauthenticated) {
		return false
	}
	h.logout(ctx, chatID)
	h.sendText(chatID, i18n.T(lang, "auth.session_expired"))
	return true
}

func (h *Handler) logout(ctx context.Context, chatID int64) {
	h.flows.Close(chatID)
	if err := h.Store.DeleteSession(ctx, chatID); err != nil {
		h.log.Error("Failed to delete session", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	_ = h.Store.SetInputMode(ctx, chatID, storage.InputNone)
	_ = h.Store.DeletePendingPhone(ctx, chatID)
}

// formatPrice groups thousands with spaces: 150000 -> "150 000 UZS".
func formatPrice(amount int64) string {
	s := fmt.Sprintf("%d", amount)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	out := b.String() + " UZS"
	if neg {
		out = "-" + out
	}
	return out
}

func formatHours(hours []int) string {
	labels := make([]string, 0, len(hours))
	for _, hr := range hours {
		labels = append(labels, types.HourLabel(hr))
	}
	return strings.Join(labels, ", ")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max-1])) + "…"
}

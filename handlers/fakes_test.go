package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"stadion-bot/booking"
	"stadion-bot/i18n"
	"stadion-bot/storage"
	"stadion-bot/types"
)

const chatID = int64(100)

type fakeBot struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	answers []string
	nextID  int
	fileURL string
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, c)
	b.nextID++
	return tgbotapi.Message{MessageID: b.nextID}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		b.answers = append(b.answers, cb.Text)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetFileDirectURL(string) (string, error) {
	if b.fileURL == "" {
		return "", errors.New("no file")
	}
	return b.fileURL, nil
}

// texts returns the text of every message sent or edited, in order.
func (b *fakeBot) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (b *fakeBot) lastText() string {
	t := b.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

// lastEdit returns the most recent text edit of a message.
func (b *fakeBot) lastEdit() (tgbotapi.EditMessageTextConfig, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.sent) - 1; i >= 0; i-- {
		if e, ok := b.sent[i].(tgbotapi.EditMessageTextConfig); ok {
			return e, true
		}
	}
	return tgbotapi.EditMessageTextConfig{}, false
}

func (b *fakeBot) lastAnswer() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.answers) == 0 {
		return ""
	}
	return b.answers[len(b.answers)-1]
}

// buttons maps callback data to label for a keyboard.
func buttons(markup *tgbotapi.InlineKeyboardMarkup) map[string][]string {
	out := make(map[string][]string)
	if markup == nil {
		return out
	}
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				out[*btn.CallbackData] = append(out[*btn.CallbackData], btn.Text)
			}
		}
	}
	return out
}

type memStore struct {
	mu       sync.Mutex
	sessions map[int64]*types.Session
	langs    map[int64]string
	phones   map[int64]string
	modes    map[int64]string
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[int64]*types.Session),
		langs:    make(map[int64]string),
		phones:   make(map[int64]string),
		modes:    make(map[int64]string),
	}
}

func (s *memStore) GetSession(_ context.Context, id int64) (*types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *memStore) SaveSession(_ context.Context, sess *types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ChatID] = &cp
	return nil
}

func (s *memStore) DeleteSession(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memStore) GetLanguage(_ context.Context, id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.langs[id]; ok {
		return l
	}
	return i18n.Default
}

func (s *memStore) SaveLanguage(_ context.Context, id int64, lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.langs[id] = lang
	return nil
}

func (s *memStore) SavePendingPhone(_ context.Context, id int64, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phones[id] = phone
	return nil
}

func (s *memStore) GetPendingPhone(_ context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phones[id], nil
}

func (s *memStore) DeletePendingPhone(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.phones, id)
	return nil
}

func (s *memStore) SetInputMode(_ context.Context, id int64, mode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == storage.InputNone {
		delete(s.modes, id)
		return nil
	}
	s.modes[id] = mode
	return nil
}

func (s *memStore) GetInputMode(_ context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modes[id], nil
}

type fakeBackend struct {
	mu sync.Mutex

	stadium      types.Stadium
	stadiums     []types.Stadium
	availability types.Availability
	bookErr      error
	bookings     []types.Booking
	bookingsErr  error
	tournaments  []types.Tournament
	media        []types.Media
	profile      types.User
	authResult   types.AuthResult
	authErr      error

	// started and release make CreateBooking block when set.
	started chan struct{}
	release chan struct{}

	requests  []types.BookingRequest
	otpPhones []string
	renames   []string
	avatars   [][]byte
	deleted   int
}

func (b *fakeBackend) FetchStadiums(context.Context, int) ([]types.Stadium, error) {
	return b.stadiums, nil
}

func (b *fakeBackend) FetchStadium(_ context.Context, id int64) (types.Stadium, error) {
	if id != b.stadium.ID {
		return types.Stadium{}, errors.Mark(errors.New("no such stadium"), types.ErrNotFound)
	}
	return b.stadium, nil
}

func (b *fakeBackend) FetchAvailability(context.Context, string, int64, string) (types.Availability, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.availability, nil
}

func (b *fakeBackend) CreateBooking(_ context.Context, _ string, req types.BookingRequest) (types.Booking, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	started, release, err := b.started, b.release, b.bookErr
	b.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return types.Booking{}, err
	}
	return types.Booking{ID: 42, StadiumID: req.StadiumID, Date: req.Date, Hours: req.Hours, Status: "pending"}, nil
}

func (b *fakeBackend) FetchMyBookings(context.Context, string) ([]types.Booking, error) {
	return b.bookings, b.bookingsErr
}

func (b *fakeBackend) SendOTP(_ context.Context, phone string) error {
	b.otpPhones = append(b.otpPhones, phone)
	return nil
}

func (b *fakeBackend) VerifyOTP(context.Context, string, string) (types.AuthResult, error) {
	return b.authResult, b.authErr
}

func (b *fakeBackend) GetProfile(context.Context, string, string) (types.User, error) {
	return b.profile, nil
}

func (b *fakeBackend) UpdateProfile(_ context.Context, _, _ string, name string) (types.User, error) {
	b.renames = append(b.renames, name)
	u := b.profile
	u.Fullname = name
	return u, nil
}

func (b *fakeBackend) UploadAvatar(_ context.Context, _, _ string, jpeg []byte) error {
	b.avatars = append(b.avatars, jpeg)
	return nil
}

func (b *fakeBackend) DeleteAccount(context.Context, string, string) error {
	b.deleted++
	return nil
}

func (b *fakeBackend) FetchTournaments(context.Context) ([]types.Tournament, error) {
	return b.tournaments, nil
}

func (b *fakeBackend) FetchMedia(context.Context, string) ([]types.Media, error) {
	return b.media, nil
}

type env struct {
	h       *Handler
	bot     *fakeBot
	store   *memStore
	backend *fakeBackend
	flows   *booking.Registry
}

var morning = time.Date(2026, 3, 21, 10, 0, 0, 0, time.UTC)

func newEnv(t *testing.T) *env {
	t.Helper()
	bot := &fakeBot{}
	store := newMemStore()
	backend := &fakeBackend{
		stadium: types.Stadium{ID: 7, NameUz: "Markaziy Arena", PricePerHour: 150000},
		availability: types.Availability{
			TimetableHours: []int{18, 19, 20, 21},
			BookedHours:    []int{21},
		},
		profile: types.User{ID: 5, Phone: "+998901234567", Fullname: "Ali"},
	}
	flows := booking.NewRegistry()
	h := New(bot, store, backend, flows, booking.NewLoader(backend, zap.NewNop()), Options{
		DaysAhead:     14,
		StadiumsLimit: 20,
		Location:      time.UTC,
		Timeout:       5 * time.Second,
	}, zap.NewNop())
	h.now = func() time.Time { return morning }
	return &env{h: h, bot: bot, store: store, backend: backend, flows: flows}
}

func (e *env) login(t *testing.T) {
	t.Helper()
	_ = e.store.SaveSession(context.Background(), &types.Session{
		ChatID: chatID,
		Token:  "tok",
		Role:   types.RoleUser,
		User:   types.User{ID: 5, Phone: "+998901234567", Fullname: "Ali"},
	})
}

func callback(msgID int, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: msgID, Chat: &tgbotapi.Chat{ID: chatID}},
	}
}

func message(text string) *tgbotapi.Message {
	return &tgbotapi.Message{MessageID: 1, Text: text, Chat: &tgbotapi.Chat{ID: chatID}}
}

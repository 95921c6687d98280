package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"stadion-bot/i18n"
	"stadion-bot/types"
)

const (
	otpTTL   = 5 * time.Minute
	inputTTL = 10 * time.Minute
	cacheTTL = time.Hour
)

// Input modes stored while the bot waits for free text from a chat.
const (
	InputNone   = ""
	InputName   = "profile_name"
	InputPhone  = "auth_phone"
	InputAvatar = "profile_avatar"
)

type Storage struct {
	client *redis.Client
}

func New(addr, password string, db int) *Storage {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Storage{client: rdb}
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *Storage {
	return &Storage{client: client}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func sessionKey(chatID int64) string { return fmt.Sprintf("session:%d", chatID) }
func langKey(chatID int64) string    { return fmt.Sprintf("lang:%d", chatID) }
func otpKey(chatID int64) string     { return fmt.Sprintf("otp:%d", chatID) }
func inputKey(chatID int64) string   { return fmt.Sprintf("input:%d", chatID) }

// ===== Sessions =====

func (s *Storage) SaveSession(ctx context.Context, sess *types.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	return s.client.Set(ctx, sessionKey(sess.ChatID), data, 0).Err()
}

// GetSession returns nil when the chat is not logged in.
func (s *Storage) GetSession(ctx context.Context, chatID int64) (*types.Session, error) {
	val, err := s.client.Get(ctx, sessionKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get session")
	}
	var sess types.Session
	if err := json.Unmarshal(val, &sess); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	return &sess, nil
}

func (s *Storage) DeleteSession(ctx context.Context, chatID int64) error {
	return s.client.Del(ctx, sessionKey(chatID)).Err()
}

// ===== Language =====

// GetLanguage falls back to the default language when nothing is stored
// or redis is unavailable.
func (s *Storage) GetLanguage(ctx context.Context, chatID int64) string {
	val, err := s.client.Get(ctx, langKey(chatID)).Result()
	if err != nil || !i18n.Supported(val) {
		return i18n.Default
	}
	return val
}

func (s *Storage) SaveLanguage(ctx context.Context, chatID int64, lang string) error {
	if !i18n.Supported(lang) {
		return errors.Newf("unsupported language %q", lang)
	}
	return s.client.Set(ctx, langKey(chatID), lang, 0).Err()
}

// ===== Pending OTP =====

// SavePendingPhone remembers the phone an OTP was sent to (TTL: 5 minutes).
func (s *Storage) SavePendingPhone(ctx context.Context, chatID int64, phone string) error {
	return s.client.Set(ctx, otpKey(chatID), phone, otpTTL).Err()
}

// GetPendingPhone returns "" when no code is awaited.
func (s *Storage) GetPendingPhone(ctx context.Context, chatID int64) (string, error) {
	val, err := s.client.Get(ctx, otpKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (s *Storage) DeletePendingPhone(ctx context.Context, chatID int64) error {
	return s.client.Del(ctx, otpKey(chatID)).Err()
}

// ===== Input mode =====

func (s *Storage) SetInputMode(ctx context.Context, chatID int64, mode string) error {
	if mode == InputNone {
		return s.client.Del(ctx, inputKey(chatID)).Err()
	}
	return s.client.Set(ctx, inputKey(chatID), mode, inputTTL).Err()
}

func (s *Storage) GetInputMode(ctx context.Context, chatID int64) (string, error) {
	val, err := s.client.Get(ctx, inputKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return InputNone, nil
	}
	return val, err
}

// ===== Catalogue cache =====

// SaveStadiums caches a stadium list page (TTL: 1 hour).
func (s *Storage) SaveStadiums(ctx context.Context, limit int, stadiums interface{}) error {
	return s.saveCache(ctx, fmt.Sprintf("cache:stadiums:%d", limit), stadiums)
}

// GetStadiums returns nil, nil on a cache miss.
func (s *Storage) GetStadiums(ctx context.Context, limit int) ([]byte, error) {
	return s.getCache(ctx, fmt.Sprintf("cache:stadiums:%d", limit))
}

func (s *Storage) SaveTournaments(ctx context.Context, tournaments interface{}) error {
	return s.saveCache(ctx, "cache:tournaments", tournaments)
}

func (s *Storage) GetTournaments(ctx context.Context) ([]byte, error) {
	return s.getCache(ctx, "cache:tournaments")
}

func (s *Storage) saveCache(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, cacheTTL).Err()
}

func (s *Storage) getCache(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

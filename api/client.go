package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"stadion-bot/metrics"
	"stadion-bot/types"
)

const userAgent = "StadionBot/1.0"

// Cache stores slow-changing catalogue data. Implemented by storage to
// avoid an import cycle.
type Cache interface {
	GetStadiums(ctx context.Context, limit int) ([]byte, error)
	SaveStadiums(ctx context.Context, limit int, stadiums interface{}) error
	GetTournaments(ctx context.Context) ([]byte, error)
	SaveTournaments(ctx context.Context, tournaments interface{}) error
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	RPS     float64
	Burst   int
}

// Client talks to the Stadion backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cache   Cache
	log     *zap.Logger
}

// New creates a client. cache may be nil.
func New(opts Options, cache Cache, log *zap.Logger) *Client {
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
		cache:   cache,
		log:     log,
	}
}

type request struct {
	method      string
	path        string
	endpoint    string // metrics label
	token       string
	body        io.Reader
	contentType string
}

func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Mark(errors.Wrap(err, "rate limit wait"), types.ErrNetwork)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return errors.Wrapf(err, "build %s %s", r.method, r.path)
	}
	requestID := uuid.NewString()
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordAPIRequest(r.endpoint, "error", time.Since(start).Seconds())
		c.log.Warn("API request failed",
			zap.String("request_id", requestID),
			zap.String("endpoint", r.endpoint),
			zap.Error(err))
		return errors.Mark(errors.Wrapf(err, "%s %s", r.method, r.path), types.ErrNetwork)
	}
	defer resp.Body.Close()
	metrics.RecordAPIRequest(r.endpoint, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	c.log.Debug("API request",
		zap.String("request_id", requestID),
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Mark(errors.Wrapf(err, "decode %s", r.endpoint), types.ErrInvalidResponse)
	}
	return nil
}

// statusError maps an HTTP failure onto the shared error kinds, keeping the
// backend's detail message when it sends one.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(body))
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Detail != "" {
			detail = payload.Detail
		} else if payload.Error != "" {
			detail = payload.Error
		}
	}
	err := errors.Newf("backend returned %d: %s", resp.StatusCode, detail)

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.Mark(err, types.ErrUnauthorized)
	case code == http.StatusNotFound:
		return errors.Mark(err, types.ErrNotFound)
	case code == http.StatusConflict:
		return errors.Mark(err, types.ErrConflict)
	case code >= 500:
		return errors.Mark(err, types.ErrServer)
	default:
		return errors.Mark(err, types.ErrBadRequest)
	}
}

func jsonBody(v interface{}) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode request body")
	}
	return bytes.NewReader(data), nil
}

func profilePath(role string) string {
	if role == types.RoleManager {
		return "/managers/me/"
	}
	return "/users/me/"
}

func stadiumPath(id int64, suffix string) string {
	return fmt.Sprintf("/stadiums/%d/%s", id, suffix)
}

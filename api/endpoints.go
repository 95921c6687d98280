package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"stadion-bot/types"
)

// FetchStadiums returns the stadium list, from cache when possible.
// limit <= 0 means no limit.
func (c *Client) FetchStadiums(ctx context.Context, limit int) ([]types.Stadium, error) {
	if c.cache != nil {
		cached, err := c.cache.GetStadiums(ctx, limit)
		if err == nil && cached != nil {
			var stadiums []types.Stadium
			if json.Unmarshal(cached, &stadiums) == nil {
				c.log.Debug("Loaded stadiums from cache", zap.Int("count", len(stadiums)))
				return stadiums, nil
			}
		}
	}

	path := "/stadiums/"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var stadiums []types.Stadium
	if err := c.do(ctx, request{method: http.MethodGet, path: path, endpoint: "stadiums"}, &stadiums); err != nil {
		return nil, errors.Wrap(err, "fetch stadiums")
	}
	for i := range stadiums {
		cleanStadium(&stadiums[i])
	}

	if c.cache != nil {
		if err := c.cache.SaveStadiums(ctx, limit, stadiums); err != nil {
			c.log.Warn("Failed to cache stadiums", zap.Error(err))
		}
	}
	return stadiums, nil
}

func (c *Client) FetchStadium(ctx context.Context, id int64) (types.Stadium, error) {
	var s types.Stadium
	if err := c.do(ctx, request{method: http.MethodGet, path: stadiumPath(id, ""), endpoint: "stadium"}, &s); err != nil {
		return types.Stadium{}, errors.Wrapf(err, "fetch stadium %d", id)
	}
	cleanStadium(&s)
	return s, nil
}

func cleanStadium(s *types.Stadium) {
	s.DescriptionUz = PlainText(s.DescriptionUz)
	s.DescriptionRu = PlainText(s.DescriptionRu)
}

// FetchAvailability returns the timetable and booked hours of a stadium
// for one date (YYYY-MM-DD).
func (c *Client) FetchAvailability(ctx context.Context, token string, stadiumID int64, date string) (types.Availability, error) {
	path := stadiumPath(stadiumID, "availability/") + "?" + url.Values{"date": {date}}.Encode()
	var av types.Availability
	err := c.do(ctx, request{method: http.MethodGet, path: path, endpoint: "availability", token: token}, &av)
	if err != nil {
		return types.Availability{}, err
	}
	return av, nil
}

// CreateBooking submits a booking. It is never retried here.
func (c *Client) CreateBooking(ctx context.Context, token string, req types.BookingRequest) (types.Booking, error) {
	body, err := jsonBody(req)
	if err != nil {
		return types.Booking{}, err
	}
	var b types.Booking
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/bookings/",
		endpoint:    "create_booking",
		token:       token,
		body:        body,
		contentType: "application/json",
	}, &b)
	if err != nil {
		return types.Booking{}, err
	}
	return b, nil
}

func (c *Client) FetchMyBookings(ctx context.Context, token string) ([]types.Booking, error) {
	var bookings []types.Booking
	err := c.do(ctx, request{method: http.MethodGet, path: "/bookings/my/", endpoint: "my_bookings", token: token}, &bookings)
	if err != nil {
		return nil, errors.Wrap(err, "fetch bookings")
	}
	return bookings, nil
}

func (c *Client) SendOTP(ctx context.Context, phone string) error {
	body, err := jsonBody(map[string]string{"phone": phone})
	if err != nil {
		return err
	}
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/send-otp/",
		endpoint:    "send_otp",
		body:        body,
		contentType: "application/json",
	}, nil)
	return errors.Wrap(err, "send otp")
}

func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (types.AuthResult, error) {
	body, err := jsonBody(map[string]string{"phone": phone, "code": code})
	if err != nil {
		return types.AuthResult{}, err
	}
	var res types.AuthResult
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/verify-otp/",
		endpoint:    "verify_otp",
		body:        body,
		contentType: "application/json",
	}, &res)
	if err != nil {
		return types.AuthResult{}, errors.Wrap(err, "verify otp")
	}
	if res.AccessToken == "" {
		return types.AuthResult{}, errors.Mark(errors.New("verify otp: empty access token"), types.ErrInvalidResponse)
	}
	if res.Role == "" {
		res.Role = types.RoleUser
	}
	return res, nil
}

func (c *Client) GetProfile(ctx context.Context, token, role string) (types.User, error) {
	var u types.User
	err := c.do(ctx, request{method: http.MethodGet, path: profilePath(role), endpoint: "get_profile", token: token}, &u)
	if err != nil {
		return types.User{}, errors.Wrap(err, "get profile")
	}
	return u, nil
}

// UpdateProfile renames the account. Users have a fullname, managers a name.
func (c *Client) UpdateProfile(ctx context.Context, token, role, name string) (types.User, error) {
	field := "fullname"
	if role == types.RoleManager {
		field = "name"
	}
	body, err := jsonBody(map[string]string{field: name})
	if err != nil {
		return types.User{}, err
	}
	var u types.User
	err = c.do(ctx, request{
		method:      http.MethodPatch,
		path:        profilePath(role),
		endpoint:    "update_profile",
		token:       token,
		body:        body,
		contentType: "application/json",
	}, &u)
	if err != nil {
		return types.User{}, errors.Wrap(err, "update profile")
	}
	return u, nil
}

// UploadAvatar sends a JPEG as multipart field "avatar". Only plain users
// have avatars.
func (c *Client) UploadAvatar(ctx context.Context, token, role string, jpeg []byte) error {
	if role != types.RoleUser {
		return errors.Mark(errors.Newf("avatar upload is not available for role %q", role), types.ErrBadRequest)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("avatar", "avatar.jpg")
	if err != nil {
		return errors.Wrap(err, "create avatar part")
	}
	if _, err := part.Write(jpeg); err != nil {
		return errors.Wrap(err, "write avatar part")
	}
	if err := mw.Close(); err != nil {
		return errors.Wrap(err, "close multipart writer")
	}

	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        profilePath(role) + "avatar/",
		endpoint:    "upload_avatar",
		token:       token,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, nil)
	return errors.Wrap(err, "upload avatar")
}

func (c *Client) DeleteAccount(ctx context.Context, token, role string) error {
	err := c.do(ctx, request{method: http.MethodDelete, path: profilePath(role), endpoint: "delete_account", token: token}, nil)
	return errors.Wrap(err, "delete account")
}

func (c *Client) FetchTournaments(ctx context.Context) ([]types.Tournament, error) {
	if c.cache != nil {
		cached, err := c.cache.GetTournaments(ctx)
		if err == nil && cached != nil {
			var tournaments []types.Tournament
			if json.Unmarshal(cached, &tournaments) == nil {
				return tournaments, nil
			}
		}
	}

	var tournaments []types.Tournament
	if err := c.do(ctx, request{method: http.MethodGet, path: "/tournaments/", endpoint: "tournaments"}, &tournaments); err != nil {
		return nil, errors.Wrap(err, "fetch tournaments")
	}
	for i := range tournaments {
		tournaments[i].Description = PlainText(tournaments[i].Description)
	}

	if c.cache != nil {
		if err := c.cache.SaveTournaments(ctx, tournaments); err != nil {
			c.log.Warn("Failed to cache tournaments", zap.Error(err))
		}
	}
	return tournaments, nil
}

func (c *Client) FetchMedia(ctx context.Context, token string) ([]types.Media, error) {
	var media []types.Media
	if err := c.do(ctx, request{method: http.MethodGet, path: "/media/", endpoint: "media", token: token}, &media); err != nil {
		return nil, errors.Wrap(err, "fetch media")
	}
	for i := range media {
		media[i].ContentUz = PlainText(media[i].ContentUz)
		media[i].ContentRu = PlainText(media[i].ContentRu)
	}
	return media, nil
}

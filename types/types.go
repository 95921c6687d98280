package types

import (
	"fmt"
	"time"
)

// Stadium is a venue as returned by the backend. Text fields come in
// Uzbek and Russian.
type Stadium struct {
	ID            int64    `json:"id"`
	Slug          string   `json:"slug"`
	NameUz        string   `json:"name_uz"`
	NameRu        string   `json:"name_ru"`
	DescriptionUz string   `json:"description_uz"`
	DescriptionRu string   `json:"description_ru"`
	AddressUz     string   `json:"address_uz"`
	AddressRu     string   `json:"address_ru"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	IsMetroNear   bool     `json:"is_metro_near"`
	MetroStation  string   `json:"metro_station"`
	MetroDistance float64  `json:"metro_distance"`
	Capacity      string   `json:"capacity"`
	SurfaceType   string   `json:"surface_type"`
	RoofType      string   `json:"roof_type"`
	PricePerHour  int64    `json:"price_per_hour"`
	Phone         []string `json:"phone"`
	MainImage     string   `json:"main_image"`
	Images        []string `json:"images"`
}

func (s *Stadium) Name(lang string) string {
	if lang == "ru" && s.NameRu != "" {
		return s.NameRu
	}
	return s.NameUz
}

func (s *Stadium) Description(lang string) string {
	if lang == "ru" && s.DescriptionRu != "" {
		return s.DescriptionRu
	}
	return s.DescriptionUz
}

func (s *Stadium) Address(lang string) string {
	if lang == "ru" && s.AddressRu != "" {
		return s.AddressRu
	}
	return s.AddressUz
}

// AllImages returns the main image followed by the gallery, without
// duplicates or blanks.
func (s *Stadium) AllImages() []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(s.Images)+1)
	for _, img := range append([]string{s.MainImage}, s.Images...) {
		if img == "" || seen[img] {
			continue
		}
		seen[img] = true
		out = append(out, img)
	}
	return out
}

// Availability is the raw availability payload for one stadium and date.
type Availability struct {
	TimetableHours []int `json:"timetable_hours"`
	BookedHours    []int `json:"booked_hours"`
}

// BookingRequest is the outbound payload of a booking submission.
type BookingRequest struct {
	StadiumID   int64  `json:"stadium_id"`
	IsRecurring bool   `json:"is_recurring"`
	Date        string `json:"date"` // YYYY-MM-DD
	Hours       []int  `json:"hours"`
}

// Booking is a reservation record as stored by the backend.
type Booking struct {
	ID          int64   `json:"id"`
	StadiumID   int64   `json:"stadium_id"`
	StadiumName string  `json:"stadium_name,omitempty"`
	Date        string  `json:"date"`
	Hours       []int   `json:"hours"`
	Status      string  `json:"status"`
	TotalPrice  float64 `json:"total_price"`
	IsRecurring bool    `json:"is_recurring"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// User is the authenticated account as returned by OTP verification and
// the profile endpoints.
type User struct {
	ID       int64   `json:"id"`
	Phone    string  `json:"phone"`
	Fullname string  `json:"fullname,omitempty"`
	Name     string  `json:"name,omitempty"` // managers
	Avatar   string  `json:"avatar,omitempty"`
	Role     string  `json:"role,omitempty"`
	Stadiums []int64 `json:"stadiums,omitempty"` // managers
}

// DisplayName picks the field the role actually edits.
func (u *User) DisplayName(role string) string {
	if role == RoleManager {
		return u.Name
	}
	return u.Fullname
}

const (
	RoleUser    = "user"
	RoleManager = "manager"
)

// AuthResult is the response of OTP verification.
type AuthResult struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	Data        User   `json:"data"`
}

// Session is what the bot remembers about a logged-in chat.
type Session struct {
	ChatID int64  `json:"chat_id"`
	Token  string `json:"token"`
	Role   string `json:"role"`
	User   User   `json:"user"`
}

type Tournament struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	StadiumName    string  `json:"stadium_name"`
	StadiumAddress string  `json:"stadium_address"`
	StartTime      string  `json:"start_time"`
	EntranceFee    float64 `json:"entrance_fee"`
	Image          string  `json:"image"`
}

// Start parses StartTime; the backend sends RFC 3339.
func (t *Tournament) Start() (time.Time, error) {
	return time.Parse(time.RFC3339, t.StartTime)
}

type Media struct {
	ID               int64  `json:"id"`
	TitleUz          string `json:"title_uz"`
	TitleRu          string `json:"title_ru"`
	ContentUz        string `json:"content_uz"`
	ContentRu        string `json:"content_ru"`
	YoutubeVideoLink string `json:"youtube_video_link"`
}

func (m *Media) Title(lang string) string {
	if lang == "ru" && m.TitleRu != "" {
		return m.TitleRu
	}
	return m.TitleUz
}

func (m *Media) Content(lang string) string {
	if lang == "ru" && m.ContentRu != "" {
		return m.ContentRu
	}
	return m.ContentUz
}

// HourLabel formats an hour of day the way slots are shown, e.g. "18:00".
func HourLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stadion-bot/i18n"
	"stadion-bot/types"
)

func TestYouTubeURL(t *testing.T) {
	tests := []struct {
		link string
		want string
		ok   bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?t=42", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=short", "", false},
		{"https://vimeo.com/12345", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			got, ok := YouTubeURL(tt.link)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStadiumsList(t *testing.T) {
	e := newEnv(t)
	e.backend.stadiums = []types.Stadium{{ID: 7, NameUz: "Markaziy Arena", PricePerHour: 150000}}

	e.h.HandleStadiums(message("/stadiums"))

	assert.Equal(t, i18n.T("uz", "stadiums.title"), e.bot.lastText())
	assert.Equal(t, "Markaziy Arena", e.h.stadiumName(7))
}

func TestStadiumsEmpty(t *testing.T) {
	e := newEnv(t)

	e.h.HandleStadiums(message("/stadiums"))

	assert.Equal(t, i18n.T("uz", "stadiums.empty"), e.bot.lastText())
}

func TestStadiumDetailWithoutImage(t *testing.T) {
	e := newEnv(t)
	e.backend.stadium.DescriptionRu = "Искусственный газон"
	e.backend.stadium.NameRu = "Центральная арена"
	e.backend.stadium.IsMetroNear = true
	e.backend.stadium.MetroStation = "Chilonzor"
	e.store.langs[chatID] = "ru"

	e.h.HandleStadiumDetail(callback(5, "stadium:7"), "7")

	text := e.bot.lastText()
	assert.Contains(t, text, "Центральная арена")
	assert.Contains(t, text, "150 000 UZS")
	assert.Contains(t, text, "Chilonzor")
	assert.Contains(t, text, "Искусственный газон")
}

func TestBookingsList(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	e.backend.bookings = []types.Booking{
		{ID: 1, StadiumName: "Arena", Date: "2026-03-21", Hours: []int{18, 19}, Status: "pending", TotalPrice: 300000},
	}

	e.h.HandleBookings(message("/bookings"))

	text := e.bot.lastText()
	assert.Contains(t, text, i18n.T("uz", "bookings.title"))
	assert.Contains(t, text, "2026-03-21")
	assert.Contains(t, text, "18:00, 19:00")
	assert.Contains(t, text, "pending")
	assert.Contains(t, text, "300 000 UZS")
}

func TestBookingsRequireLogin(t *testing.T) {
	e := newEnv(t)

	e.h.HandleBookings(message("/bookings"))

	assert.Equal(t, i18n.T("uz", "auth.required"), e.bot.lastText())
}

func TestTournaments(t *testing.T) {
	e := newEnv(t)
	e.backend.tournaments = []types.Tournament{
		{ID: 1, Title: "Bahor kubogi", StadiumName: "Arena", StartTime: "2026-04-01T15:00:00Z"},
		{ID: 2, Title: "Yoz ligasi", StartTime: "2026-06-01T09:30:00Z", EntranceFee: 50000},
	}

	e.h.HandleTournaments(message("/tournaments"))

	text := e.bot.lastText()
	assert.Contains(t, text, "01.04.2026 15:00")
	assert.Contains(t, text, i18n.T("uz", "tournaments.free"))
	assert.Contains(t, text, "50 000 UZS")
}

func TestMediaRequiresLogin(t *testing.T) {
	e := newEnv(t)
	e.backend.media = []types.Media{{ID: 1, TitleUz: "Final"}}

	e.h.HandleMedia(message("/media"))

	assert.Equal(t, i18n.T("uz", "auth.required"), e.bot.lastText())
}

func TestMediaLinks(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	e.backend.media = []types.Media{
		{ID: 1, TitleUz: "Final", YoutubeVideoLink: "https://youtu.be/dQw4w9WgXcQ"},
		{ID: 2, TitleUz: "Yarim final", YoutubeVideoLink: "not a link"},
	}

	e.h.HandleMedia(message("/media"))

	text := e.bot.lastText()
	assert.Contains(t, text, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	assert.Contains(t, text, i18n.T("uz", "media.invalid_link"))
}

func TestSendChunksSplitsLongLists(t *testing.T) {
	e := newEnv(t)
	entry := string(make([]byte, 3000))

	e.h.sendChunks(chatID, "title", []string{entry, entry})

	assert.Len(t, e.bot.texts(), 2)
}

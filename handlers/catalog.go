package handlers

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"stadion-bot/i18n"
	"stadion-bot/types"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	tournamentLayout = "02.01.2006 15:04"
	mediaTextLimit   = 300
	messageLimit     = 4096
)

var youtubePattern = regexp.MustCompile(`(?:youtu\.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*)`)

// YouTubeURL extracts the video id from any common YouTube link form. ok is
// false unless the id has the usual 11 characters.
func YouTubeURL(link string) (string, bool) {
	m := youtubePattern.FindStringSubmatch(link)
	if m == nil || len(m[1]) != 11 {
		return "", false
	}
	return "https://www.youtube.com/watch?v=" + m[1], true
}

func (h *Handler) HandleBookings(msg *tgbotapi.Message) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := msg.Chat.ID
	lang := h.lang(ctx, chatID)

	sess := h.session(ctx, chatID, lang)
	if sess == nil {
		return
	}

	bookings, err := h.API.FetchMyBookings(ctx, sess.Token)
	if err != nil {
		if h.expired(ctx, chatID, lang, err) {
			return
		}
		h.log.Warn("Failed to fetch bookings", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "bookings.load_error"))
		return
	}
	if len(bookings) == 0 {
		h.sendText(chatID, i18n.T(lang, "bookings.empty"))
		return
	}

	entries := make([]string, 0, len(bookings))
	for _, b := range bookings {
		entries = append(entries, bookingEntry(b, lang, h.stadiumName))
	}
	h.sendChunks(chatID, i18n.T(lang, "bookings.title"), entries)
}

func bookingEntry(b types.Booking, lang string, fallbackName func(int64) string) string {
	name := b.StadiumName
	if name == "" {
		name = fallbackName(b.StadiumID)
	}
	return fmt.Sprintf("🏟 %s\n📅 %s · ⏰ %s\n%s: %s\n💰 %s",
		name, b.Date, formatHours(b.Hours),
		i18n.T(lang, "bookings.status"), b.Status,
		formatPrice(int64(b.TotalPrice)))
}

func (h *Handler) HandleTournaments(msg *tgbotapi.Message) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := msg.Chat.ID
	lang := h.lang(ctx, chatID)

	tournaments, err := h.API.FetchTournaments(ctx)
	if err != nil {
		h.log.Warn("Failed to fetch tournaments", zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "tournaments.load_error"))
		return
	}
	if len(tournaments) == 0 {
		h.sendText(chatID, i18n.T(lang, "tournaments.empty"))
		return
	}

	entries := make([]string, 0, len(tournaments))
	for i := range tournaments {
		entries = append(entries, h.tournamentEntry(&tournaments[i], lang))
	}
	h.sendChunks(chatID, i18n.T(lang, "tournaments.title"), entries)
}

func (h *Handler) tournamentEntry(t *types.Tournament, lang string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 %s\n", t.Title)
	if t.StadiumName != "" {
		fmt.Fprintf(&b, "🏟 %s", t.StadiumName)
		if t.StadiumAddress != "" {
			fmt.Fprintf(&b, ", %s", t.StadiumAddress)
		}
		b.WriteByte('\n')
	}
	if start, err := t.Start(); err == nil {
		fmt.Fprintf(&b, "🕒 %s: %s\n", i18n.T(lang, "tournaments.start_date"), start.In(h.opts.Location).Format(tournamentLayout))
	}
	fee := i18n.T(lang, "tournaments.free")
	if t.EntranceFee > 0 {
		fee = formatPrice(int64(t.EntranceFee))
	}
	fmt.Fprintf(&b, "💰 %s: %s", i18n.T(lang, "tournaments.entrance_fee"), fee)
	if t.Description != "" {
		fmt.Fprintf(&b, "\n%s", truncate(t.Description, mediaTextLimit))
	}
	return b.String()
}

func (h *Handler) HandleMedia(msg *tgbotapi.Message) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := msg.Chat.ID
	lang := h.lang(ctx, chatID)

	sess := h.session(ctx, chatID, lang)
	if sess == nil {
		return
	}

	media, err := h.API.FetchMedia(ctx, sess.Token)
	if err != nil {
		if h.expired(ctx, chatID, lang, err) {
			return
		}
		h.log.Warn("Failed to fetch media", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "media.load_error"))
		return
	}
	if len(media) == 0 {
		h.sendText(chatID, i18n.T(lang, "media.empty"))
		return
	}

	entries := make([]string, 0, len(media))
	for i := range media {
		m := &media[i]
		var b strings.Builder
		fmt.Fprintf(&b, "▶️ %s", m.Title(lang))
		if content := m.Content(lang); content != "" {
			fmt.Fprintf(&b, "\n%s", truncate(content, mediaTextLimit))
		}
		if link, ok := YouTubeURL(m.YoutubeVideoLink); ok {
			fmt.Fprintf(&b, "\n🔗 %s", link)
		} else {
			fmt.Fprintf(&b, "\n⚠️ %s", i18n.T(lang, "media.invalid_link"))
		}
		entries = append(entries, b.String())
	}
	h.sendChunks(chatID, i18n.T(lang, "media.title"), entries)
}

// sendChunks sends a titled list, splitting it across messages so none
// exceeds Telegram's length limit.
func (h *Handler) sendChunks(chatID int64, title string, entries []string) {
	var b strings.Builder
	b.WriteString(title)
	for _, e := range entries {
		if b.Len()+len(e)+2 > messageLimit && b.Len() > 0 {
			h.sendText(chatID, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(e)
	}
	if b.Len() > 0 {
		h.sendText(chatID, b.String())
	}
}

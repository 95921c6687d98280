package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"stadion-bot/i18n"
	"stadion-bot/types"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const captionLimit = 1024

func (h *Handler) HandleStadiums(msg *tgbotapi.Message) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := msg.Chat.ID
	lang := h.lang(ctx, chatID)

	stadiums, err := h.API.FetchStadiums(ctx, h.opts.StadiumsLimit)
	if err != nil {
		h.log.Error("Failed to fetch stadiums", zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "stadiums.load_error"))
		return
	}
	if len(stadiums) == 0 {
		h.sendText(chatID, i18n.T(lang, "stadiums.empty"))
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i := range stadiums {
		s := &stadiums[i]
		h.names.Store(s.ID, s.Name(lang))
		label := fmt.Sprintf("⚽ %s · %s", s.Name(lang), formatPrice(s.PricePerHour))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("stadium:%d", s.ID)),
		))
	}

	reply := tgbotapi.NewMessage(chatID, i18n.T(lang, "stadiums.title"))
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	h.send(reply)
}

func (h *Handler) HandleStadiumDetail(cq *tgbotapi.CallbackQuery, rawID string) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := cq.Message.Chat.ID
	lang := h.lang(ctx, chatID)

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		h.answer(cq, i18n.T(lang, "stadiums.not_found"))
		return
	}

	s, err := h.API.FetchStadium(ctx, id)
	if err != nil {
		h.log.Warn("Failed to fetch stadium", zap.Int64("stadium_id", id), zap.Error(err))
		key := "stadiums.load_error"
		if errors.Is(err, types.ErrNotFound) {
			key = "stadiums.not_found"
		}
		h.answer(cq, i18n.T(lang, key))
		return
	}
	h.names.Store(s.ID, s.Name(lang))

	text := stadiumCard(&s, lang)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📅 "+i18n.T(lang, "stadiums.book"), fmt.Sprintf("book:%d", s.ID)),
	))

	if images := s.AllImages(); len(images) > 0 {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(images[0]))
		photo.Caption = truncate(text, captionLimit)
		photo.ReplyMarkup = keyboard
		if _, err := h.Bot.Send(photo); err == nil {
			h.answer(cq, "")
			return
		}
		h.log.Debug("Stadium photo rejected, sending text", zap.Int64("stadium_id", s.ID))
	}

	reply := tgbotapi.NewMessage(chatID, text)
	reply.ReplyMarkup = keyboard
	h.send(reply)
	h.answer(cq, "")
}

func stadiumCard(s *types.Stadium, lang string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚽ %s\n", s.Name(lang))
	if addr := s.Address(lang); addr != "" {
		fmt.Fprintf(&b, "📍 %s\n", addr)
	}
	fmt.Fprintf(&b, "💰 %s / %s\n", formatPrice(s.PricePerHour), i18n.T(lang, "stadiums.perHour"))
	if s.Capacity != "" {
		fmt.Fprintf(&b, "📐 %s: %s\n", i18n.T(lang, "stadiums.size"), s.Capacity)
	}
	if s.SurfaceType != "" {
		fmt.Fprintf(&b, "🌱 %s: %s\n", i18n.T(lang, "stadiums.surface"), s.SurfaceType)
	}
	if s.RoofType != "" {
		fmt.Fprintf(&b, "🏠 %s: %s\n", i18n.T(lang, "stadiums.roof"), s.RoofType)
	}
	if s.IsMetroNear {
		metro := i18n.T(lang, "stadiums.nearMetro")
		if s.MetroStation != "" {
			metro += ": " + s.MetroStation
		}
		fmt.Fprintf(&b, "🚇 %s\n", metro)
	}
	fmt.Fprintf(&b, "🕒 %s · 🅿️ %s\n", i18n.T(lang, "stadiums.open247"), i18n.T(lang, "stadiums.freeParking"))
	if len(s.Phone) > 0 {
		fmt.Fprintf(&b, "📞 %s: %s\n", i18n.T(lang, "stadiums.contact"), strings.Join(s.Phone, ", "))
	}
	if desc := s.Description(lang); desc != "" {
		fmt.Fprintf(&b, "\n%s:\n%s", i18n.T(lang, "stadiums.about"), desc)
	}
	return strings.TrimRight(b.String(), "\n")
}

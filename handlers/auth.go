package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"stadion-bot/i18n"
	"stadion-bot/storage"
	"stadion-bot/types"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	phonePattern = regexp.MustCompile(`^\+998\d{9}$`)
	codePattern  = regexp.MustCompile(`^\d{4,6}$`)
)

// NormalizePhone strips formatting from a typed or shared phone number and
// makes sure it starts with "+".
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	phone := b.String()
	if phone != "" && !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return phone
}

func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

func (h *Handler) HandleLogin(msg *tgbotapi.Message) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := msg.Chat.ID
	lang := h.lang(ctx, chatID)

	if sess, err := h.Store.GetSession(ctx, chatID); err == nil && sess != nil && sess.Token != "" {
		h.sendText(chatID, i18n.T(lang, "auth.already"))
		return
	}

	if err := h.Store.SetInputMode(ctx, chatID, storage.InputPhone); err != nil {
		h.log.Error("Failed to save input mode", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "common.unavailable"))
		return
	}

	reply := tgbotapi.NewMessage(chatID, i18n.T(lang, "auth.enter_phone"))
	keyboard := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButtonContact(i18n.T(lang, "auth.share_contact")),
	))
	keyboard.OneTimeKeyboard = true
	reply.ReplyMarkup = keyboard
	h.send(reply)
}

func (h *Handler) handlePhone(ctx context.Context, msg *tgbotapi.Message, raw string) {
	chatID := msg.Chat.ID
	lang := h.lang(ctx, chatID)

	phone := NormalizePhone(raw)
	if !ValidPhone(phone) {
		h.sendText(chatID, i18n.T(lang, "auth.invalid_phone"))
		return
	}

	if err := h.API.SendOTP(ctx, phone); err != nil {
		h.log.Warn("Failed to send OTP", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "auth.otp_failed"))
		return
	}
	if err := h.Store.SavePendingPhone(ctx, chatID, phone); err != nil {
		h.log.Error("Failed to save pending phone", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "common.unavailable"))
		return
	}
	_ = h.Store.SetInputMode(ctx, chatID, storage.InputNone)

	reply := tgbotapi.NewMessage(chatID, fmt.Sprintf(i18n.T(lang, "auth.otp_sent"), phone))
	reply.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	h.send(reply)
}

func (h *Handler) handleCode(ctx context.Context, msg *tgbotapi.Message, phone string) {
	chatID := msg.Chat.ID
	lang := h.lang(ctx, chatID)

	code := strings.TrimSpace(msg.Text)
	if !codePattern.MatchString(code) {
		h.sendText(chatID, i18n.T(lang, "auth.invalid_code"))
		return
	}

	res, err := h.API.VerifyOTP(ctx, phone, code)
	if err != nil {
		h.log.Info("OTP verification failed", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "auth.invalid_code"))
		return
	}

	sess := &types.Session{ChatID: chatID, Token: res.AccessToken, Role: res.Role, User: res.Data}
	if err := h.Store.SaveSession(ctx, sess); err != nil {
		h.log.Error("Failed to save session", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "common.unavailable"))
		return
	}
	_ = h.Store.DeletePendingPhone(ctx, chatID)

	h.log.Info("User logged in", zap.Int64("chat_id", chatID), zap.String("role", res.Role))
	h.sendText(chatID, i18n.T(lang, "auth.success"))
}

func (h *Handler) HandleLogout(msg *tgbotapi.Message) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := msg.Chat.ID
	lang := h.lang(ctx, chatID)

	if h.session(ctx, chatID, lang) == nil {
		return
	}

	reply := tgbotapi.NewMessage(chatID, i18n.T(lang, "auth.logout_desc"))
	reply.ReplyMarkup = confirmKeyboard(i18n.T(lang, "auth.logout_confirm"), "logout_yes", lang)
	h.send(reply)
}

func (h *Handler) HandleLogoutConfirm(cq *tgbotapi.CallbackQuery) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := cq.Message.Chat.ID
	lang := h.lang(ctx, chatID)

	h.logout(ctx, chatID)
	h.log.Info("User logged out", zap.Int64("chat_id", chatID))
	h.send(tgbotapi.NewEditMessageText(chatID, cq.Message.MessageID, i18n.T(lang, "auth.logged_out")))
	h.answer(cq, "")
}

func confirmKeyboard(yes, data, lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(yes, data),
		tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "common.cancel"), "cancel"),
	))
}

package handlers

import (
	"go.uber.org/zap"

	"stadion-bot/i18n"
	"stadion-bot/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) HandleStart(msg *tgbotapi.Message) {
	ctx, cancel := h.context()
	defer cancel()

	lang := h.lang(ctx, msg.Chat.ID)
	h.sendText(msg.Chat.ID, i18n.T(lang, "start.greeting"))
}

func (h *Handler) HandleLanguage(msg *tgbotapi.Message) {
	ctx, cancel := h.context()
	defer cancel()

	lang := h.lang(ctx, msg.Chat.ID)
	reply := tgbotapi.NewMessage(msg.Chat.ID, i18n.T(lang, "language.choose"))
	reply.ReplyMarkup = languageKeyboard(lang)
	h.send(reply)
}

func languageKeyboard(current string) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, l := range i18n.Languages {
		label := l.Label
		if l.Code == current {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "lang:"+l.Code))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func (h *Handler) HandleLanguageSet(cq *tgbotapi.CallbackQuery, code string) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := cq.Message.Chat.ID

	if err := h.Store.SaveLanguage(ctx, chatID, code); err != nil {
		h.log.Warn("Failed to save language", zap.Int64("chat_id", chatID), zap.String("lang", code), zap.Error(err))
		h.answer(cq, i18n.T(h.lang(ctx, chatID), "common.error"))
		return
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cq.Message.MessageID, i18n.T(code, "language.set"), languageKeyboard(code))
	h.send(edit)
	h.answer(cq, i18n.T(code, "common.updated"))
}

// HandleCancel dismisses a confirmation prompt and any pending text input.
func (h *Handler) HandleCancel(cq *tgbotapi.CallbackQuery) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := cq.Message.Chat.ID

	_ = h.Store.SetInputMode(ctx, chatID, storage.InputNone)
	if _, err := h.Bot.Request(tgbotapi.NewDeleteMessage(chatID, cq.Message.MessageID)); err != nil {
		h.log.Debug("Failed to delete prompt", zap.Error(err))
	}
	h.answer(cq, i18n.T(h.lang(ctx, chatID), "common.cancel"))
}

func (h *Handler) HandleUnknown(msg *tgbotapi.Message) {
	ctx, cancel := h.context()
	defer cancel()

	h.sendText(msg.Chat.ID, i18n.T(h.lang(ctx, msg.Chat.ID), "common.unknown_command"))
}

// HandleText routes a plain message according to what the chat was asked
// for last: a new profile name, a phone number or an OTP code.
func (h *Handler) HandleText(msg *tgbotapi.Message) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := msg.Chat.ID

	if msg.Contact != nil {
		h.handlePhone(ctx, msg, msg.Contact.PhoneNumber)
		return
	}

	mode, err := h.Store.GetInputMode(ctx, chatID)
	if err != nil {
		h.log.Warn("Failed to read input mode", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	switch mode {
	case storage.InputName:
		h.handleNewName(ctx, msg)
		return
	case storage.InputPhone:
		h.handlePhone(ctx, msg, msg.Text)
		return
	}

	phone, err := h.Store.GetPendingPhone(ctx, chatID)
	if err == nil && phone != "" {
		h.handleCode(ctx, msg, phone)
		return
	}

	h.sendText(chatID, i18n.T(h.lang(ctx, chatID), "common.unknown_command"))
}

package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"stadion-bot/avatar"
	"stadion-bot/i18n"
	"stadion-bot/storage"
	"stadion-bot/types"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxPhotoBytes = 5 << 20

func (h *Handler) HandleProfile(msg *tgbotapi.Message) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := msg.Chat.ID
	lang := h.lang(ctx, chatID)

	sess := h.session(ctx, chatID, lang)
	if sess == nil {
		return
	}

	user, err := h.API.GetProfile(ctx, sess.Token, sess.Role)
	if err != nil {
		if h.expired(ctx, chatID, lang, err) {
			return
		}
		h.log.Warn("Failed to load profile", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "profile.load_error"))
		return
	}
	sess.User = user
	if err := h.Store.SaveSession(ctx, sess); err != nil {
		h.log.Warn("Failed to refresh session user", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	reply := tgbotapi.NewMessage(chatID, profileText(sess, lang))
	reply.ReplyMarkup = profileKeyboard(sess.Role, lang)
	h.send(reply)
}

func profileText(sess *types.Session, lang string) string {
	u := sess.User
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", i18n.T(lang, "profile.title"))
	fmt.Fprintf(&b, "📱 %s: %s\n", i18n.T(lang, "profile.phone"), u.Phone)

	nameKey := "profile.full_name"
	if sess.Role == types.RoleManager {
		nameKey = "profile.manager_name"
	}
	name := u.DisplayName(sess.Role)
	if name == "" {
		name = "—"
	}
	fmt.Fprintf(&b, "👤 %s: %s\n", i18n.T(lang, nameKey), name)
	fmt.Fprintf(&b, "🔑 %s: %s", i18n.T(lang, "profile.role"), sess.Role)

	if sess.Role == types.RoleManager && len(u.Stadiums) > 0 {
		ids := make([]string, 0, len(u.Stadiums))
		for _, id := range u.Stadiums {
			ids = append(ids, fmt.Sprintf("#%d", id))
		}
		fmt.Fprintf(&b, "\n🏟 %s: %s", i18n.T(lang, "profile.managed_stadiums"), strings.Join(ids, ", "))
	}
	if u.Avatar != "" {
		fmt.Fprintf(&b, "\n🖼 %s", u.Avatar)
	}
	return b.String()
}

func profileKeyboard(role, lang string) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "profile.edit_name"), "profile:edit")),
	}
	if role == types.RoleUser {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "profile.upload_avatar"), "profile:avatar"),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "profile.delete"), "profile:delete"),
		tgbotapi.NewInlineKeyboardButtonData("🚪 "+i18n.T(lang, "auth.logout_confirm"), "logout_yes"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (h *Handler) HandleProfileEdit(cq *tgbotapi.CallbackQuery) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := cq.Message.Chat.ID
	lang := h.lang(ctx, chatID)

	if h.session(ctx, chatID, lang) == nil {
		h.answer(cq, "")
		return
	}
	if err := h.Store.SetInputMode(ctx, chatID, storage.InputName); err != nil {
		h.answer(cq, i18n.T(lang, "common.error"))
		return
	}
	h.answer(cq, "")
	h.sendText(chatID, i18n.T(lang, "profile.enter_name"))
}

func (h *Handler) handleNewName(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	lang := h.lang(ctx, chatID)
	_ = h.Store.SetInputMode(ctx, chatID, storage.InputNone)

	sess := h.session(ctx, chatID, lang)
	if sess == nil {
		return
	}

	name := strings.TrimSpace(msg.Text)
	if name == "" || name == sess.User.DisplayName(sess.Role) {
		h.sendText(chatID, i18n.T(lang, "profile.name_unchanged"))
		return
	}

	user, err := h.API.UpdateProfile(ctx, sess.Token, sess.Role, name)
	if err != nil {
		if h.expired(ctx, chatID, lang, err) {
			return
		}
		h.log.Warn("Failed to update profile", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "profile.update_error"))
		return
	}
	if user.ID == 0 {
		// The backend may answer the PATCH without the updated user.
		user = sess.User
		if sess.Role == types.RoleManager {
			user.Name = name
		} else {
			user.Fullname = name
		}
	}
	sess.User = user
	if err := h.Store.SaveSession(ctx, sess); err != nil {
		h.log.Warn("Failed to refresh session user", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	h.sendText(chatID, i18n.T(lang, "profile.update_success"))
}

func (h *Handler) HandleProfileAvatar(cq *tgbotapi.CallbackQuery) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := cq.Message.Chat.ID
	lang := h.lang(ctx, chatID)

	sess := h.session(ctx, chatID, lang)
	if sess == nil {
		h.answer(cq, "")
		return
	}
	if sess.Role != types.RoleUser {
		h.answer(cq, i18n.T(lang, "profile.avatar_users"))
		return
	}
	if err := h.Store.SetInputMode(ctx, chatID, storage.InputAvatar); err != nil {
		h.answer(cq, i18n.T(lang, "common.error"))
		return
	}
	h.answer(cq, "")
	h.sendText(chatID, i18n.T(lang, "profile.send_photo"))
}

// HandlePhoto takes the largest size of a photo message as the new avatar
// when the chat asked to upload one.
func (h *Handler) HandlePhoto(msg *tgbotapi.Message) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := msg.Chat.ID
	lang := h.lang(ctx, chatID)

	mode, err := h.Store.GetInputMode(ctx, chatID)
	if err != nil || mode != storage.InputAvatar || len(msg.Photo) == 0 {
		h.sendText(chatID, i18n.T(lang, "common.unknown_command"))
		return
	}
	_ = h.Store.SetInputMode(ctx, chatID, storage.InputNone)

	sess := h.session(ctx, chatID, lang)
	if sess == nil {
		return
	}

	photo := msg.Photo[len(msg.Photo)-1]
	raw, err := h.downloadFile(ctx, photo.FileID)
	if err != nil {
		h.log.Warn("Failed to download photo", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "profile.avatar_error"))
		return
	}
	jpeg, err := avatar.Process(bytes.NewReader(raw))
	if err != nil {
		h.log.Warn("Failed to process avatar", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "profile.avatar_error"))
		return
	}

	if err := h.API.UploadAvatar(ctx, sess.Token, sess.Role, jpeg); err != nil {
		if h.expired(ctx, chatID, lang, err) {
			return
		}
		h.log.Warn("Failed to upload avatar", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "profile.avatar_error"))
		return
	}

	if user, err := h.API.GetProfile(ctx, sess.Token, sess.Role); err == nil {
		sess.User = user
		if err := h.Store.SaveSession(ctx, sess); err != nil {
			h.log.Warn("Failed to refresh session user", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}

	h.log.Info("Avatar uploaded", zap.Int64("chat_id", chatID), zap.Int("bytes", len(jpeg)))
	h.sendText(chatID, fmt.Sprintf("%s\n%s: %d KB",
		i18n.T(lang, "profile.update_success"), i18n.T(lang, "profile.image_size"), (len(jpeg)+1023)/1024))
}

func (h *Handler) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := h.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve file url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.files.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "download file")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}
	if len(data) > maxPhotoBytes {
		return nil, errors.Mark(errors.Newf("photo is larger than %d bytes", maxPhotoBytes), avatar.ErrInvalidImage)
	}
	return data, nil
}

func (h *Handler) HandleProfileDelete(cq *tgbotapi.CallbackQuery) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := cq.Message.Chat.ID
	lang := h.lang(ctx, chatID)

	h.answer(cq, "")
	reply := tgbotapi.NewMessage(chatID, i18n.T(lang, "profile.delete_desc"))
	reply.ReplyMarkup = confirmKeyboard(i18n.T(lang, "profile.delete_confirm"), "profile:delete_yes", lang)
	h.send(reply)
}

func (h *Handler) HandleProfileDeleteConfirm(cq *tgbotapi.CallbackQuery) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := cq.Message.Chat.ID
	lang := h.lang(ctx, chatID)

	sess := h.session(ctx, chatID, lang)
	if sess == nil {
		h.answer(cq, "")
		return
	}

	if err := h.API.DeleteAccount(ctx, sess.Token, sess.Role); err != nil {
		h.answer(cq, "")
		if h.expired(ctx, chatID, lang, err) {
			return
		}
		h.log.Warn("Failed to delete account", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendText(chatID, i18n.T(lang, "profile.delete_error"))
		return
	}

	h.logout(ctx, chatID)
	h.log.Info("Account deleted", zap.Int64("chat_id", chatID))
	h.send(tgbotapi.NewEditMessageText(chatID, cq.Message.MessageID, i18n.T(lang, "profile.account_deleted")))
	h.answer(cq, "")
}

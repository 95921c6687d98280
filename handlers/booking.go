package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"stadion-bot/booking"
	"stadion-bot/i18n"
	"stadion-bot/metrics"
	"stadion-bot/types"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	hoursPerRow = 4
	datesPerRow = 4

	dateLabel = "02.01.2006"
)

// HandleBook opens the booking dialog for a stadium, replacing any dialog
// the chat already had open.
func (h *Handler) HandleBook(cq *tgbotapi.CallbackQuery, rawID string) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := cq.Message.Chat.ID
	lang := h.lang(ctx, chatID)

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		h.answer(cq, i18n.T(lang, "stadiums.not_found"))
		return
	}

	sess, err := h.Store.GetSession(ctx, chatID)
	if err != nil || sess == nil || sess.Token == "" {
		h.answer(cq, "")
		h.sendText(chatID, i18n.T(lang, "booking.login_required"))
		return
	}

	s, err := h.API.FetchStadium(ctx, id)
	if err != nil {
		h.log.Warn("Failed to fetch stadium for booking", zap.Int64("stadium_id", id), zap.Error(err))
		h.answer(cq, i18n.T(lang, "stadiums.load_error"))
		return
	}
	h.names.Store(s.ID, s.Name(lang))

	f := booking.NewFlow(s.ID, s.PricePerHour,
		booking.WithPolicy(h.opts.Policy),
		booking.WithInvalidator(booking.InvalidatorFunc(h.invalidate)),
	)
	if err := f.SetDate(h.today()); err != nil {
		h.answer(cq, i18n.T(lang, "booking.error"))
		return
	}

	text, markup := h.dialogView(f, lang)
	reply := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		reply.ReplyMarkup = *markup
	}
	sent, err := h.send(reply)
	if err != nil {
		h.answer(cq, i18n.T(lang, "common.error"))
		return
	}
	f.ViewID = sent.MessageID
	h.flows.Open(chatID, f)
	metrics.OpenFlows.Set(float64(h.flows.Len()))

	h.log.Info("Booking dialog opened", zap.Int64("chat_id", chatID), zap.Int64("stadium_id", s.ID))
	h.answer(cq, "")
	h.loadSnapshot(ctx, chatID, f, sess.Token, lang)
}

// flow returns the chat's open dialog if cq was pressed on its message.
func (h *Handler) flow(cq *tgbotapi.CallbackQuery, lang string) (*booking.Flow, bool) {
	f, ok := h.flows.Get(cq.Message.Chat.ID)
	if !ok || f.ViewID != cq.Message.MessageID {
		h.answer(cq, i18n.T(lang, "booking.closed"))
		return nil, false
	}
	return f, true
}

func (h *Handler) HandleBookingDate(cq *tgbotapi.CallbackQuery, raw string) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := cq.Message.Chat.ID
	lang := h.lang(ctx, chatID)

	f, ok := h.flow(cq, lang)
	if !ok {
		return
	}

	date, err := time.ParseInLocation(booking.DateLayout, raw, h.opts.Location)
	if err != nil || !h.bookable(date) {
		h.answer(cq, i18n.T(lang, "booking.pick_date"))
		return
	}
	if f.Date().Equal(date) && f.Snapshot() != nil {
		h.answer(cq, "")
		return
	}
	if err := f.SetDate(date); err != nil {
		h.answer(cq, h.errorText(lang, err))
		return
	}
	h.answer(cq, "")
	h.render(chatID, f, lang, "")

	var token string
	if sess, err := h.Store.GetSession(ctx, chatID); err == nil && sess != nil {
		token = sess.Token
	}
	h.loadSnapshot(ctx, chatID, f, token, lang)
}

func (h *Handler) HandleBookingHour(cq *tgbotapi.CallbackQuery, raw string) {
	ctx, cancel := h.context()
	defer cancel()
	lang := h.lang(ctx, cq.Message.Chat.ID)

	f, ok := h.flow(cq, lang)
	if !ok {
		return
	}
	hour, err := strconv.Atoi(raw)
	if err != nil {
		h.answer(cq, "")
		return
	}

	before := f.Selection()
	after, err := f.Toggle(hour, h.pastHours(f.Date()))
	if err != nil {
		h.answer(cq, h.errorText(lang, err))
		return
	}
	if equalHours(before.Hours(), after.Hours()) {
		if snap := f.Snapshot(); snap != nil && snap.IsBooked(hour) {
			h.answer(cq, i18n.T(lang, "booking.booked"))
			return
		}
		h.answer(cq, "")
		return
	}
	h.answer(cq, "")
	h.render(cq.Message.Chat.ID, f, lang, "")
}

// HandleBookingUnavailable answers taps on booked or past hours.
func (h *Handler) HandleBookingUnavailable(cq *tgbotapi.CallbackQuery) {
	ctx, cancel := h.context()
	defer cancel()
	h.answer(cq, i18n.T(h.lang(ctx, cq.Message.Chat.ID), "booking.booked"))
}

func (h *Handler) HandleBookingNext(cq *tgbotapi.CallbackQuery) {
	ctx, cancel := h.context()
	defer cancel()
	lang := h.lang(ctx, cq.Message.Chat.ID)

	f, ok := h.flow(cq, lang)
	if !ok {
		return
	}
	if err := f.Advance(); err != nil {
		h.answer(cq, h.errorText(lang, err))
		return
	}
	h.answer(cq, "")
	h.render(cq.Message.Chat.ID, f, lang, "")
}

func (h *Handler) HandleBookingBack(cq *tgbotapi.CallbackQuery) {
	ctx, cancel := h.context()
	defer cancel()
	lang := h.lang(ctx, cq.Message.Chat.ID)

	f, ok := h.flow(cq, lang)
	if !ok {
		return
	}
	if err := f.Back(); err != nil {
		h.answer(cq, h.errorText(lang, err))
		return
	}
	h.answer(cq, "")
	h.render(cq.Message.Chat.ID, f, lang, "")
}

func (h *Handler) HandleBookingClose(cq *tgbotapi.CallbackQuery) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := cq.Message.Chat.ID
	lang := h.lang(ctx, chatID)

	if f, ok := h.flows.Get(chatID); ok && f.ViewID == cq.Message.MessageID {
		h.flows.Close(chatID)
		metrics.OpenFlows.Set(float64(h.flows.Len()))
		h.log.Info("Booking dialog closed", zap.Int64("chat_id", chatID), zap.Int64("stadium_id", f.StadiumID()))
	}
	h.send(tgbotapi.NewEditMessageText(chatID, cq.Message.MessageID, i18n.T(lang, "booking.closed")))
	h.answer(cq, "")
}

// HandleBookingConfirm submits in the background. Close while the request
// is out discards its result.
func (h *Handler) HandleBookingConfirm(cq *tgbotapi.CallbackQuery) {
	ctx, cancel := h.context()
	defer cancel()
	chatID := cq.Message.Chat.ID
	lang := h.lang(ctx, chatID)

	f, ok := h.flow(cq, lang)
	if !ok {
		return
	}
	if err := f.Begin(); err != nil {
		h.answer(cq, h.errorText(lang, err))
		return
	}

	var token string
	if sess, err := h.Store.GetSession(ctx, chatID); err == nil && sess != nil {
		token = sess.Token
	}

	h.render(chatID, f, lang, "")
	h.answer(cq, i18n.T(lang, "booking.submitting"))

	h.wg.Add(1)
	go h.submit(chatID, f, token, lang)
}

func (h *Handler) submit(chatID int64, f *booking.Flow, token, lang string) {
	defer h.wg.Done()
	ctx, cancel := h.context()
	defer cancel()

	b, err := f.Submit(ctx, h.API, token)
	switch {
	case err == nil:
		metrics.RecordBooking("success")
		h.log.Info("Booking created",
			zap.Int64("chat_id", chatID),
			zap.Int64("stadium_id", f.StadiumID()),
			zap.Int64("booking_id", b.ID))
		h.render(chatID, f, lang, "")
		h.flows.Release(chatID, f)
		metrics.OpenFlows.Set(float64(h.flows.Len()))

	case errors.Is(err, booking.ErrFlowClosed):
		metrics.RecordBooking("discarded")
		h.log.Info("Booking response arrived after dialog closed",
			zap.Int64("chat_id", chatID),
			zap.Int64("booking_id", b.ID),
			zap.Error(err))

	case errors.Is(err, booking.ErrSubmissionInFlight), errors.Is(err, booking.ErrWrongState):
		// Closed between the claim and the request.

	default:
		metrics.RecordBooking(resultLabel(err))
		h.log.Warn("Booking failed",
			zap.Int64("chat_id", chatID),
			zap.Int64("stadium_id", f.StadiumID()),
			zap.Error(err))
		if errors.Is(err, types.ErrUnauthorized) || errors.Is(err, booking.ErrUnauthenticated) {
			h.logout(ctx, chatID)
			h.send(tgbotapi.NewEditMessageText(chatID, f.ViewID, i18n.T(lang, "auth.session_expired")))
			return
		}
		if errors.Is(err, types.ErrConflict) {
			h.reloadAfterConflict(ctx, chatID, f, token)
		}
		h.render(chatID, f, lang, h.errorText(lang, err))
	}
}

// reloadAfterConflict marks the hours someone else just took. The user's
// selection stays as it was.
func (h *Handler) reloadAfterConflict(ctx context.Context, chatID int64, f *booking.Flow, token string) {
	snap, err := h.loader.Load(ctx, token, f.StadiumID(), f.Date())
	if err != nil {
		h.log.Warn("Failed to reload availability after conflict",
			zap.Int64("chat_id", chatID),
			zap.Int64("stadium_id", f.StadiumID()),
			zap.Error(err))
		return
	}
	if err := f.ReplaceSnapshot(snap); err != nil {
		h.log.Debug("Conflict snapshot not installed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, types.ErrConflict):
		return "conflict"
	case errors.Is(err, types.ErrUnauthorized), errors.Is(err, booking.ErrUnauthenticated):
		return "unauthorized"
	case errors.Is(err, types.ErrNetwork):
		return "network"
	case errors.Is(err, types.ErrServer):
		return "server"
	}
	return "error"
}

// errorText picks the message shown for a dialog error.
func (h *Handler) errorText(lang string, err error) string {
	key := "booking.error"
	switch {
	case errors.Is(err, booking.ErrUnauthenticated), errors.Is(err, types.ErrUnauthorized):
		key = "booking.login_required"
	case errors.Is(err, types.ErrConflict):
		key = "booking.conflict"
	case errors.Is(err, booking.ErrValidation):
		key = "booking.validation"
	case errors.Is(err, booking.ErrSubmissionInFlight):
		key = "booking.in_progress"
	case errors.Is(err, booking.ErrNoAvailability):
		key = "booking.pick_date"
	case errors.Is(err, booking.ErrFlowClosed), errors.Is(err, booking.ErrWrongState):
		key = "booking.closed"
	case errors.Is(err, types.ErrNetwork), errors.Is(err, types.ErrServer):
		key = "common.unavailable"
	}
	return i18n.T(lang, key)
}

// loadSnapshot fetches availability for the flow's date and redraws it.
func (h *Handler) loadSnapshot(ctx context.Context, chatID int64, f *booking.Flow, token, lang string) {
	snap, err := h.loader.Load(ctx, token, f.StadiumID(), f.Date())
	if err != nil {
		h.log.Warn("Failed to load availability",
			zap.Int64("chat_id", chatID),
			zap.Int64("stadium_id", f.StadiumID()),
			zap.Error(err))
		if errors.Is(err, booking.ErrUnauthenticated) || errors.Is(err, types.ErrUnauthorized) {
			h.flows.Close(chatID)
			h.send(tgbotapi.NewEditMessageText(chatID, f.ViewID, i18n.T(lang, "booking.login_required")))
			if errors.Is(err, types.ErrUnauthorized) {
				h.logout(ctx, chatID)
			}
			return
		}
		h.render(chatID, f, lang, h.errorText(lang, err))
		return
	}

	dropped, err := f.SetSnapshot(snap)
	if err != nil {
		// Date changed or dialog closed while loading.
		return
	}
	note := ""
	if dropped {
		note = i18n.T(lang, "booking.selection_dropped")
	}
	h.render(chatID, f, lang, note)
}

// AvailabilityChanged redraws a dialog whose availability was refreshed in
// the background.
func (h *Handler) AvailabilityChanged(chatID int64, f *booking.Flow, dropped bool) {
	if f.ViewID == 0 || f.State() != booking.StateSelection {
		return
	}
	ctx, cancel := h.context()
	defer cancel()
	lang := h.lang(ctx, chatID)

	note := i18n.T(lang, "booking.refreshed")
	if dropped {
		note = i18n.T(lang, "booking.selection_dropped")
	}
	h.render(chatID, f, lang, note)
}

// invalidate reloads the other dialogs looking at a stadium and date that
// just got a new booking.
func (h *Handler) invalidate(stadiumID int64, date time.Time) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := h.context()
		defer cancel()

		h.flows.Each(func(chatID int64, f *booking.Flow) {
			current := f.Snapshot()
			if f.StadiumID() != stadiumID || !f.Date().Equal(date) || current == nil {
				return
			}
			sess, err := h.Store.GetSession(ctx, chatID)
			if err != nil || sess == nil {
				return
			}
			fresh, err := h.loader.Load(ctx, sess.Token, stadiumID, date)
			if err != nil || fresh.SameBooked(current) {
				return
			}
			dropped, err := f.SetSnapshot(fresh)
			if err != nil {
				return
			}
			h.AvailabilityChanged(chatID, f, dropped)
		})
	}()
}

func (h *Handler) render(chatID int64, f *booking.Flow, lang, note string) {
	if f.ViewID == 0 {
		return
	}
	text, markup := h.dialogView(f, lang)
	if note != "" {
		text = note + "\n\n" + text
	}
	if markup == nil {
		h.send(tgbotapi.NewEditMessageText(chatID, f.ViewID, text))
		return
	}
	h.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, f.ViewID, text, *markup))
}

func (h *Handler) stadiumName(id int64) string {
	if v, ok := h.names.Load(id); ok {
		return v.(string)
	}
	return fmt.Sprintf("#%d", id)
}

// dialogView renders the dialog for its current state.
func (h *Handler) dialogView(f *booking.Flow, lang string) (string, *tgbotapi.InlineKeyboardMarkup) {
	var b strings.Builder
	fmt.Fprintf(&b, "⚽ %s: %s\n", i18n.T(lang, "booking.title"), h.stadiumName(f.StadiumID()))

	switch f.State() {
	case booking.StateSelection:
		fmt.Fprintf(&b, "💰 %s / %s\n\n", formatPrice(f.PricePerHour()), i18n.T(lang, "stadiums.perHour"))
		if d := f.Date(); !d.IsZero() {
			fmt.Fprintf(&b, "📅 %s\n", d.Format(dateLabel))
		} else {
			fmt.Fprintf(&b, "📅 %s\n", i18n.T(lang, "booking.date"))
		}

		snap := f.Snapshot()
		past := h.pastHours(f.Date())
		switch {
		case snap == nil:
			b.WriteString(i18n.T(lang, "booking.loading"))
		case !anyOpen(snap, past):
			b.WriteString(i18n.T(lang, "booking.no_hours"))
		default:
			fmt.Fprintf(&b, "⏰ %s", i18n.T(lang, "booking.time"))
		}

		sel := f.Selection()
		if !sel.Empty() {
			fmt.Fprintf(&b, "\n\n✅ %s: %s\n💰 %s: %s",
				i18n.T(lang, "booking.selected"), formatHours(sel.Hours()),
				i18n.T(lang, "booking.total"), formatPrice(f.Total()))
		}
		kb := h.selectionKeyboard(f, snap, past, sel, lang)
		return b.String(), &kb

	case booking.StateConfirming:
		sel := f.Selection()
		fmt.Fprintf(&b, "\n📋 %s\n", i18n.T(lang, "booking.summary"))
		fmt.Fprintf(&b, "📅 %s\n", f.Date().Format(dateLabel))
		fmt.Fprintf(&b, "⏰ %s\n", hourRange(sel.Hours()))
		fmt.Fprintf(&b, "💰 %s: %s\n", i18n.T(lang, "booking.total"), formatPrice(f.Total()))
		b.WriteString(i18n.T(lang, "booking.price_note"))
		if f.InFlight() {
			b.WriteString("\n\n" + i18n.T(lang, "booking.submitting"))
			kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "booking.close"), "bk_close"),
			))
			return b.String(), &kb
		}
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ "+i18n.T(lang, "booking.confirm"), "bk_confirm"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "booking.back"), "bk_back"),
				tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "booking.close"), "bk_close"),
			),
		)
		return b.String(), &kb

	case booking.StateSuccess:
		fmt.Fprintf(&b, "\n%s\n", i18n.T(lang, "booking.success"))
		if req := f.Submitted(); req != nil {
			fmt.Fprintf(&b, "📅 %s\n", f.Date().Format(dateLabel))
			fmt.Fprintf(&b, "⏰ %s\n", formatHours(req.Hours))
		}
		fmt.Fprintf(&b, "💰 %s: %s", i18n.T(lang, "booking.total"), formatPrice(f.Total()))
		if bk := f.Booking(); bk != nil && bk.Status != "" {
			fmt.Fprintf(&b, "\n%s: %s", i18n.T(lang, "bookings.status"), bk.Status)
		}
		return b.String(), nil
	}

	return i18n.T(lang, "booking.closed"), nil
}

func (h *Handler) selectionKeyboard(f *booking.Flow, snap *booking.Snapshot, past booking.HourSet, sel booking.Selection, lang string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	today := h.today()
	current := f.Date()
	var row []tgbotapi.InlineKeyboardButton
	for i := 0; i < h.opts.DaysAhead; i++ {
		d := today.AddDate(0, 0, i)
		label := d.Format("02.01")
		if d.Equal(current) {
			label = "• " + label + " •"
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "bk_date:"+d.Format(booking.DateLayout)))
		if len(row) == datesPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	if snap != nil {
		row = nil
		for _, hr := range snap.CandidateHours() {
			label := types.HourLabel(hr)
			data := fmt.Sprintf("bk_hour:%d", hr)
			switch {
			case sel.Contains(hr) && snap.IsBooked(hr):
				label = "⚠️ " + label
			case snap.IsBooked(hr) || past.Has(hr):
				label = "❌ " + label
				data = "bk_na"
			case sel.Contains(hr):
				label = "✅ " + label
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, data))
			if len(row) == hoursPerRow {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}

	controls := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "booking.close"), "bk_close"),
	}
	if !sel.Empty() {
		controls = append(controls, tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "booking.next"), "bk_next"))
	}
	rows = append(rows, controls)

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// pastHours lists the hours of date that have already started.
func (h *Handler) pastHours(date time.Time) booking.HourSet {
	now := h.now().In(h.opts.Location)
	if !booking.Day(now).Equal(date) {
		return nil
	}
	past := booking.NewHourSet()
	for hr := 0; hr <= now.Hour(); hr++ {
		past[hr] = true
	}
	return past
}

// bookable reports whether date falls inside the booking window.
func (h *Handler) bookable(date time.Time) bool {
	today := h.today()
	last := today.AddDate(0, 0, h.opts.DaysAhead-1)
	return !date.Before(today) && !date.After(last)
}

func anyOpen(snap *booking.Snapshot, past booking.HourSet) bool {
	for _, hr := range snap.CandidateHours() {
		if !snap.IsBooked(hr) && !past.Has(hr) {
			return true
		}
	}
	return false
}

// hourRange shows a contiguous run as start and end, e.g. "18:00 – 21:00".
func hourRange(hours []int) string {
	if len(hours) == 0 {
		return ""
	}
	return types.HourLabel(hours[0]) + " – " + types.HourLabel(hours[len(hours)-1]+1)
}

func equalHours(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

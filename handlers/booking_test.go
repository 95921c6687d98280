package handlers

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stadion-bot/booking"
	"stadion-bot/i18n"
	"stadion-bot/types"
)

// openDialog opens the booking dialog for stadium 7 and returns its message id.
func (e *env) openDialog(t *testing.T) (*booking.Flow, int) {
	t.Helper()
	e.h.HandleBook(callback(1, "book:7"), "7")
	f, ok := e.flows.Get(chatID)
	require.True(t, ok)
	require.NotNil(t, f.Snapshot())
	return f, f.ViewID
}

func (e *env) tap(view int, hours ...int) {
	for _, h := range hours {
		s := strconv.Itoa(h)
		e.h.HandleBookingHour(callback(view, "bk_hour:"+s), s)
	}
}

func TestBookingDialogEndToEnd(t *testing.T) {
	e := newEnv(t)
	e.login(t)

	f, view := e.openDialog(t)
	assert.Equal(t, time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC), f.Date())

	edit, ok := e.bot.lastEdit()
	require.True(t, ok)
	btns := buttons(edit.ReplyMarkup)
	assert.Equal(t, []string{"18:00"}, btns["bk_hour:18"])
	assert.Equal(t, []string{"❌ 21:00"}, btns["bk_na"])
	assert.Contains(t, btns, "bk_date:2026-03-21")
	assert.Contains(t, btns, "bk_date:2026-04-03")
	assert.NotContains(t, btns, "bk_date:2026-04-04")
	assert.NotContains(t, btns, "bk_next")

	e.tap(view, 18, 19, 20)
	assert.Equal(t, []int{18, 19, 20}, f.Selection().Hours())
	edit, _ = e.bot.lastEdit()
	assert.Contains(t, edit.Text, "18:00, 19:00, 20:00")
	assert.Contains(t, edit.Text, "450 000 UZS")
	assert.Contains(t, buttons(edit.ReplyMarkup), "bk_next")

	e.h.HandleBookingNext(callback(view, "bk_next"))
	require.Equal(t, booking.StateConfirming, f.State())
	edit, _ = e.bot.lastEdit()
	assert.Contains(t, edit.Text, "18:00 – 21:00")
	assert.Contains(t, buttons(edit.ReplyMarkup), "bk_confirm")

	e.h.HandleBookingConfirm(callback(view, "bk_confirm"))
	e.h.Wait()

	require.Len(t, e.backend.requests, 1)
	assert.Equal(t, types.BookingRequest{StadiumID: 7, IsRecurring: false, Date: "2026-03-21", Hours: []int{18, 19, 20}}, e.backend.requests[0])
	assert.Equal(t, booking.StateSuccess, f.State())

	edit, _ = e.bot.lastEdit()
	assert.Contains(t, edit.Text, i18n.T("uz", "booking.success"))
	assert.Contains(t, edit.Text, "18:00, 19:00, 20:00")
	assert.Contains(t, edit.Text, "450 000 UZS")
	assert.Nil(t, edit.ReplyMarkup)

	_, ok = e.flows.Get(chatID)
	assert.False(t, ok, "successful dialog is released")
}

func TestBookingConflictKeepsSelection(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	e.backend.bookErr = errors.Mark(errors.New("backend returned 409"), types.ErrConflict)

	f, view := e.openDialog(t)
	e.tap(view, 18, 19)
	e.h.HandleBookingNext(callback(view, "bk_next"))
	e.h.HandleBookingConfirm(callback(view, "bk_confirm"))
	e.h.Wait()

	assert.Equal(t, booking.StateSelection, f.State())
	assert.Equal(t, []int{18, 19}, f.Selection().Hours())
	edit, _ := e.bot.lastEdit()
	assert.True(t, strings.HasPrefix(edit.Text, i18n.T("uz", "booking.conflict")))

	_, ok := e.flows.Get(chatID)
	assert.True(t, ok)
}

func TestBookingConflictMarksTakenHour(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	e.backend.bookErr = errors.Mark(errors.New("backend returned 409"), types.ErrConflict)

	f, view := e.openDialog(t)
	e.tap(view, 18, 19)
	e.h.HandleBookingNext(callback(view, "bk_next"))

	e.backend.mu.Lock()
	e.backend.availability.BookedHours = []int{19, 21}
	e.backend.mu.Unlock()

	e.h.HandleBookingConfirm(callback(view, "bk_confirm"))
	e.h.Wait()

	require.Equal(t, booking.StateSelection, f.State())
	assert.Equal(t, []int{18, 19}, f.Selection().Hours())
	assert.True(t, f.Snapshot().IsBooked(19))

	edit, _ := e.bot.lastEdit()
	assert.True(t, strings.HasPrefix(edit.Text, i18n.T("uz", "booking.conflict")))
	assert.Equal(t, []string{"⚠️ 19:00"}, buttons(edit.ReplyMarkup)["bk_hour:19"])

	e.h.HandleBookingNext(callback(view, "bk_next"))
	assert.Equal(t, i18n.T("uz", "booking.conflict"), e.bot.lastAnswer())
	assert.Equal(t, booking.StateSelection, f.State())

	e.tap(view, 19)
	assert.Equal(t, []int{18}, f.Selection().Hours())
	e.h.HandleBookingNext(callback(view, "bk_next"))
	assert.Equal(t, booking.StateConfirming, f.State())
}

func TestDoubleConfirmDoesNotRedraw(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	e.backend.started = make(chan struct{})
	e.backend.release = make(chan struct{})

	_, view := e.openDialog(t)
	e.tap(view, 18)
	e.h.HandleBookingNext(callback(view, "bk_next"))
	e.h.HandleBookingConfirm(callback(view, "bk_confirm"))
	<-e.backend.started

	edits := len(e.bot.texts())
	e.h.HandleBookingConfirm(callback(view, "bk_confirm"))
	assert.Equal(t, i18n.T("uz", "booking.in_progress"), e.bot.lastAnswer())
	assert.Len(t, e.bot.texts(), edits)

	close(e.backend.release)
	e.h.Wait()

	edit, _ := e.bot.lastEdit()
	assert.Contains(t, edit.Text, i18n.T("uz", "booking.success"))
	assert.Len(t, e.backend.requests, 1)
}

func TestBookingUnauthorizedLogsOut(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	e.backend.bookErr = errors.Mark(errors.New("backend returned 401"), types.ErrUnauthorized)

	_, view := e.openDialog(t)
	e.tap(view, 18)
	e.h.HandleBookingNext(callback(view, "bk_next"))
	e.h.HandleBookingConfirm(callback(view, "bk_confirm"))
	e.h.Wait()

	sess, _ := e.store.GetSession(context.Background(), chatID)
	assert.Nil(t, sess)
	assert.Equal(t, i18n.T("uz", "auth.session_expired"), e.bot.lastText())
	_, ok := e.flows.Get(chatID)
	assert.False(t, ok)
}

func TestCloseWhileSubmittingDiscardsResult(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	e.backend.started = make(chan struct{})
	e.backend.release = make(chan struct{})

	f, view := e.openDialog(t)
	e.tap(view, 18)
	e.h.HandleBookingNext(callback(view, "bk_next"))
	e.h.HandleBookingConfirm(callback(view, "bk_confirm"))

	<-e.backend.started
	assert.Equal(t, i18n.T("uz", "booking.in_progress"), func() string {
		e.h.HandleBookingConfirm(callback(view, "bk_confirm"))
		return e.bot.lastAnswer()
	}())

	e.h.HandleBookingClose(callback(view, "bk_close"))
	close(e.backend.release)
	e.h.Wait()

	assert.Equal(t, booking.StateClosed, f.State())
	assert.Nil(t, f.Booking())
	assert.Equal(t, i18n.T("uz", "booking.closed"), e.bot.lastText())
	assert.Len(t, e.backend.requests, 1)
}

func TestBookRequiresLogin(t *testing.T) {
	e := newEnv(t)

	e.h.HandleBook(callback(1, "book:7"), "7")

	assert.Equal(t, i18n.T("uz", "booking.login_required"), e.bot.lastText())
	assert.Zero(t, e.flows.Len())
}

func TestBookUnknownStadium(t *testing.T) {
	e := newEnv(t)
	e.login(t)

	e.h.HandleBook(callback(1, "book:999"), "999")

	assert.Equal(t, i18n.T("uz", "stadiums.load_error"), e.bot.lastAnswer())
	assert.Zero(t, e.flows.Len())
}

func TestStaleDialogMessageIsIgnored(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	f, view := e.openDialog(t)

	e.h.HandleBookingHour(callback(view+50, "bk_hour:18"), "18")

	assert.Equal(t, i18n.T("uz", "booking.closed"), e.bot.lastAnswer())
	assert.True(t, f.Selection().Empty())
}

func TestOpeningSecondDialogClosesFirst(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	first, _ := e.openDialog(t)
	second, _ := e.openDialog(t)

	assert.Equal(t, booking.StateClosed, first.State())
	assert.Equal(t, booking.StateSelection, second.State())
	assert.NotEqual(t, first.ViewID, second.ViewID)
}

func TestBookedHourTap(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	f, view := e.openDialog(t)

	e.tap(view, 21)

	assert.Equal(t, i18n.T("uz", "booking.booked"), e.bot.lastAnswer())
	assert.True(t, f.Selection().Empty())
}

func TestPastHoursAreUnavailableToday(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	e.h.now = func() time.Time { return time.Date(2026, 3, 21, 18, 30, 0, 0, time.UTC) }
	f, view := e.openDialog(t)

	edit, _ := e.bot.lastEdit()
	assert.Equal(t, []string{"❌ 18:00", "❌ 21:00"}, buttons(edit.ReplyMarkup)["bk_na"])

	e.tap(view, 18)
	assert.True(t, f.Selection().Empty())

	e.tap(view, 19)
	assert.Equal(t, []int{19}, f.Selection().Hours())
}

func TestChangingDateReloadsAndClearsSelection(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	f, view := e.openDialog(t)
	e.tap(view, 18)

	e.h.HandleBookingDate(callback(view, "bk_date:2026-03-22"), "2026-03-22")

	assert.Equal(t, time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC), f.Date())
	assert.True(t, f.Selection().Empty())
	require.NotNil(t, f.Snapshot())
	assert.Equal(t, f.Date(), f.Snapshot().Date())
}

func TestDateOutsideWindowIsRejected(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	f, view := e.openDialog(t)

	e.h.HandleBookingDate(callback(view, "bk_date:2026-03-20"), "2026-03-20")
	assert.Equal(t, i18n.T("uz", "booking.pick_date"), e.bot.lastAnswer())

	e.h.HandleBookingDate(callback(view, "bk_date:2026-04-04"), "2026-04-04")
	assert.Equal(t, i18n.T("uz", "booking.pick_date"), e.bot.lastAnswer())

	assert.Equal(t, time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC), f.Date())
}

func TestNextWithoutSelection(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	f, view := e.openDialog(t)

	e.h.HandleBookingNext(callback(view, "bk_next"))

	assert.Equal(t, i18n.T("uz", "booking.validation"), e.bot.lastAnswer())
	assert.Equal(t, booking.StateSelection, f.State())
}

func TestBackKeepsSelection(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	f, view := e.openDialog(t)
	e.tap(view, 19, 20)
	e.h.HandleBookingNext(callback(view, "bk_next"))

	e.h.HandleBookingBack(callback(view, "bk_back"))

	assert.Equal(t, booking.StateSelection, f.State())
	assert.Equal(t, []int{19, 20}, f.Selection().Hours())
}

func TestAvailabilityChangedRendersNote(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	f, _ := e.openDialog(t)

	e.h.AvailabilityChanged(chatID, f, true)

	edit, _ := e.bot.lastEdit()
	assert.True(t, strings.HasPrefix(edit.Text, i18n.T("uz", "booking.selection_dropped")))
}

func TestSuccessRefreshesOtherDialogs(t *testing.T) {
	e := newEnv(t)
	e.login(t)

	other := booking.NewFlow(7, 150000)
	require.NoError(t, other.SetDate(morning))
	_, err := other.SetSnapshot(booking.NewSnapshot(7, morning, e.backend.availability))
	require.NoError(t, err)
	other.ViewID = 77
	e.flows.Open(200, other)
	_ = e.store.SaveSession(context.Background(), &types.Session{ChatID: 200, Token: "tok2", Role: types.RoleUser})

	_, view := e.openDialog(t)
	e.tap(view, 18, 19)
	e.h.HandleBookingNext(callback(view, "bk_next"))

	e.backend.mu.Lock()
	e.backend.availability.BookedHours = []int{18, 19, 21}
	e.backend.mu.Unlock()

	e.h.HandleBookingConfirm(callback(view, "bk_confirm"))
	e.h.Wait()

	assert.True(t, other.Snapshot().IsBooked(18))
	assert.True(t, other.Snapshot().IsBooked(19))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "0 UZS", formatPrice(0))
	assert.Equal(t, "150 000 UZS", formatPrice(150000))
	assert.Equal(t, "1 500 000 UZS", formatPrice(1500000))
	assert.Equal(t, "18:00, 19:00", formatHours([]int{18, 19}))
	assert.Equal(t, "22:00 – 24:00", hourRange([]int{22, 23}))
}

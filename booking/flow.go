package booking

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"stadion-bot/types"
)

// State is a step of the booking dialog.
type State int

const (
	StateSelection State = iota
	StateConfirming
	StateSuccess
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateSelection:
		return "selection"
	case StateConfirming:
		return "confirming"
	case StateSuccess:
		return "success"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Gateway submits bookings to the backend.
type Gateway interface {
	CreateBooking(ctx context.Context, token string, req types.BookingRequest) (types.Booking, error)
}

// Invalidator is told which stadium and date need fresh availability after
// a successful booking.
type Invalidator interface {
	Invalidate(stadiumID int64, date time.Time)
}

type InvalidatorFunc func(stadiumID int64, date time.Time)

func (f InvalidatorFunc) Invalidate(stadiumID int64, date time.Time) { f(stadiumID, date) }

// Flow is one booking dialog: selection, confirmation and success for a
// single stadium. It is safe for concurrent use; a submission releases the
// lock while the request is in flight so Close can still run.
type Flow struct {
	mu sync.Mutex

	stadiumID    int64
	pricePerHour int64
	policy       RemovalPolicy
	invalidator  Invalidator

	state     State
	date      time.Time
	snapshot  *Snapshot
	selection Selection
	inFlight  bool
	claimed   bool
	submitted *types.BookingRequest
	booking   *types.Booking

	// ViewID identifies whatever renders the dialog (a chat message id).
	ViewID int
}

type FlowOption func(*Flow)

func WithPolicy(p RemovalPolicy) FlowOption {
	return func(f *Flow) { f.policy = p }
}

func WithInvalidator(inv Invalidator) FlowOption {
	return func(f *Flow) { f.invalidator = inv }
}

func NewFlow(stadiumID, pricePerHour int64, opts ...FlowOption) *Flow {
	f := &Flow{
		stadiumID:    stadiumID,
		pricePerHour: pricePerHour,
		state:        StateSelection,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Flow) StadiumID() int64 { return f.stadiumID }

func (f *Flow) PricePerHour() int64 { return f.pricePerHour }

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Date returns the chosen date; the zero time means none.
func (f *Flow) Date() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.date
}

func (f *Flow) Snapshot() *Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *Flow) Selection() Selection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selection
}

func (f *Flow) InFlight() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Submitted returns the request sent by the last successful submission.
func (f *Flow) Submitted() *types.BookingRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

// Booking returns the backend record once the flow reached StateSuccess.
func (f *Flow) Booking() *types.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.booking
}

// Total is the indicative price of the current selection, or of the
// submitted hours after success. The backend price is authoritative.
func (f *Flow) Total() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.selection.Len()
	if f.state == StateSuccess && f.submitted != nil {
		n = len(f.submitted.Hours)
	}
	return f.pricePerHour * int64(n)
}

// SetDate picks a new date. The selection and snapshot are dropped; the
// caller loads a fresh snapshot for the new date.
func (f *Flow) SetDate(date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateSelection {
		return errors.Wrapf(ErrWrongState, "set date in %s", f.state)
	}
	f.date = Day(date)
	f.snapshot = nil
	f.selection = Selection{}
	return nil
}

// SetSnapshot installs freshly loaded availability. Snapshots for another
// stadium or date are rejected with ErrStaleSnapshot. If any selected hour
// is now booked the selection is cleared and dropped is true.
func (f *Flow) SetSnapshot(s *Snapshot) (dropped bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateSelection {
		return false, errors.Wrapf(ErrWrongState, "set snapshot in %s", f.state)
	}
	if s == nil || s.StadiumID() != f.stadiumID || !s.Date().Equal(f.date) {
		return false, ErrStaleSnapshot
	}
	f.snapshot = s
	if f.selection.Intersects(s.booked) {
		f.selection = Selection{}
		return true, nil
	}
	return false, nil
}

// ReplaceSnapshot installs s and keeps the selection even when some of its
// hours are now booked. Advance refuses such a selection until the user
// changes it.
func (f *Flow) ReplaceSnapshot(s *Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateSelection {
		return errors.Wrapf(ErrWrongState, "replace snapshot in %s", f.state)
	}
	if s == nil || s.StadiumID() != f.stadiumID || !s.Date().Equal(f.date) {
		return ErrStaleSnapshot
	}
	f.snapshot = s
	return nil
}

// Toggle taps an hour. extra holds hours that are unavailable for reasons
// outside the snapshot, such as hours already past today.
func (f *Flow) Toggle(hour int, extra HourSet) (Selection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateSelection {
		return f.selection, errors.Wrapf(ErrWrongState, "toggle in %s", f.state)
	}
	if f.snapshot == nil {
		return f.selection, ErrNoAvailability
	}
	if !f.snapshot.IsCandidate(hour) {
		return f.selection, nil
	}
	unavailable := f.snapshot.booked.Union(extra)
	if f.selection.Contains(hour) {
		// A selected hour booked by someone else can still be deselected.
		unavailable = nil
	}
	f.selection = Toggle(f.selection, hour, unavailable, f.policy)
	return f.selection, nil
}

// Advance moves from selection to confirmation.
func (f *Flow) Advance() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateSelection {
		return errors.Wrapf(ErrWrongState, "advance in %s", f.state)
	}
	switch {
	case f.date.IsZero():
		return errors.Wrap(ErrValidation, "no date chosen")
	case f.selection.Empty():
		return errors.Wrap(ErrValidation, "no hours selected")
	case !f.selection.Contiguous():
		return errors.Wrap(ErrValidation, "selected hours are not adjacent")
	case f.snapshot != nil && f.selection.Intersects(f.snapshot.booked):
		return errors.Wrap(types.ErrConflict, "selected hours are booked")
	}
	f.state = StateConfirming
	return nil
}

// Back returns from confirmation to selection, keeping the hours.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateConfirming {
		return errors.Wrapf(ErrWrongState, "back in %s", f.state)
	}
	if f.inFlight {
		return ErrSubmissionInFlight
	}
	f.state = StateSelection
	return nil
}

// Begin claims the submission slot so a second confirmation is refused
// before anything is sent. The next Submit uses the claim.
func (f *Flow) Begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateConfirming {
		return errors.Wrapf(ErrWrongState, "begin in %s", f.state)
	}
	if f.inFlight {
		return ErrSubmissionInFlight
	}
	f.inFlight = true
	f.claimed = true
	return nil
}

// Submit sends the confirmed selection through the gateway. On failure the
// flow returns to selection with the hours untouched. If the flow was
// closed while the request was in flight the result is discarded and
// ErrFlowClosed is returned.
func (f *Flow) Submit(ctx context.Context, gw Gateway, token string) (types.Booking, error) {
	f.mu.Lock()
	claimed := f.claimed
	f.claimed = false
	if f.state != StateConfirming {
		if claimed {
			f.inFlight = false
		}
		f.mu.Unlock()
		return types.Booking{}, errors.Wrapf(ErrWrongState, "submit in %s", f.state)
	}
	if f.inFlight && !claimed {
		f.mu.Unlock()
		return types.Booking{}, ErrSubmissionInFlight
	}
	if token == "" {
		f.inFlight = false
		f.state = StateSelection
		f.mu.Unlock()
		return types.Booking{}, ErrUnauthenticated
	}
	req := types.BookingRequest{
		StadiumID:   f.stadiumID,
		IsRecurring: false,
		Date:        f.date.Format(DateLayout),
		Hours:       f.selection.Hours(),
	}
	f.inFlight = true
	f.mu.Unlock()

	b, err := gw.CreateBooking(ctx, token, req)

	f.mu.Lock()
	f.inFlight = false
	if f.state == StateClosed {
		f.mu.Unlock()
		if err != nil {
			return types.Booking{}, errors.Mark(err, ErrFlowClosed)
		}
		return b, ErrFlowClosed
	}
	if err != nil {
		f.state = StateSelection
		f.mu.Unlock()
		return types.Booking{}, errors.Wrap(err, "create booking")
	}

	f.state = StateSuccess
	f.submitted = &req
	f.booking = &b
	f.selection = Selection{}
	f.snapshot = nil
	date, inv := f.date, f.invalidator
	f.mu.Unlock()

	if inv != nil {
		inv.Invalidate(f.stadiumID, date)
	}
	return b, nil
}

// Close dismisses the dialog from any state and discards its local state.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateClosed
	f.selection = Selection{}
	f.snapshot = nil
}

package checker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stadion-bot/booking"
	"stadion-bot/types"
)

var day = time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu    sync.Mutex
	av    types.Availability
	err   error
	calls int
}

func (s *fakeSource) FetchAvailability(_ context.Context, _ string, _ int64, _ string) (types.Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.av, s.err
}

func (s *fakeSource) set(booked ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.av = types.Availability{TimetableHours: []int{18, 19, 20, 21}, BookedHours: booked}
}

type fakeSessions map[int64]*types.Session

func (f fakeSessions) GetSession(_ context.Context, chatID int64) (*types.Session, error) {
	return f[chatID], nil
}

type change struct {
	chatID  int64
	dropped bool
}

type fakeNotifier struct {
	mu      sync.Mutex
	changes []change
}

func (n *fakeNotifier) AvailabilityChanged(chatID int64, _ *booking.Flow, dropped bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change{chatID, dropped})
}

func newFlow(t *testing.T, booked []int, hours ...int) *booking.Flow {
	t.Helper()
	f := booking.NewFlow(7, 150000)
	require.NoError(t, f.SetDate(day))
	snap := booking.NewSnapshot(7, day, types.Availability{TimetableHours: []int{18, 19, 20, 21}, BookedHours: booked})
	_, err := f.SetSnapshot(snap)
	require.NoError(t, err)
	for _, h := range hours {
		_, err := f.Toggle(h, nil)
		require.NoError(t, err)
	}
	return f
}

func setup(t *testing.T) (*Checker, *booking.Registry, *fakeSource, *fakeNotifier) {
	t.Helper()
	src := &fakeSource{}
	reg := booking.NewRegistry()
	n := &fakeNotifier{}
	sessions := fakeSessions{1: {ChatID: 1, Token: "tok"}, 2: {ChatID: 2, Token: "tok"}}
	c := New(reg, booking.NewLoader(src, zap.NewNop()), sessions, n, time.Minute, 10*time.Minute, zap.NewNop())
	return c, reg, src, n
}

func TestInterval(t *testing.T) {
	c, _, _, _ := setup(t)

	tests := []struct {
		hour int
		want time.Duration
	}{
		{0, time.Minute},
		{1, 10 * time.Minute},
		{5, 10 * time.Minute},
		{7, 10 * time.Minute},
		{8, time.Minute},
		{23, time.Minute},
	}
	for _, tt := range tests {
		at := time.Date(2026, 3, 21, tt.hour, 30, 0, 0, time.UTC)
		assert.Equal(t, tt.want, c.Interval(at), "hour %d", tt.hour)
	}
}

func TestCheckAllUnchanged(t *testing.T) {
	c, reg, src, n := setup(t)
	src.set(20)
	reg.Open(1, newFlow(t, []int{20}, 18))

	c.CheckAll(context.Background())

	assert.Equal(t, 1, src.calls)
	assert.Empty(t, n.changes)
}

func TestCheckAllKeepsSelectionWhenOtherHourBooked(t *testing.T) {
	c, reg, src, n := setup(t)
	f := newFlow(t, nil, 18, 19)
	reg.Open(1, f)
	src.set(21)

	c.CheckAll(context.Background())

	assert.Equal(t, []change{{1, false}}, n.changes)
	assert.Equal(t, []int{18, 19}, f.Selection().Hours())
	assert.True(t, f.Snapshot().IsBooked(21))
}

func TestCheckAllDropsSelectionWhenSelectedHourBooked(t *testing.T) {
	c, reg, src, n := setup(t)
	f := newFlow(t, nil, 18, 19)
	reg.Open(1, f)
	src.set(19)

	c.CheckAll(context.Background())

	assert.Equal(t, []change{{1, true}}, n.changes)
	assert.True(t, f.Selection().Empty())
}

func TestCheckAllSkipsFlowsNotSelecting(t *testing.T) {
	c, reg, src, n := setup(t)

	confirming := newFlow(t, nil, 18)
	require.NoError(t, confirming.Advance())
	reg.Open(1, confirming)

	noSnapshot := booking.NewFlow(7, 150000)
	reg.Open(2, noSnapshot)

	closed := newFlow(t, nil, 18)
	reg.Open(3, closed)
	closed.Close()

	src.set(18)
	c.CheckAll(context.Background())

	assert.Zero(t, src.calls)
	assert.Empty(t, n.changes)
}

func TestCheckFlowWithoutSession(t *testing.T) {
	c, reg, src, n := setup(t)
	f := newFlow(t, nil, 18)
	reg.Open(42, f)
	src.set(18)

	assert.False(t, c.CheckFlow(context.Background(), 42, f))
	assert.Zero(t, src.calls)
	assert.Empty(t, n.changes)
}

func TestCheckFlowLoadError(t *testing.T) {
	c, reg, src, n := setup(t)
	f := newFlow(t, nil, 18)
	reg.Open(1, f)
	src.err = errors.Mark(errors.New("boom"), types.ErrNetwork)

	assert.True(t, c.CheckFlow(context.Background(), 1, f))
	assert.Empty(t, n.changes)
	assert.Equal(t, []int{18}, f.Selection().Hours())
}

func TestStartStopsOnCancel(t *testing.T) {
	c, reg, src, _ := setup(t)
	c.dayInterval = 5 * time.Millisecond
	c.nightInterval = 5 * time.Millisecond
	reg.Open(1, newFlow(t, nil, 18))
	src.set()

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls > 0
	}, time.Second, 5*time.Millisecond)
	cancel()
}

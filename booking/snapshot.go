package booking

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"stadion-bot/metrics"
	"stadion-bot/types"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Default opening hours when the backend omits the timetable.
const (
	DefaultFirstHour = 9
	DefaultLastHour  = 23
)

// HourSet is a set of hours of day.
type HourSet map[int]bool

func NewHourSet(hours ...int) HourSet {
	s := make(HourSet, len(hours))
	for _, h := range hours {
		s[h] = true
	}
	return s
}

func (s HourSet) Has(hour int) bool {
	return s[hour]
}

// Union returns a new set with the hours of both.
func (s HourSet) Union(other HourSet) HourSet {
	out := make(HourSet, len(s)+len(other))
	for h := range s {
		out[h] = true
	}
	for h := range other {
		out[h] = true
	}
	return out
}

// Sorted returns the hours in ascending order.
func (s HourSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for h := range s {
		out = append(out, h)
	}
	sort.Ints(out)
	return out
}

// Day strips the time of day, keeping the location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Snapshot is a point-in-time read of which hours are open and which are
// already booked for one stadium on one date. It is never mutated; a new
// date or a refresh produces a new Snapshot.
type Snapshot struct {
	stadiumID  int64
	date       time.Time
	candidates []int
	booked     HourSet
	anomalies  []int
}

// NewSnapshot builds a snapshot from a raw availability payload. An empty
// timetable means the default opening hours. Booked hours the timetable does
// not mention are kept as booked candidates and reported by Anomalies.
func NewSnapshot(stadiumID int64, date time.Time, av types.Availability) *Snapshot {
	candidates := NewHourSet()
	for _, h := range av.TimetableHours {
		if validHour(h) {
			candidates[h] = true
		}
	}
	if len(candidates) == 0 {
		for h := DefaultFirstHour; h <= DefaultLastHour; h++ {
			candidates[h] = true
		}
	}

	booked := NewHourSet()
	unknown := NewHourSet()
	for _, h := range av.BookedHours {
		if !validHour(h) {
			continue
		}
		booked[h] = true
		if !candidates[h] {
			unknown[h] = true
			candidates[h] = true
		}
	}

	return &Snapshot{
		stadiumID:  stadiumID,
		date:       Day(date),
		candidates: candidates.Sorted(),
		booked:     booked,
		anomalies:  unknown.Sorted(),
	}
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}

func (s *Snapshot) StadiumID() int64 { return s.stadiumID }

func (s *Snapshot) Date() time.Time { return s.date }

// CandidateHours returns the hours the venue offers, ascending.
func (s *Snapshot) CandidateHours() []int {
	return append([]int(nil), s.candidates...)
}

// BookedHours returns a copy of the booked set.
func (s *Snapshot) BookedHours() HourSet {
	return s.booked.Union(nil)
}

func (s *Snapshot) IsCandidate(hour int) bool {
	for _, h := range s.candidates {
		if h == hour {
			return true
		}
	}
	return false
}

func (s *Snapshot) IsBooked(hour int) bool {
	return s.booked.Has(hour)
}

// Anomalies lists booked hours that were missing from the timetable.
func (s *Snapshot) Anomalies() []int {
	return append([]int(nil), s.anomalies...)
}

// SameBooked reports whether two snapshots agree on the booked hours.
func (s *Snapshot) SameBooked(other *Snapshot) bool {
	if other == nil || len(s.booked) != len(other.booked) {
		return false
	}
	for h := range s.booked {
		if !other.booked[h] {
			return false
		}
	}
	return true
}

// AvailabilitySource fetches raw availability from the backend.
type AvailabilitySource interface {
	FetchAvailability(ctx context.Context, token string, stadiumID int64, date string) (types.Availability, error)
}

// Loader turns backend availability into snapshots.
type Loader struct {
	source AvailabilitySource
	log    *zap.Logger
}

func NewLoader(source AvailabilitySource, log *zap.Logger) *Loader {
	return &Loader{source: source, log: log}
}

// Load fetches a fresh snapshot. Nothing is cached between calls.
func (l *Loader) Load(ctx context.Context, token string, stadiumID int64, date time.Time) (*Snapshot, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	day := Day(date).Format(DateLayout)
	av, err := l.source.FetchAvailability(ctx, token, stadiumID, day)
	if err != nil {
		return nil, errors.Wrapf(err, "load availability for stadium %d on %s", stadiumID, day)
	}

	snap := NewSnapshot(stadiumID, date, av)
	if unknown := snap.Anomalies(); len(unknown) > 0 {
		metrics.RecordAvailabilityAnomaly()
		err := errors.Mark(errors.Newf("booked hours %v are not in the timetable", unknown), types.ErrInvalidResponse)
		l.log.Warn("Availability treated unknown hours as booked",
			zap.Int64("stadium_id", stadiumID),
			zap.String("date", day),
			zap.Error(err))
	}
	return snap, nil
}

package booking

import "sort"

// MaxHours is the longest run a single booking may cover.
const MaxHours = 3

// RemovalPolicy decides what happens when removing an hour splits a run,
// e.g. {14,15,16} minus 15.
type RemovalPolicy int

const (
	// KeepSplit leaves the remaining hours as they are, so a split pair
	// like {14,16} survives until the user taps again. Advancing with it
	// is rejected.
	KeepSplit RemovalPolicy = iota
	// CollapseSplit keeps only the first contiguous run.
	CollapseSplit
)

// Selection is an ascending set of selected hours. The zero value is empty.
type Selection struct {
	hours []int
}

// NewSelection builds a selection from hours in any order.
func NewSelection(hours ...int) Selection {
	set := NewHourSet(hours...)
	return Selection{hours: set.Sorted()}
}

// Hours returns the selected hours, ascending.
func (s Selection) Hours() []int {
	return append([]int{}, s.hours...)
}

func (s Selection) Len() int { return len(s.hours) }

func (s Selection) Empty() bool { return len(s.hours) == 0 }

func (s Selection) Contains(hour int) bool {
	for _, h := range s.hours {
		if h == hour {
			return true
		}
	}
	return false
}

// Contiguous reports whether the hours form one run with no gaps.
func (s Selection) Contiguous() bool {
	for i := 1; i < len(s.hours); i++ {
		if s.hours[i] != s.hours[i-1]+1 {
			return false
		}
	}
	return true
}

// Intersects reports whether any selected hour is in set.
func (s Selection) Intersects(set HourSet) bool {
	for _, h := range s.hours {
		if set.Has(h) {
			return true
		}
	}
	return false
}

// Toggle applies one tap on hour to the current selection.
//
// Unavailable hours are ignored. A selected hour is removed. A new hour
// extends the run when it touches either end and the run is shorter than
// MaxHours; any other tap starts a fresh run with just that hour.
func Toggle(current Selection, hour int, unavailable HourSet, policy RemovalPolicy) Selection {
	if unavailable.Has(hour) {
		return current
	}

	if current.Contains(hour) {
		rest := make([]int, 0, len(current.hours)-1)
		for _, h := range current.hours {
			if h != hour {
				rest = append(rest, h)
			}
		}
		next := Selection{hours: rest}
		if policy == CollapseSplit && !next.Contiguous() {
			return next.firstRun()
		}
		return next
	}

	if current.Empty() {
		return Selection{hours: []int{hour}}
	}

	lo, hi := current.hours[0], current.hours[len(current.hours)-1]
	if (hour == lo-1 || hour == hi+1) && current.Len() < MaxHours {
		next := append(current.Hours(), hour)
		sort.Ints(next)
		return Selection{hours: next}
	}

	return Selection{hours: []int{hour}}
}

func (s Selection) firstRun() Selection {
	if s.Empty() {
		return s
	}
	run := []int{s.hours[0]}
	for i := 1; i < len(s.hours) && s.hours[i] == s.hours[i-1]+1; i++ {
		run = append(run, s.hours[i])
	}
	return Selection{hours: run}
}

package logic

// CycleSlots is the number of entries in a schedule table.
const CycleSlots = 8

// DefaultInterval is the preset installed at startup.
const DefaultInterval = 3

// midnight is how a 0 entry compares against a nonzero current hour.
const midnight = 24

// noHour marks the last-fired guard as clear.
const noHour = -1

// Table is an ordered list of daily trigger hours. Entries are kept in
// ascending order by convention; 0 is the midnight sentinel and duplicates
// are allowed.
type Table [CycleSlots]int

var presets = map[int]Table{
	3:  {3, 6, 9, 12, 15, 18, 21, 0},
	6:  {6, 12, 18, 0, 6, 12, 18, 0},
	9:  {9, 18, 0, 9, 18, 0, 9, 18},
	12: {6, 18, 6, 18, 6, 18, 6, 18},
}

// Preset returns the table for an interval of 3, 6, 9 or 12 hours.
func Preset(interval int) (Table, bool) {
	t, ok := presets[interval]
	return t, ok
}

// FindNextCycleHour returns the next trigger hour after currentHour.
// At hour 0 the first entry is next. Otherwise the first entry strictly later
// than currentHour wins, with 0 counting as the coming midnight, and the
// search wraps to the first entry when nothing is later.
func FindNextCycleHour(currentHour int, t Table) int {
	if currentHour == 0 {
		return t[0]
	}
	for _, h := range t {
		at := h
		if at == 0 {
			at = midnight
		}
		if currentHour < at {
			return h
		}
	}
	return t[0]
}

// Scheduler holds the schedule table and decides when a cycle is due.
type Scheduler struct {
	table     Table
	interval  int
	next      int
	lastFired int
}

// NewScheduler creates a Scheduler with the default 3-hour table.
func NewScheduler() *Scheduler {
	t, _ := Preset(DefaultInterval)
	return &Scheduler{
		table:     t,
		interval:  DefaultInterval,
		lastFired: noHour,
	}
}

// Install replaces the table with a preset and recomputes the next hour.
// Unknown intervals leave the table unchanged but still recompute.
func (s *Scheduler) Install(interval int, clock Clock, e *emitter) bool {
	t, ok := Preset(interval)
	if ok {
		s.table = t
		s.interval = interval
	}
	s.Recompute(clock, e)
	return ok
}

// Recompute derives the next cycle hour from the clock and updates the
// cycle display. It does nothing until the clock has been synced.
func (s *Scheduler) Recompute(clock Clock, e *emitter) {
	if !clock.Synced {
		return
	}
	s.next = FindNextCycleHour(clock.Hour, s.table)
	e.status(CycleDisplay(clock, s.next))
}

// Due reports whether a cycle should start at the clock's hour. A true result
// advances the schedule, and the same hour cannot fire again until the clock
// has moved to a different hour.
func (s *Scheduler) Due(clock Clock, e *emitter) bool {
	if !clock.Synced {
		return false
	}
	if s.lastFired != noHour && clock.Hour != s.lastFired {
		s.lastFired = noHour
	}
	if clock.Hour != s.next || clock.Hour == s.lastFired {
		return false
	}
	s.lastFired = clock.Hour
	s.Recompute(clock, e)
	return true
}

// Next returns the next cycle hour.
func (s *Scheduler) Next() int {
	return s.next
}

// Table returns the installed table.
func (s *Scheduler) Table() Table {
	return s.table
}

// Interval returns the interval of the installed preset.
func (s *Scheduler) Interval() int {
	return s.interval
}

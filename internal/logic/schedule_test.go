package logic

import "testing"

func TestFindNextCycleHourMidnightReturnsFirst(t *testing.T) {
	for interval := range presets {
		table, _ := Preset(interval)
		if got := FindNextCycleHour(0, table); got != table[0] {
			t.Errorf("preset %d: got %d, want %d", interval, got, table[0])
		}
	}
	odd := Table{17, 2, 5, 5, 0, 0, 0, 0}
	if got := FindNextCycleHour(0, odd); got != 17 {
		t.Errorf("unordered table: got %d, want 17", got)
	}
}

func TestFindNextCycleHour(t *testing.T) {
	three, _ := Preset(3)
	six, _ := Preset(6)
	nine, _ := Preset(9)
	twelve, _ := Preset(12)

	tests := []struct {
		name  string
		hour  int
		table Table
		want  int
	}{
		{"3h mid-morning", 10, three, 12},
		{"3h exact hit advances", 12, three, 15},
		{"3h late evening reaches midnight", 22, three, 0},
		{"3h at 21", 21, three, 0},
		{"3h early", 1, three, 3},
		{"6h evening wraps to midnight", 20, six, 0},
		{"6h morning", 7, six, 12},
		{"9h afternoon", 10, nine, 18},
		{"9h after last", 19, nine, 0},
		{"12h evening wraps", 20, twelve, 6},
		{"12h midday", 13, twelve, 18},
		{"12h exact 18 wraps", 18, twelve, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindNextCycleHour(tt.hour, tt.table); got != tt.want {
				t.Errorf("FindNextCycleHour(%d): got %d, want %d", tt.hour, got, tt.want)
			}
		})
	}
}

func TestFindNextCycleHourIdempotent(t *testing.T) {
	table := Table{3, 6, 9, 12, 15, 18, 21, 0}
	for hour := 0; hour < 24; hour++ {
		first := FindNextCycleHour(hour, table)
		for i := 0; i < 3; i++ {
			if got := FindNextCycleHour(hour, table); got != first {
				t.Fatalf("hour %d call %d: got %d, want %d", hour, i, got, first)
			}
		}
	}
}

func TestPresetTables(t *testing.T) {
	six, ok := Preset(6)
	if !ok {
		t.Fatal("preset 6 missing")
	}
	if six != (Table{6, 12, 18, 0, 6, 12, 18, 0}) {
		t.Errorf("preset 6: got %v", six)
	}
	for _, bad := range []int{0, 1, 4, 24, -3} {
		if _, ok := Preset(bad); ok {
			t.Errorf("preset %d should not exist", bad)
		}
	}
}

func TestSchedulerInstallPreset(t *testing.T) {
	s := NewScheduler()
	clock := Clock{Hour: 20, Minute: 5, Synced: true}

	e := &emitter{}
	if !s.Install(6, clock, e) {
		t.Fatal("Install(6) returned false")
	}
	if s.Next() != 0 {
		t.Errorf("next: got %d, want 0", s.Next())
	}
	if s.Interval() != 6 {
		t.Errorf("interval: got %d, want 6", s.Interval())
	}
	texts := statusTexts(e.outs)
	if len(texts) != 1 || texts[0] != "It's 20:05. Next cycle at 0:00." {
		t.Errorf("display: got %v", texts)
	}
}

func TestSchedulerInstallUnknownKeepsTable(t *testing.T) {
	s := NewScheduler()
	before := s.Table()
	clock := Clock{Hour: 10, Synced: true}

	e := &emitter{}
	if s.Install(7, clock, e) {
		t.Error("Install(7) should report false")
	}
	if s.Table() != before {
		t.Errorf("table changed: got %v", s.Table())
	}
	if s.Interval() != DefaultInterval {
		t.Errorf("interval: got %d, want %d", s.Interval(), DefaultInterval)
	}
	if s.Next() != 12 {
		t.Errorf("next: got %d, want 12", s.Next())
	}
}

func TestSchedulerUnsyncedClockNeverDue(t *testing.T) {
	s := NewScheduler()
	e := &emitter{}
	s.Recompute(Clock{}, e)
	if len(e.outs) != 0 {
		t.Errorf("recompute with unsynced clock produced %v", e.outs)
	}
	// next is 0 before any recompute; an unsynced clock reads hour 0
	if s.Due(Clock{}, e) {
		t.Error("unsynced clock should never be due")
	}
}

func TestSchedulerDueFiresOncePerHour(t *testing.T) {
	s := NewScheduler()
	s.Recompute(Clock{Hour: 10, Synced: true}, &emitter{})
	if s.Next() != 12 {
		t.Fatalf("next: got %d, want 12", s.Next())
	}

	if s.Due(Clock{Hour: 11, Minute: 59, Synced: true}, &emitter{}) {
		t.Error("11:59 should not be due")
	}

	e := &emitter{}
	if !s.Due(Clock{Hour: 12, Minute: 0, Synced: true}, e) {
		t.Fatal("12:00 should be due")
	}
	if s.Next() != 15 {
		t.Errorf("next after firing: got %d, want 15", s.Next())
	}
	if texts := statusTexts(e.outs); len(texts) != 1 {
		t.Errorf("expected cycle display after firing, got %v", texts)
	}

	for minute := 0; minute < 60; minute++ {
		if s.Due(Clock{Hour: 12, Minute: minute, Synced: true}, &emitter{}) {
			t.Fatalf("12:%02d fired twice", minute)
		}
	}
}

func TestSchedulerGuardHoldsWhenNextEqualsFiredHour(t *testing.T) {
	// A table whose only hour is 7 recomputes back to 7 after firing.
	s := NewScheduler()
	s.table = Table{7, 7, 7, 7, 7, 7, 7, 7}
	s.Recompute(Clock{Hour: 6, Synced: true}, &emitter{})

	if !s.Due(Clock{Hour: 7, Synced: true}, &emitter{}) {
		t.Fatal("7:00 should be due")
	}
	if s.Next() != 7 {
		t.Fatalf("next: got %d, want 7", s.Next())
	}
	if s.Due(Clock{Hour: 7, Minute: 30, Synced: true}, &emitter{}) {
		t.Error("same hour fired twice")
	}
	if s.Due(Clock{Hour: 8, Synced: true}, &emitter{}) {
		t.Error("8:00 should not be due")
	}
	if !s.Due(Clock{Hour: 7, Synced: true}, &emitter{}) {
		t.Error("7:00 on the next day should be due again")
	}
}

func TestSchedulerMidnightCycle(t *testing.T) {
	s := NewScheduler()
	s.Recompute(Clock{Hour: 22, Synced: true}, &emitter{})
	if s.Next() != 0 {
		t.Fatalf("next: got %d, want 0", s.Next())
	}
	if !s.Due(Clock{Hour: 0, Minute: 0, Synced: true}, &emitter{}) {
		t.Fatal("midnight should be due")
	}
	if s.Next() != 3 {
		t.Errorf("next after midnight: got %d, want 3", s.Next())
	}
}

func TestCycleDisplay(t *testing.T) {
	got := CycleDisplay(Clock{Hour: 7, Minute: 4, Synced: true}, 9)
	if got != "It's 07:04. Next cycle at 9:00." {
		t.Errorf("got %q", got)
	}
}

func TestClockFromEpoch(t *testing.T) {
	tests := []struct {
		v            int64
		hour, minute int
	}{
		{0, 0, 0},
		{3600*13 + 60*7 + 42, 13, 7},
		{86400*19000 + 3600*23 + 60*59, 23, 59},
		{-60, 23, 59},
	}
	for _, tt := range tests {
		c := ClockFromEpoch(tt.v)
		if c.Hour != tt.hour || c.Minute != tt.minute || !c.Synced {
			t.Errorf("ClockFromEpoch(%d): got %+v, want %02d:%02d", tt.v, c, tt.hour, tt.minute)
		}
	}
}

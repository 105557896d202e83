package logic

import "fmt"

// Status lines shown on the dashboard.
const (
	StatusReservoirOK    = "Reservoir OK"
	StatusReservoirFull  = "Reservoir full"
	StatusReservoirEmpty = "Reservoir empty"
	StatusPumpIdle       = "Pump is idle"
	StatusPumpStart      = "Pump cycle start"
)

// FormatClock formats a clock as HH:MM.
func FormatClock(clock Clock) string {
	return fmt.Sprintf("%02d:%02d", clock.Hour, clock.Minute)
}

// CycleDisplay formats the time of day and the next cycle hour.
func CycleDisplay(clock Clock, nextHour int) string {
	return fmt.Sprintf("It's %s. Next cycle at %d:00.", FormatClock(clock), nextHour)
}

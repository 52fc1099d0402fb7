package epd

import (
	"time"

	"epdweather/internal/log"
)

// busyLine is the slice of Transport the monitor needs.
type busyLine interface {
	WriteCommand(byte) error
	ReadBusyLine() bool
}

// BusyMonitor bounds how long the panel controller is awaited after a
// command that triggers internal processing (power-on, refresh, deep
// sleep entry).
type BusyMonitor struct {
	MaxAttempts  int
	PollInterval time.Duration
	Settle       time.Duration

	sleep func(time.Duration)
}

// NewBusyMonitor returns a monitor with the vendor timings: up to 100
// polls at 10ms, then a 20ms settle.
func NewBusyMonitor() *BusyMonitor {
	return &BusyMonitor{
		MaxAttempts:  100,
		PollInterval: 10 * time.Millisecond,
		Settle:       20 * time.Millisecond,
		sleep:        time.Sleep,
	}
}

// WaitUntilIdle issues the status query and polls the busy line until it
// reports idle or the attempt budget runs out. Exhausting the budget is
// not an error: the busy line floats when no panel is attached, so the
// monitor logs a single warning and returns normally. Write errors during
// polling are ignored for the same reason.
func (m *BusyMonitor) WaitUntilIdle(line busyLine) {
	sleep := m.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	_ = line.WriteCommand(cmdStatusQuery)
	attempts := 0
	for !line.ReadBusyLine() && attempts < m.MaxAttempts {
		_ = line.WriteCommand(cmdStatusQuery)
		attempts++
		sleep(m.PollInterval)
	}
	if attempts >= m.MaxAttempts {
		log.Warn("display unresponsive, proceeding without hardware confirmation",
			"attempts", attempts)
	}
	sleep(m.Settle)
}

package epd

import (
	"errors"
	"fmt"
	"time"

	"epdweather/internal/log"
)

// Panel command set (UC8151 family).
const (
	cmdPanelSetting      byte = 0x00
	cmdPowerOff          byte = 0x02
	cmdPowerOn           byte = 0x04
	cmdDeepSleep         byte = 0x07
	cmdWriteRAMOld       byte = 0x10
	cmdDisplayRefresh    byte = 0x12
	cmdWriteRAMNew       byte = 0x13
	cmdVCOMDataInterval  byte = 0x50
	cmdResolutionSetting byte = 0x61
	cmdStatusQuery       byte = 0x71
)

// Check byte required by the deep sleep mode command.
const deepSleepMagic byte = 0xA5

// The controller needs a moment after a refresh trigger before the busy
// line is meaningful.
const refreshSettle = 100 * time.Millisecond

// State is the display lifecycle. Transitions happen only through Init,
// RenderFull, Clear and Sleep.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateSleeping
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateSleeping:
		return "sleeping"
	case StateUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrNotReady reports an operation on a display that is not initialized,
// already sleeping, or unavailable. No bus I/O is attempted.
var ErrNotReady = errors.New("epd: display not ready")

// busIO is everything the controller needs from its transport. It is an
// interface so tests can substitute a recording double for the SPI bus.
type busIO interface {
	WriteCommand(byte) error
	WriteData([]byte) error
	ReadBusyLine() bool
	SetReset(bool) error
	Close() error
}

// commandBus is what the protocol sequences drive: command and data
// writes, fixed settle delays and the bounded busy wait.
type commandBus interface {
	WriteCommand(byte) error
	WriteData([]byte) error
	Pause(time.Duration)
	WaitUntilIdle()
}

// sequencer folds the first transport error so the fixed command sequences
// read linearly. Once an error is captured, later steps are skipped.
type sequencer struct {
	bus commandBus
	err error
}

func (s *sequencer) command(c byte) {
	if s.err == nil {
		s.err = s.bus.WriteCommand(c)
	}
}

func (s *sequencer) data(p []byte) {
	if s.err == nil {
		s.err = s.bus.WriteData(p)
	}
}

func (s *sequencer) pause(d time.Duration) {
	if s.err == nil {
		s.bus.Pause(d)
	}
}

func (s *sequencer) waitIdle() {
	if s.err == nil {
		s.bus.WaitUntilIdle()
	}
}

// configurePanel runs the power-on and fixed panel configuration sequence:
// power on with busy wait, panel setting, resolution, VCOM/data interval.
func configurePanel(bus commandBus, g Geometry) error {
	s := &sequencer{bus: bus}

	s.command(cmdPowerOn)
	s.waitIdle()

	s.command(cmdPanelSetting)
	s.data([]byte{0x0F, 0x89})

	s.command(cmdResolutionSetting)
	s.data([]byte{byte(g.Width), byte(g.Height >> 8), byte(g.Height)})

	s.command(cmdVCOMDataInterval)
	s.data([]byte{0x77})

	return s.err
}

// writeFrame pushes a packed frame into controller RAM and triggers a full
// refresh. The old-data RAM is always written as zeroes; ghosting
// compensation is not used.
func writeFrame(bus commandBus, packed []byte) error {
	s := &sequencer{bus: bus}

	s.command(cmdWriteRAMOld)
	s.data(make([]byte, len(packed)))

	s.command(cmdWriteRAMNew)
	s.data(packed)

	s.command(cmdDisplayRefresh)
	s.pause(refreshSettle)
	s.waitIdle()

	return s.err
}

// powerDown powers the panel off and enters deep sleep. Only a full
// re-initialization brings it back.
func powerDown(bus commandBus) error {
	s := &sequencer{bus: bus}

	s.command(cmdPowerOff)
	s.waitIdle()

	s.command(cmdDeepSleep)
	s.data([]byte{deepSleepMagic})

	return s.err
}

// Opts configures a Controller.
type Opts struct {
	// Port is the periph.io SPI port name; empty selects the default port.
	Port string
	// Pins are the control lines; the zero value selects DefaultPins.
	Pins PinMap
	// Geometry defaults to EPD2in13V4.
	Geometry Geometry
	// Monitor defaults to NewBusyMonitor().
	Monitor *BusyMonitor
}

// Controller sequences the panel protocol and tracks the display
// lifecycle. It exclusively owns its Transport for its lifetime; exactly
// one controller may address a given bus and pin set.
type Controller struct {
	opts Opts
	mon  *BusyMonitor

	open  func() (busIO, error)
	sleep func(time.Duration)

	tr    busIO
	state State
}

// NewController returns a controller in the Uninitialized state. No
// hardware is touched until Init.
func NewController(opts Opts) *Controller {
	if opts.Geometry == (Geometry{}) {
		opts.Geometry = EPD2in13V4
	}
	if opts.Pins == (PinMap{}) {
		opts.Pins = DefaultPins
	}
	mon := opts.Monitor
	if mon == nil {
		mon = NewBusyMonitor()
	}
	c := &Controller{
		opts:  opts,
		mon:   mon,
		sleep: time.Sleep,
		state: StateUninitialized,
	}
	c.open = func() (busIO, error) {
		return OpenTransport(opts.Port, opts.Pins)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// Geometry returns the native panel dimensions.
func (c *Controller) Geometry() Geometry { return c.opts.Geometry }

// hwBus adapts the transport plus busy monitor to the sequence interface.
type hwBus struct {
	tr    busIO
	mon   *BusyMonitor
	sleep func(time.Duration)
}

func (b hwBus) WriteCommand(cmd byte) error { return b.tr.WriteCommand(cmd) }
func (b hwBus) WriteData(p []byte) error    { return b.tr.WriteData(p) }
func (b hwBus) Pause(d time.Duration)       { b.sleep(d) }
func (b hwBus) WaitUntilIdle()              { b.mon.WaitUntilIdle(b.tr) }

func (c *Controller) bus() commandBus { return hwBus{tr: c.tr, mon: c.mon, sleep: c.sleep} }

// Init opens the transport, pulses the hardware reset and runs the
// power-on configuration, leaving the display Ready. A transport failure
// leaves the controller Unavailable and returns an error wrapping
// ErrUnavailable; the caller is expected to keep running on the
// no-hardware rendering path.
func (c *Controller) Init() error {
	if c.state == StateReady {
		return nil
	}

	tr, err := c.open()
	if err != nil {
		c.state = StateUnavailable
		return err
	}
	c.tr = tr

	if err := c.resetPulse(); err != nil {
		c.abandon()
		return err
	}
	if err := configurePanel(c.bus(), c.opts.Geometry); err != nil {
		c.abandon()
		return err
	}

	c.state = StateReady
	return nil
}

// resetPulse toggles the reset line with the datasheet timings: high 20ms,
// low 2ms, high 20ms.
func (c *Controller) resetPulse() error {
	if err := c.tr.SetReset(true); err != nil {
		return err
	}
	c.sleep(20 * time.Millisecond)
	if err := c.tr.SetReset(false); err != nil {
		return err
	}
	c.sleep(2 * time.Millisecond)
	if err := c.tr.SetReset(true); err != nil {
		return err
	}
	c.sleep(20 * time.Millisecond)
	return nil
}

// abandon releases the transport after a failed power-on and marks the
// display unavailable for the rest of the process lifetime.
func (c *Controller) abandon() {
	if err := c.tr.Close(); err != nil {
		log.Error("transport close after failed init", err)
	}
	c.tr = nil
	c.state = StateUnavailable
}

// RenderFull encodes the frame and drives a full refresh. On a transport
// error mid-sequence the controller stays Ready with stale on-panel
// content; the next successful RenderFull or Clear resolves it.
func (c *Controller) RenderFull(f Frame) error {
	if c.state != StateReady {
		return fmt.Errorf("%w: render in state %s", ErrNotReady, c.state)
	}
	packed, err := Encode(f, c.opts.Geometry)
	if err != nil {
		return err
	}
	return writeFrame(c.bus(), packed)
}

// Clear drives a full refresh with an all-blank frame.
func (c *Controller) Clear() error {
	if c.state != StateReady {
		return fmt.Errorf("%w: clear in state %s", ErrNotReady, c.state)
	}
	blank := make([]byte, c.opts.Geometry.BufferLen())
	for i := range blank {
		blank[i] = 0xFF
	}
	return writeFrame(c.bus(), blank)
}

// Sleep puts the panel into deep sleep and releases the transport. The
// display always ends up Sleeping, even if the release fails; waking it
// requires a fresh Init, there is no lightweight wake command.
func (c *Controller) Sleep() error {
	if c.state != StateReady {
		return fmt.Errorf("%w: sleep in state %s", ErrNotReady, c.state)
	}

	err := powerDown(c.bus())

	if cerr := c.tr.Close(); cerr != nil {
		log.Error("transport close on sleep", cerr)
	}
	c.tr = nil
	c.state = StateSleeping
	return err
}

package epd

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type record struct {
	cmd  byte
	data []byte
}

// fakeBus records the protocol sequence without touching hardware.
type fakeBus struct {
	records  []record
	waits    int
	paused   time.Duration
	failFrom int // fail every write once this many records exist; 0 = never
}

func (f *fakeBus) WriteCommand(cmd byte) error {
	if f.failFrom > 0 && len(f.records) >= f.failFrom {
		return errors.New("bus gone")
	}
	f.records = append(f.records, record{cmd: cmd})
	return nil
}

func (f *fakeBus) WriteData(data []byte) error {
	if f.failFrom > 0 && len(f.records) >= f.failFrom {
		return errors.New("bus gone")
	}
	cur := &f.records[len(f.records)-1]
	cur.data = append(cur.data, data...)
	return nil
}

func (f *fakeBus) Pause(d time.Duration) { f.paused += d }

func (f *fakeBus) WaitUntilIdle() { f.waits++ }

func TestWriteFrameOrdering(t *testing.T) {
	packed := bytes.Repeat([]byte{0xA5}, 16)

	var got fakeBus
	if err := writeFrame(&got, packed); err != nil {
		t.Fatalf("writeFrame() error: %v", err)
	}

	want := []record{
		{cmd: cmdWriteRAMOld, data: make([]byte, 16)},
		{cmd: cmdWriteRAMNew, data: packed},
		{cmd: cmdDisplayRefresh},
	}
	if diff := cmp.Diff(want, got.records, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
		t.Errorf("writeFrame() sequence difference (-want +got):\n%s", diff)
	}
	if got.waits != 1 {
		t.Errorf("writeFrame() busy waits = %d, want 1", got.waits)
	}
	if got.paused != refreshSettle {
		t.Errorf("writeFrame() paused %v, want %v", got.paused, refreshSettle)
	}
}

func TestConfigurePanel(t *testing.T) {
	var got fakeBus
	if err := configurePanel(&got, EPD2in13V4); err != nil {
		t.Fatalf("configurePanel() error: %v", err)
	}

	want := []record{
		{cmd: cmdPowerOn},
		{cmd: cmdPanelSetting, data: []byte{0x0F, 0x89}},
		{cmd: cmdResolutionSetting, data: []byte{0x7A, 0x00, 0xFA}},
		{cmd: cmdVCOMDataInterval, data: []byte{0x77}},
	}
	if diff := cmp.Diff(want, got.records, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
		t.Errorf("configurePanel() sequence difference (-want +got):\n%s", diff)
	}
	if got.waits != 1 {
		t.Errorf("configurePanel() busy waits = %d, want 1", got.waits)
	}
}

func TestPowerDown(t *testing.T) {
	var got fakeBus
	if err := powerDown(&got); err != nil {
		t.Fatalf("powerDown() error: %v", err)
	}

	want := []record{
		{cmd: cmdPowerOff},
		{cmd: cmdDeepSleep, data: []byte{deepSleepMagic}},
	}
	if diff := cmp.Diff(want, got.records, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
		t.Errorf("powerDown() sequence difference (-want +got):\n%s", diff)
	}
	if got.waits != 1 {
		t.Errorf("powerDown() busy waits = %d, want 1", got.waits)
	}
}

func TestSequencerStopsAfterError(t *testing.T) {
	got := fakeBus{failFrom: 1}

	err := writeFrame(&got, []byte{0xFF})
	if err == nil {
		t.Fatal("writeFrame() succeeded on a failing bus")
	}
	if len(got.records) != 1 {
		t.Errorf("writeFrame() kept going after error: %d records", len(got.records))
	}
	if got.waits != 0 {
		t.Errorf("writeFrame() waited on busy after error")
	}
}

// fakeTransport substitutes the SPI transport below a Controller.
type fakeTransport struct {
	fakeBus
	idle   bool
	resets []bool
	closed bool
}

func (f *fakeTransport) ReadBusyLine() bool { return f.idle }

func (f *fakeTransport) SetReset(high bool) error {
	f.resets = append(f.resets, high)
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func testController(ft *fakeTransport) *Controller {
	mon := NewBusyMonitor()
	mon.MaxAttempts = 3
	mon.sleep = func(time.Duration) {}

	c := NewController(Opts{Monitor: mon})
	c.open = func() (busIO, error) { return ft, nil }
	c.sleep = func(time.Duration) {}
	return c
}

func TestControllerInit(t *testing.T) {
	ft := &fakeTransport{idle: true}
	c := testController(ft)

	if err := c.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if c.State() != StateReady {
		t.Fatalf("state after Init = %s, want ready", c.State())
	}

	wantResets := []bool{true, false, true}
	if diff := cmp.Diff(wantResets, ft.resets); diff != "" {
		t.Errorf("reset pulse difference (-want +got):\n%s", diff)
	}

	// Power-on with busy query, then the fixed configuration.
	want := []record{
		{cmd: cmdPowerOn},
		{cmd: cmdStatusQuery},
		{cmd: cmdPanelSetting, data: []byte{0x0F, 0x89}},
		{cmd: cmdResolutionSetting, data: []byte{0x7A, 0x00, 0xFA}},
		{cmd: cmdVCOMDataInterval, data: []byte{0x77}},
	}
	if diff := cmp.Diff(want, ft.records, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
		t.Errorf("Init() sequence difference (-want +got):\n%s", diff)
	}
}

func TestControllerUnavailable(t *testing.T) {
	c := NewController(Opts{})
	c.open = func() (busIO, error) {
		return nil, unavailable("open spi", errors.New("no such device"))
	}
	c.sleep = func(time.Duration) {}

	err := c.Init()
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Init() error = %v, want ErrUnavailable", err)
	}
	if c.State() != StateUnavailable {
		t.Fatalf("state after failed Init = %s, want unavailable", c.State())
	}

	frame := gridFrame{w: 122, h: 250}
	if err := c.RenderFull(frame); !errors.Is(err, ErrNotReady) {
		t.Errorf("RenderFull() on unavailable display: error = %v, want ErrNotReady", err)
	}
}

func TestControllerRenderDimensionMismatch(t *testing.T) {
	ft := &fakeTransport{idle: true}
	c := testController(ft)
	if err := c.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	before := len(ft.records)
	err := c.RenderFull(gridFrame{w: 3, h: 3})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("RenderFull() error = %v, want ErrDimensionMismatch", err)
	}
	if len(ft.records) != before {
		t.Errorf("RenderFull() touched the bus despite the encode error")
	}
	if c.State() != StateReady {
		t.Errorf("state after encode error = %s, want ready", c.State())
	}
}

func TestControllerSleepFinality(t *testing.T) {
	ft := &fakeTransport{idle: true}
	c := testController(ft)
	if err := c.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	if err := c.Sleep(); err != nil {
		t.Fatalf("Sleep() error: %v", err)
	}
	if c.State() != StateSleeping {
		t.Fatalf("state after Sleep = %s, want sleeping", c.State())
	}
	if !ft.closed {
		t.Error("Sleep() did not close the transport")
	}

	before := len(ft.records)
	frame := gridFrame{w: 122, h: 250}
	if err := c.RenderFull(frame); !errors.Is(err, ErrNotReady) {
		t.Errorf("RenderFull() after Sleep: error = %v, want ErrNotReady", err)
	}
	if err := c.Clear(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Clear() after Sleep: error = %v, want ErrNotReady", err)
	}
	if len(ft.records) != before {
		t.Errorf("bus I/O attempted after Sleep")
	}
}

func TestControllerClearPayload(t *testing.T) {
	g := Geometry{Width: 16, Height: 4}
	ft := &fakeTransport{idle: true}

	mon := NewBusyMonitor()
	mon.sleep = func(time.Duration) {}
	c := NewController(Opts{Geometry: g, Monitor: mon})
	c.open = func() (busIO, error) { return ft, nil }
	c.sleep = func(time.Duration) {}

	if err := c.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	ft.records = nil
	ft.waits = 0

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	want := []record{
		{cmd: cmdWriteRAMOld, data: make([]byte, g.BufferLen())},
		{cmd: cmdWriteRAMNew, data: bytes.Repeat([]byte{0xFF}, g.BufferLen())},
		{cmd: cmdDisplayRefresh},
		{cmd: cmdStatusQuery},
	}
	if diff := cmp.Diff(want, ft.records, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
		t.Errorf("Clear() sequence difference (-want +got):\n%s", diff)
	}
}

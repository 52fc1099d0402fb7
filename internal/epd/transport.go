package epd

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// ErrUnavailable reports that the SPI bus or GPIO subsystem could not be
// claimed on this host (device node missing, already claimed, permission
// denied). Callers treat it as "no display attached", not as a crash.
var ErrUnavailable = errors.New("epd: display hardware unavailable")

// TransportError wraps a failure at the SPI/GPIO layer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("epd: %s: %v", e.Op, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// PinMap names the control lines wired to the panel controller, using BCM
// GPIO names as understood by periph.io ("GPIO17" and so on).
type PinMap struct {
	Reset string
	DC    string
	CS    string
	Busy  string
}

// DefaultPins matches the Waveshare 2.13" HAT wiring on a Raspberry Pi.
var DefaultPins = PinMap{
	Reset: "GPIO17",
	DC:    "GPIO25",
	CS:    "GPIO8",
	Busy:  "GPIO24",
}

// The panel controller tops out at 4 MHz.
const spiSpeed = 4 * physic.MegaHertz

// spidev rejects transfers larger than a page worth of bytes.
const maxTxChunk = 4096

// Transport owns the SPI handle and the three control lines and performs
// raw byte and pin I/O only. It never retries: every failure is surfaced
// to the caller.
type Transport struct {
	port spi.PortCloser
	conn spi.Conn

	rst  gpio.PinOut
	dc   gpio.PinOut
	cs   gpio.PinOut
	busy gpio.PinIn
}

// OpenTransport claims the SPI port at 4 MHz mode 0 and the control pins.
// On any failure the partially acquired resources are released and the
// returned error wraps ErrUnavailable.
func OpenTransport(portName string, pins PinMap) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, unavailable("host init", err)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, unavailable("open spi", err)
	}

	conn, err := port.Connect(spiSpeed, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, unavailable("connect spi", err)
	}

	t := &Transport{port: port, conn: conn}

	out := func(name string, lvl gpio.Level) (gpio.PinOut, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio %s not found", name)
		}
		if err := p.Out(lvl); err != nil {
			return nil, fmt.Errorf("gpio %s: %w", name, err)
		}
		return p, nil
	}

	if t.rst, err = out(pins.Reset, gpio.High); err != nil {
		_ = port.Close()
		return nil, unavailable("claim reset", err)
	}
	if t.dc, err = out(pins.DC, gpio.Low); err != nil {
		_ = port.Close()
		return nil, unavailable("claim dc", err)
	}
	if t.cs, err = out(pins.CS, gpio.High); err != nil {
		_ = port.Close()
		return nil, unavailable("claim cs", err)
	}

	busy := gpioreg.ByName(pins.Busy)
	if busy == nil {
		_ = port.Close()
		return nil, unavailable("claim busy", fmt.Errorf("gpio %s not found", pins.Busy))
	}
	if err := busy.In(gpio.Float, gpio.NoEdge); err != nil {
		_ = port.Close()
		return nil, unavailable("claim busy", err)
	}
	t.busy = busy

	return t, nil
}

func unavailable(op string, err error) error {
	return &TransportError{Op: op, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
}

// WriteCommand sends a single opcode byte with the data/command line low.
// Chip select is released on every exit path.
func (t *Transport) WriteCommand(opcode byte) error {
	if err := t.dc.Out(gpio.Low); err != nil {
		return &TransportError{Op: "dc low", Err: err}
	}
	return t.tx("write command", []byte{opcode})
}

// WriteData sends payload bytes with the data/command line high.
func (t *Transport) WriteData(p []byte) error {
	if err := t.dc.Out(gpio.High); err != nil {
		return &TransportError{Op: "dc high", Err: err}
	}
	for len(p) > 0 {
		n := len(p)
		if n > maxTxChunk {
			n = maxTxChunk
		}
		if err := t.tx("write data", p[:n]); err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (t *Transport) tx(op string, p []byte) error {
	if err := t.cs.Out(gpio.Low); err != nil {
		return &TransportError{Op: op, Err: err}
	}
	err := t.conn.Tx(p, nil)
	if cerr := t.cs.Out(gpio.High); err == nil {
		err = cerr
	}
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	return nil
}

// ReadBusyLine reports the level of the busy line. The controller drives it
// low while processing; high means idle.
func (t *Transport) ReadBusyLine() bool {
	return t.busy.Read() == gpio.High
}

// SetReset drives the reset line. Pulse timing is the controller's job.
func (t *Transport) SetReset(high bool) error {
	lvl := gpio.Low
	if high {
		lvl = gpio.High
	}
	if err := t.rst.Out(lvl); err != nil {
		return &TransportError{Op: "reset", Err: err}
	}
	return nil
}

// Close releases the SPI handle and drives the reset and data/command lines
// low so the module draws no power. Best effort: all steps run even if an
// earlier one fails, and the first error is returned.
func (t *Transport) Close() error {
	var first error
	keep := func(err error) {
		if first == nil && err != nil {
			first = err
		}
	}
	keep(t.rst.Out(gpio.Low))
	keep(t.dc.Out(gpio.Low))
	keep(t.port.Close())
	if first != nil {
		return &TransportError{Op: "close", Err: first}
	}
	return nil
}

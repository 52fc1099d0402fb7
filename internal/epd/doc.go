// Package epd drives the Waveshare 2.13" V4 black/white e-paper panel
// (UC8151 command family) over SPI plus three GPIO control lines.
//
// The package is split along the hardware seams: Transport owns the raw
// bus and pins, Encode packs a logical frame into controller RAM layout,
// BusyMonitor bounds waits on the busy line, and Controller sequences the
// panel protocol while tracking the display lifecycle. A host without the
// panel attached is a supported mode: opening the transport fails with
// ErrUnavailable and callers are expected to fall back to rendering into
// an image file instead.
package epd

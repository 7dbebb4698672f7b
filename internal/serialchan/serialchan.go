// Package serialchan opens the physical transport parlink's Channel runs
// over: an 8N1 serial port, following spec.md §6's port configuration
// section. Options.RTSCTS only asserts the RTS line; the port is not put
// into RTS/CTS hardware flow-control mode and CTS is not consulted.
package serialchan

import (
	"fmt"

	"go.bug.st/serial"
)

// Options configures the serial port. Zero Baud means 115200.
type Options struct {
	Port     string
	Baud     int
	RTSCTS   bool
	DataBits int
}

const defaultBaud = 115200

// Open opens and configures the named serial port. The returned
// serial.Port satisfies io.ReadWriteCloser and parlink's optional
// inputFlusher/outputFlusher interfaces (ResetInputBuffer /
// ResetOutputBuffer), so it can be wrapped directly by
// parlink.NewChannel.
func Open(opt Options) (serial.Port, error) {
	baud := opt.Baud
	if baud <= 0 {
		baud = defaultBaud
	}
	dataBits := opt.DataBits
	if dataBits <= 0 {
		dataBits = 8
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: dataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(opt.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("serialchan: open %s: %w", opt.Port, err)
	}

	if opt.RTSCTS {
		// go.bug.st/serial has no dedicated hardware-flow-control mode;
		// asserting RTS is the closest it gets to signalling readiness to
		// a peer that watches CTS.
		if err := port.SetRTS(true); err != nil {
			port.Close()
			return nil, fmt.Errorf("serialchan: enable RTS on %s: %w", opt.Port, err)
		}
	}

	return port, nil
}

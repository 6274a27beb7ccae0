// Package transport owns the serial line to the foot controller: line
// configuration (including arbitrary baud rates), timeout-bounded byte I/O
// with retry on interrupted syscalls, and explicit open/close lifecycle.
//
// Linux only. The line is a single-owner resource; Port is not safe for
// concurrent use.
package transport

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Timeout values accepted by Receive and SetTimeout, in milliseconds.
// Negative blocks until the requested length has been read or the device
// signals end-of-data; zero drains whatever is immediately available;
// positive sets a deadline, quantized up to the driver's decisecond timer.
const (
	TimeoutInfinite    = -1
	TimeoutNonBlocking = 0
)

// settings carries the termios fields the port manages. The remaining fields
// of the baseline captured at open time are preserved untouched.
type settings struct {
	iflag  uint32
	cflag  uint32
	vmin   uint8
	vtime  uint8
	ispeed uint32
	ospeed uint32
}

// line is the raw device seam. hostLine implements it over termios ioctls;
// tests substitute scripted fakes.
type line interface {
	getSettings() (settings, error)
	setSettings(settings) error
	read(p []byte) (int, error)
	write(p []byte) (int, error)
	flush() error
	drain() error
	close() error
}

// Port is an exclusively owned serial line.
type Port struct {
	path   string
	logger *zap.Logger
	line   line

	// base is the merged line configuration: captured at Open, replaced by
	// the readback after every successful Configure, and re-pushed whole on
	// timeout changes.
	base   settings
	isOpen bool
}

// Open acquires the serial device at path and captures its current line
// settings as the configuration baseline.
func Open(path string, logger *zap.Logger) (*Port, error) {
	l, err := openLine(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}

	p := &Port{
		path:   path,
		logger: logger.With(zap.String("device", path)),
		line:   l,
		isOpen: true,
	}

	p.base, err = l.getSettings()
	if err != nil {
		l.close()
		return nil, fmt.Errorf("%w: %s: reading line settings: %v", ErrOpen, path, err)
	}

	p.logger.Info("Serial device opened")
	return p, nil
}

// Configure validates and pushes a full line configuration: baud rate, frame
// format code (e.g. "8N1") and hardware flow control. Requested flags are
// merged into the baseline captured at open time. Standard baud rates use
// their fixed codes; any other positive rate is requested exactly through the
// custom-rate path, and the achieved rate is read back afterwards because the
// driver may not honor it exactly. Pending input is flushed on success so
// reads do not start on reconfiguration noise.
func (p *Port) Configure(baud int, format string, flowControl bool) error {
	if !p.isOpen {
		return ErrClosed
	}

	if baud <= 0 {
		return fmt.Errorf("%w: baud rate %d", ErrConfigInvalid, baud)
	}

	frame, err := frameFlags(format)
	if err != nil {
		return err
	}

	cflag := p.base.cflag | unix.CLOCAL | unix.CREAD | frame

	var speed uint32
	if code, ok := standardBauds[baud]; ok {
		cflag |= code
	} else {
		cflag &^= unix.CBAUD
		cflag |= unix.BOTHER
		speed = uint32(baud)
	}

	if flowControl {
		cflag |= unix.CRTSCTS
	}

	s := p.base
	s.cflag = cflag
	s.iflag = unix.IGNPAR
	s.ispeed = speed
	s.ospeed = speed
	s.vmin = 0
	s.vtime = 0

	if err := p.line.setSettings(s); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigRejected, err)
	}

	// Readback is authoritative: on the custom path the achieved rate may
	// differ from the request.
	p.base, err = p.line.getSettings()
	if err != nil {
		return fmt.Errorf("%w: readback: %v", ErrConfigRejected, err)
	}

	p.Flush()

	p.logger.Info("Serial line configured",
		zap.Int("requested_baud", baud),
		zap.Int("actual_baud", p.ActualBaud()),
		zap.String("format", format),
		zap.Bool("flow_control", flowControl),
	)

	return nil
}

// ActualBaud reports the baud rate the driver achieved, read back after the
// last successful Configure.
func (p *Port) ActualBaud() int {
	return int(p.base.ospeed)
}

// SetTimeout applies a read timeout by re-pushing the full line
// configuration. ms < 0 blocks each read until at least one byte arrives;
// ms == 0 makes reads return immediately with whatever is pending; ms > 0
// bounds each read call by a deadline rounded up to the decisecond.
func (p *Port) SetTimeout(ms int) error {
	if !p.isOpen {
		return ErrClosed
	}

	switch {
	case ms < 0:
		p.base.vmin = 1
		p.base.vtime = 0
	case ms == 0:
		p.base.vmin = 0
		p.base.vtime = 0
	default:
		p.base.vmin = 0
		p.base.vtime = uint8((ms + 99) / 100)
	}

	if err := p.line.setSettings(p.base); err != nil {
		return fmt.Errorf("%w: timeout %dms: %v", ErrConfigRejected, ms, err)
	}

	return nil
}

// Send writes the whole buffer, looping over short writes. Interrupted
// syscalls are retried transparently; any other failure aborts the send.
// A partial delivery is never reported as success.
func (p *Port) Send(buf []byte) error {
	if !p.isOpen {
		return ErrClosed
	}

	for len(buf) > 0 {
		n, err := p.line.write(buf)
		if err != nil {
			if recoverable(err) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
		buf = buf[n:]
	}

	return nil
}

// SendByte writes a single byte.
func (p *Port) SendByte(b byte) error {
	return p.Send([]byte{b})
}

// Receive applies the given timeout and reads until buf is full, the device
// signals end-of-data, or a hard failure occurs. Interrupted syscalls are
// retried without losing accumulated bytes. End-of-data before buf is full is
// success under an infinite timeout and ErrTimeout under a finite one; either
// way the partial count is returned so callers can see what progress was
// made.
func (p *Port) Receive(buf []byte, timeoutMS int) (int, error) {
	if !p.isOpen {
		return 0, ErrClosed
	}

	if err := p.SetTimeout(timeoutMS); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRead, err)
	}

	total := 0
	for total < len(buf) {
		n, err := p.line.read(buf[total:])
		if err != nil {
			if recoverable(err) {
				continue
			}
			return total, fmt.Errorf("%w: %v", ErrRead, err)
		}

		if n == 0 {
			if timeoutMS < 0 {
				return total, nil
			}
			return total, fmt.Errorf("%w: got %d of %d bytes", ErrTimeout, total, len(buf))
		}

		total += n
	}

	return total, nil
}

// ReceiveByte reads a single byte under the given timeout.
func (p *Port) ReceiveByte(timeoutMS int) (byte, error) {
	var buf [1]byte
	_, err := p.Receive(buf[:], timeoutMS)
	return buf[0], err
}

// Flush discards pending input and output. Advisory; callers treat failures
// as housekeeping noise, not fatal.
func (p *Port) Flush() error {
	if !p.isOpen {
		return ErrClosed
	}
	return p.line.flush()
}

// Drain blocks until pending output has been transmitted. Advisory, like
// Flush.
func (p *Port) Drain() error {
	if !p.isOpen {
		return ErrClosed
	}
	return p.line.drain()
}

// Close releases the device. Safe to call more than once; operations after
// Close fail with ErrClosed.
func (p *Port) Close() error {
	if !p.isOpen {
		return nil
	}
	p.isOpen = false

	if err := p.line.close(); err != nil {
		p.logger.Error("Failed to close serial device", zap.Error(err))
		return fmt.Errorf("closing %s: %w", p.path, err)
	}

	p.logger.Info("Serial device closed")
	return nil
}

// recoverable reports whether an I/O error is a transient signal interruption
// that should be retried rather than surfaced.
func recoverable(err error) bool {
	return errors.Is(err, unix.EINTR)
}

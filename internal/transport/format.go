package transport

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// standardBauds maps the discrete baud rates supported by fixed Bxxxx codes.
// Any other positive rate is requested through the BOTHER custom-rate path.
var standardBauds = map[int]uint32{
	300:    unix.B300,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}

// frameFlags translates a 3-character frame format code
// ("<data-bits><parity><stop-bits>", e.g. "8N1") into termios cflag bits.
// Validation happens entirely here; the device is never touched for a
// malformed code.
func frameFlags(format string) (uint32, error) {
	if len(format) != 3 {
		return 0, fmt.Errorf("%w: format %q must be 3 characters", ErrConfigInvalid, format)
	}

	var cflag uint32

	switch format[0] {
	case '5':
		cflag |= unix.CS5
	case '6':
		cflag |= unix.CS6
	case '7':
		cflag |= unix.CS7
	case '8':
		cflag |= unix.CS8
	default:
		return 0, fmt.Errorf("%w: data bits %q", ErrConfigInvalid, format[0])
	}

	switch format[1] {
	case 'N':
		// no parity
	case 'O':
		cflag |= unix.PARENB | unix.PARODD
	case 'E':
		cflag |= unix.PARENB
	default:
		return 0, fmt.Errorf("%w: parity %q", ErrConfigInvalid, format[1])
	}

	switch format[2] {
	case '1':
		// 1 stop bit
	case '2':
		cflag |= unix.CSTOPB
	default:
		return 0, fmt.Errorf("%w: stop bits %q", ErrConfigInvalid, format[2])
	}

	return cflag, nil
}

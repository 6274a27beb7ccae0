package transport

import (
	"golang.org/x/sys/unix"
)

// hostLine is the real serial line backed by a file descriptor. All termios
// traffic goes through the TCGETS2/TCSETS2 ioctls so that BOTHER custom baud
// rates can be requested and the achieved rate read back.
type hostLine struct {
	fd  int
	tio unix.Termios
}

func openLine(path string) (*hostLine, error) {
	// O_NONBLOCK so open does not wait for carrier detect; cleared right
	// after, because VMIN/VTIME are ignored on a non-blocking descriptor.
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}

	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &hostLine{fd: fd}, nil
}

func (l *hostLine) getSettings() (settings, error) {
	tio, err := unix.IoctlGetTermios(l.fd, unix.TCGETS2)
	if err != nil {
		return settings{}, err
	}
	l.tio = *tio

	return settings{
		iflag:  tio.Iflag,
		cflag:  tio.Cflag,
		vmin:   tio.Cc[unix.VMIN],
		vtime:  tio.Cc[unix.VTIME],
		ispeed: tio.Ispeed,
		ospeed: tio.Ospeed,
	}, nil
}

func (l *hostLine) setSettings(s settings) error {
	tio := l.tio
	tio.Iflag = s.iflag
	tio.Cflag = s.cflag
	tio.Cc[unix.VMIN] = s.vmin
	tio.Cc[unix.VTIME] = s.vtime
	tio.Ispeed = s.ispeed
	tio.Ospeed = s.ospeed

	if err := unix.IoctlSetTermios(l.fd, unix.TCSETS2, &tio); err != nil {
		return err
	}
	l.tio = tio

	return nil
}

func (l *hostLine) read(p []byte) (int, error) {
	return unix.Read(l.fd, p)
}

func (l *hostLine) write(p []byte) (int, error) {
	return unix.Write(l.fd, p)
}

func (l *hostLine) flush() error {
	return unix.IoctlSetInt(l.fd, unix.TCFLSH, unix.TCIOFLUSH)
}

func (l *hostLine) drain() error {
	// tcdrain(fd) is TCSBRK with a non-zero argument on Linux.
	return unix.IoctlSetInt(l.fd, unix.TCSBRK, 1)
}

func (l *hostLine) close() error {
	return unix.Close(l.fd)
}

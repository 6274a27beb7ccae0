// Package serial lists serial ports that may have a foot controller behind
// them. Listing only; probing a candidate port is the caller's business.
package serial

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// Scanner enumerates candidate serial ports
type Scanner struct {
	logger   *zap.Logger
	patterns []string
}

// NewScanner creates a serial port scanner. With no patterns, USB-serial
// adapter names are matched, which is how the controller usually shows up.
func NewScanner(logger *zap.Logger, patterns []string) *Scanner {
	if len(patterns) == 0 {
		patterns = defaultPortPatterns()
	}

	return &Scanner{
		logger:   logger.With(zap.String("scanner", "serial")),
		patterns: patterns,
	}
}

// Scan returns the matching serial ports present on the system
func (s *Scanner) Scan() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports: %w", err)
	}

	matched := s.filterPorts(ports)

	s.logger.Debug("Serial scan completed",
		zap.Strings("ports", ports),
		zap.Strings("matched", matched),
	)

	return matched, nil
}

// filterPorts keeps ports whose name contains one of the configured patterns
func (s *Scanner) filterPorts(ports []string) []string {
	var matched []string
	for _, port := range ports {
		for _, pattern := range s.patterns {
			if strings.Contains(port, pattern) {
				matched = append(matched, port)
				break
			}
		}
	}
	return matched
}

// defaultPortPatterns returns the port name fragments of common USB-serial
// adapters
func defaultPortPatterns() []string {
	return []string{"ttyUSB", "ttyACM"}
}

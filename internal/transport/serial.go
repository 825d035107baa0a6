package transport

import (
	"fmt"
	"log/slog"

	"go.bug.st/serial"
)

// OpenSerial opens the co-processor's serial port and starts a link on it.
func OpenSerial(portName string, baud int, logger *slog.Logger, opts ...Option) (*SerialLink, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", portName, err)
	}

	// Some USB bridges hold the radio in reset until DTR/RTS are asserted.
	if err := port.SetDTR(true); err != nil {
		logger.Warn("set DTR", "err", err)
	}
	if err := port.SetRTS(true); err != nil {
		logger.Warn("set RTS", "err", err)
	}

	logger.Info("serial link opened", "port", portName, "baud", baud)
	return NewSerialLink(port, logger, opts...), nil
}

// Ports lists the serial ports present on the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

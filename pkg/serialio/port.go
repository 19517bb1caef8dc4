package serialio

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Port defines the contract for serial port operations. Reads and writes
// may be used from different goroutines; the reader and transmitter never
// share a direction.
type Port interface {
	Open(config Config) error
	Close() error
	Read(buffer []byte) (int, error)
	Write(data []byte) (int, error)
	IsOpen() bool
	SetReadTimeout(timeout time.Duration) error
}

// ConnState represents the state of the serial connection as seen by the
// reader.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateFailed
)

// String returns the string representation of ConnState.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DevicePort implements Port using go.bug.st/serial.
type DevicePort struct {
	port   serial.Port
	config Config
	isOpen bool
}

// NewDevicePort creates a new closed serial port instance.
func NewDevicePort() *DevicePort {
	return &DevicePort{}
}

// Open opens the serial port with the given configuration.
func (dp *DevicePort) Open(config Config) error {
	if dp.isOpen {
		return fmt.Errorf("serial port is already open")
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.ByteSize,
		StopBits: convertStopBits(config.StopBits),
		Parity:   convertParity(config.Parity),
	}
	port, err := serial.Open(config.Port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", config.Port, err)
	}

	dp.port = port
	dp.config = config
	dp.isOpen = true
	return nil
}

// Close closes the serial port.
func (dp *DevicePort) Close() error {
	if !dp.isOpen {
		return nil
	}
	err := dp.port.Close()
	dp.port = nil
	dp.isOpen = false
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// Read reads data from the serial port. With a read timeout set it returns
// (0, nil) when no data arrived within the timeout.
func (dp *DevicePort) Read(buffer []byte) (int, error) {
	if !dp.isOpen {
		return 0, fmt.Errorf("serial port is not open")
	}
	return dp.port.Read(buffer)
}

// Write writes data to the serial port.
func (dp *DevicePort) Write(data []byte) (int, error) {
	if !dp.isOpen {
		return 0, fmt.Errorf("serial port is not open")
	}
	return dp.port.Write(data)
}

// IsOpen returns true if the serial port is open.
func (dp *DevicePort) IsOpen() bool {
	return dp.isOpen
}

// SetReadTimeout sets the read timeout for the serial port.
func (dp *DevicePort) SetReadTimeout(timeout time.Duration) error {
	if !dp.isOpen {
		return fmt.Errorf("serial port is not open")
	}
	if err := dp.port.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set read timeout: %w", err)
	}
	return nil
}

// ListPorts returns the available serial ports on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get available ports: %w", err)
	}
	return ports, nil
}

// convertStopBits converts the configured stop bits to go.bug.st/serial form.
func convertStopBits(stopBits int) serial.StopBits {
	switch stopBits {
	case 2:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

// convertParity converts the configured parity name to go.bug.st/serial form.
func convertParity(parity string) serial.Parity {
	switch parity {
	case "odd":
		return serial.OddParity
	case "even":
		return serial.EvenParity
	case "mark":
		return serial.MarkParity
	case "space":
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}

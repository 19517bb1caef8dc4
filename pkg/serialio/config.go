// Package serialio provides the serial port access layer: configuration,
// the rate-limited transmit path and the receive loop.
package serialio

import (
	"fmt"
	"time"
)

// Config defines the serial link parameters.
//
// RateLimit is the maximum number of bytes per second written to the link;
// it is converted to a per-byte pacing interval of time.Second/RateLimit.
// A value of 0, or a value above the baud rate (which could never be the
// bottleneck), disables pacing.
type Config struct {
	Port       string `mapstructure:"port"`
	BaudRate   int    `mapstructure:"baudrate"`
	ByteSize   int    `mapstructure:"bytesize"`
	Parity     string `mapstructure:"parity"`
	StopBits   int    `mapstructure:"stopbits"`
	RateLimit  int    `mapstructure:"ratelimit"`
	Terminator string `mapstructure:"terminator"`
}

var validBaudRates = []int{
	1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600,
}

var validParities = []string{"none", "odd", "even", "mark", "space"}

// Validate checks if the serial configuration is valid.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}

	validBaud := false
	for _, rate := range validBaudRates {
		if c.BaudRate == rate {
			validBaud = true
			break
		}
	}
	if !validBaud {
		return fmt.Errorf("invalid baud rate: %d", c.BaudRate)
	}

	if c.ByteSize < 5 || c.ByteSize > 8 {
		return fmt.Errorf("byte size must be between 5 and 8, got: %d", c.ByteSize)
	}

	if c.StopBits < 1 || c.StopBits > 2 {
		return fmt.Errorf("stop bits must be 1 or 2, got: %d", c.StopBits)
	}

	validParity := false
	for _, p := range validParities {
		if c.Parity == p {
			validParity = true
			break
		}
	}
	if !validParity {
		return fmt.Errorf("invalid parity: %s", c.Parity)
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}

	return nil
}

// Interval returns the pacing interval between transmitted bytes, or 0 when
// rate limiting is disabled.
func (c Config) Interval() time.Duration {
	if c.RateLimit <= 0 || c.RateLimit > c.BaudRate {
		return 0
	}
	return time.Second / time.Duration(c.RateLimit)
}

// LineTerminator returns the configured terminator appended to submitted
// commands, defaulting to "\n".
func (c Config) LineTerminator() string {
	if c.Terminator == "" {
		return "\n"
	}
	return c.Terminator
}

// DefaultConfig returns the default serial configuration.
func DefaultConfig() Config {
	return Config{
		Port:      "/dev/ttyUSB0",
		BaudRate:  115200,
		ByteSize:  8,
		Parity:    "none",
		StopBits:  1,
		RateLimit: 100000,
	}
}

// RetryConfig defines the backoff behavior for transient read failures.
type RetryConfig struct {
	MaxRetries    int
	RetryInterval time.Duration
	BackoffFactor float64
	MaxInterval   time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		RetryInterval: time.Second,
		BackoffFactor: 2.0,
		MaxInterval:   time.Second * 10,
	}
}

// Validate checks if the retry configuration is valid.
func (r RetryConfig) Validate() error {
	if r.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if r.RetryInterval < 0 {
		return fmt.Errorf("retry interval cannot be negative")
	}
	if r.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff factor must be >= 1.0")
	}
	if r.MaxInterval < r.RetryInterval {
		return fmt.Errorf("max interval cannot be less than retry interval")
	}
	return nil
}

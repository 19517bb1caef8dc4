package serialio

import (
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"empty port", func(c *Config) { c.Port = "" }, true},
		{"odd baud rate", func(c *Config) { c.BaudRate = 12345 }, true},
		{"byte size too small", func(c *Config) { c.ByteSize = 4 }, true},
		{"byte size too large", func(c *Config) { c.ByteSize = 9 }, true},
		{"bad stop bits", func(c *Config) { c.StopBits = 3 }, true},
		{"bad parity", func(c *Config) { c.Parity = "sometimes" }, true},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }, true},
		{"zero rate limit disables pacing", func(c *Config) { c.RateLimit = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Interval(t *testing.T) {
	tests := []struct {
		name      string
		baudRate  int
		rateLimit int
		expected  time.Duration
	}{
		{"disabled at zero", 115200, 0, 0},
		{"disabled above baud rate", 9600, 10000, 0},
		{"hundred bytes per second", 115200, 100, 10 * time.Millisecond},
		{"full throttle", 115200, 100000, 10 * time.Microsecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{BaudRate: tt.baudRate, RateLimit: tt.rateLimit}
			if got := cfg.Interval(); got != tt.expected {
				t.Errorf("Interval() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConfig_LineTerminator(t *testing.T) {
	if got := (Config{}).LineTerminator(); got != "\n" {
		t.Errorf("LineTerminator() default = %q, want \\n", got)
	}
	if got := (Config{Terminator: "\r\n"}).LineTerminator(); got != "\r\n" {
		t.Errorf("LineTerminator() = %q, want \\r\\n", got)
	}
}

func TestRetryConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  RetryConfig
		wantErr bool
	}{
		{"defaults are valid", DefaultRetryConfig(), false},
		{
			"negative retries",
			RetryConfig{MaxRetries: -1, RetryInterval: time.Second, BackoffFactor: 2, MaxInterval: time.Second},
			true,
		},
		{
			"backoff below one",
			RetryConfig{MaxRetries: 1, RetryInterval: time.Second, BackoffFactor: 0.5, MaxInterval: time.Second},
			true,
		},
		{
			"max below base interval",
			RetryConfig{MaxRetries: 1, RetryInterval: time.Second, BackoffFactor: 2, MaxInterval: time.Millisecond},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

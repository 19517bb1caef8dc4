package serialio

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ReadTimeout bounds each blocking read so the reader observes cancellation
// within one poll interval.
const ReadTimeout = 100 * time.Millisecond

// LineSink receives decoded serial data. *pane.Pane satisfies it.
type LineSink interface {
	AppendText(text string)
}

// Reader is the dedicated receive loop. It blocks on the serial device,
// decodes received bytes and forwards them to the serial pane's sink.
//
// Transient read errors are retried with exponential backoff up to the
// configured retry budget; exhausting it marks the connection Failed and
// stops the reader without touching the rest of the system.
type Reader struct {
	port   Port
	sink   LineSink
	retry  RetryConfig
	logger *slog.Logger
	warnFn func(msg string)

	state atomic.Int32
	wg    sync.WaitGroup
	once  sync.Once
}

// NewReader creates a reader forwarding decoded data from port to sink.
// warnFn, if non-nil, receives user-visible warnings (information pane).
func NewReader(port Port, sink LineSink, retry RetryConfig, logger *slog.Logger, warnFn func(string)) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reader{
		port:   port,
		sink:   sink,
		retry:  retry,
		logger: logger,
		warnFn: warnFn,
	}
	r.state.Store(int32(StateConnected))
	return r
}

// State returns the current connection state.
func (r *Reader) State() ConnState {
	return ConnState(r.state.Load())
}

// Start launches the read loop. It runs until ctx is canceled or the
// connection permanently fails.
func (r *Reader) Start(ctx context.Context) {
	r.once.Do(func() {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.run(ctx)
		}()
	})
}

// Wait blocks until the read loop has exited.
func (r *Reader) Wait() {
	r.wg.Wait()
}

func (r *Reader) run(ctx context.Context) {
	r.logger.Debug("reader started")
	if err := r.port.SetReadTimeout(ReadTimeout); err != nil {
		r.logger.Warn("cannot set read timeout", "err", err)
	}

	buffer := make([]byte, 4096)
	failures := 0
	backoff := r.retry.RetryInterval

	for {
		// Shutdown checkpoint before each read.
		select {
		case <-ctx.Done():
			r.logger.Debug("reader stopped")
			r.state.Store(int32(StateDisconnected))
			return
		default:
		}

		n, err := r.port.Read(buffer)
		if err != nil {
			failures++
			r.logger.Warn("serial read failed", "err", err, "attempt", failures)
			if failures > r.retry.MaxRetries {
				r.state.Store(int32(StateFailed))
				r.warn("serial link lost: " + err.Error())
				r.logger.Error("serial link permanently failed", "err", err)
				return
			}
			r.warn("serial read error, retrying: " + err.Error())
			if !sleepCtx(ctx, backoff) {
				r.state.Store(int32(StateDisconnected))
				return
			}
			backoff = time.Duration(float64(backoff) * r.retry.BackoffFactor)
			if backoff > r.retry.MaxInterval {
				backoff = r.retry.MaxInterval
			}
			continue
		}
		failures = 0
		backoff = r.retry.RetryInterval

		if n == 0 {
			// Read timeout; loop back to the cancellation checkpoint.
			continue
		}
		r.sink.AppendText(decode(buffer[:n]))
	}
}

func (r *Reader) warn(msg string) {
	if r.warnFn != nil {
		r.warnFn(msg)
	}
}

// decode maps raw serial bytes to displayable ASCII text, silently dropping
// everything else the way the devices this tool targets expect.
func decode(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c < 0x7f) {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// sleepCtx sleeps for d unless ctx is canceled first. It reports whether
// the full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

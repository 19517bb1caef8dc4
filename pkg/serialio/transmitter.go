package serialio

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultQueueCapacity bounds the number of pending chunks a producer may
// enqueue before Enqueue blocks.
const DefaultQueueCapacity = 64

// Transmitter is the single writer to the serial link. It paces outbound
// bytes so that consecutive dispatches are spaced by at least the configured
// interval, protecting devices with small hardware receive FIFOs.
//
// Producers enqueue chunks; a single dispatch goroutine writes them one byte
// at a time against an absolute schedule (next = previous dispatch +
// interval), so scheduling jitter never accumulates into drift.
type Transmitter struct {
	w        io.Writer
	interval time.Duration
	queue    chan []byte
	logger   *slog.Logger
	reportFn func(error)

	wg   sync.WaitGroup
	once sync.Once
}

// NewTransmitter creates a transmitter writing to w with the given pacing
// interval (0 disables pacing) and queue capacity. reportFn, if non-nil,
// receives write errors for user-visible reporting.
func NewTransmitter(w io.Writer, interval time.Duration, capacity int, logger *slog.Logger, reportFn func(error)) *Transmitter {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transmitter{
		w:        w,
		interval: interval,
		queue:    make(chan []byte, capacity),
		logger:   logger,
		reportFn: reportFn,
	}
}

// Interval returns the pacing interval.
func (t *Transmitter) Interval() time.Duration { return t.interval }

// Enqueue submits a chunk for paced dispatch. It does not block while the
// queue has room; past capacity it blocks the producer (backpressure) until
// the dispatcher catches up or ctx is canceled. Data is copied, so callers
// may reuse the slice.
func (t *Transmitter) Enqueue(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)
	select {
	case t.queue <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued chunks. Intended for tests and
// shutdown diagnostics.
func (t *Transmitter) Pending() int { return len(t.queue) }

// Start launches the dispatch loop. It runs until ctx is canceled; pending
// chunks are not drained past cancellation, but an in-flight write always
// completes so the link is never left mid-byte.
func (t *Transmitter) Start(ctx context.Context) {
	t.once.Do(func() {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.run(ctx)
		}()
	})
}

// Wait blocks until the dispatch loop has exited.
func (t *Transmitter) Wait() {
	t.wg.Wait()
}

func (t *Transmitter) run(ctx context.Context) {
	t.logger.Debug("transmitter started", "interval", t.interval)
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var next time.Time
	for {
		select {
		case <-ctx.Done():
			t.logger.Debug("transmitter stopped", "pending", len(t.queue))
			return
		case chunk := <-t.queue:
			if t.interval <= 0 {
				if _, err := t.w.Write(chunk); err != nil {
					t.report(err)
				}
				continue
			}
			for _, b := range chunk {
				// Shutdown checkpoint before each dispatch.
				select {
				case <-ctx.Done():
					t.logger.Debug("transmitter stopped mid-chunk")
					return
				default:
				}

				now := time.Now()
				start := now
				if next.After(now) {
					timer.Reset(next.Sub(now))
					select {
					case <-ctx.Done():
						if !timer.Stop() {
							<-timer.C
						}
						return
					case start = <-timer.C:
					}
					if start.Before(next) {
						start = next
					}
				}
				if _, err := t.w.Write([]byte{b}); err != nil {
					t.report(err)
				}
				next = start.Add(t.interval)
			}
		}
	}
}

func (t *Transmitter) report(err error) {
	t.logger.Warn("serial write failed", "err", err)
	if t.reportFn != nil {
		t.reportFn(err)
	}
}

package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

// DefaultTimeout bounds a single send when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// ErrNoRecipient is reported for messages without a To address.
var ErrNoRecipient = errors.New("notify: message has no recipient")

// Observer receives one observation per send attempt.
type Observer interface {
	ObserveNotification(template, status string, seconds float64)
}

// Result is the outcome of one send attempt.
type Result struct {
	Message  EmailMessage
	Err      error
	Duration time.Duration
}

// Dispatcher fans messages out to an EmailSender. Every message is an
// independent attempt bounded by the timeout; failures are logged and
// reported in the results but never returned as an error.
type Dispatcher struct {
	sender   EmailSender
	timeout  time.Duration
	logger   *logging.Logger
	observer Observer
}

// NewDispatcher wires a sender. A nil sender falls back to the stub sender.
func NewDispatcher(sender EmailSender, timeout time.Duration, logger *logging.Logger, observer Observer) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if sender == nil {
		sender = NewStubEmailSender(logger)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{sender: sender, timeout: timeout, logger: logger, observer: observer}
}

// Dispatch sends all messages concurrently and waits for each to finish or
// time out. The request context only contributes values; cancelling it does
// not abort sends already underway.
func (d *Dispatcher) Dispatch(ctx context.Context, msgs ...EmailMessage) []Result {
	base := context.WithoutCancel(ctx)
	results := make([]Result, len(msgs))

	var wg sync.WaitGroup
	for i, msg := range msgs {
		wg.Add(1)
		go func(i int, msg EmailMessage) {
			defer wg.Done()
			results[i] = d.sendOne(base, msg)
		}(i, msg)
	}
	wg.Wait()
	return results
}

func (d *Dispatcher) sendOne(ctx context.Context, msg EmailMessage) Result {
	start := time.Now()
	res := Result{Message: msg}

	if strings.TrimSpace(msg.To) == "" {
		res.Err = ErrNoRecipient
	} else {
		res.Err = d.sendWithTimeout(ctx, msg)
	}
	res.Duration = time.Since(start)

	status := "sent"
	if res.Err != nil {
		status = "failed"
		if errors.Is(res.Err, context.DeadlineExceeded) {
			status = "timeout"
		}
		d.logger.Error("notify: failed to send email",
			"error", res.Err,
			"to", msg.To,
			"subject", msg.Subject,
			"template", msg.Template,
		)
	}
	if d.observer != nil {
		d.observer.ObserveNotification(templateLabel(msg), status, res.Duration.Seconds())
	}
	return res
}

// sendWithTimeout returns once the sender finishes or the deadline passes,
// whichever is first, so a sender that ignores ctx cannot stall the caller.
func (d *Dispatcher) sendWithTimeout(ctx context.Context, msg EmailMessage) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.sender.Send(sendCtx, msg)
	}()

	select {
	case err := <-done:
		return err
	case <-sendCtx.Done():
		return fmt.Errorf("notify: send to %s timed out after %s: %w", msg.To, d.timeout, sendCtx.Err())
	}
}

func templateLabel(msg EmailMessage) string {
	if msg.Template == "" {
		return "unknown"
	}
	return msg.Template
}

// Failed counts results carrying an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

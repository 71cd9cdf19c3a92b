// File: internal/agent/signal.go
package agent

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SignalBridge maps process interrupts onto run-control transitions for the
// duration of a single run. The first interrupt pauses the loop; while
// paused, a newline on the resume reader (stdin by default) resumes it; a
// second interrupt requests a stop that still flows through finalization.
type SignalBridge struct {
	control               *RunControl
	logger                *zap.Logger
	exitOnSecondInterrupt bool

	// resumeReader is where the operator's resume decision comes from.
	// Injectable for tests.
	resumeReader io.Reader

	signals    chan os.Signal
	resume     chan struct{}
	done       chan struct{}
	readerOnce sync.Once
	mu         sync.Mutex
	registered bool
}

// NewSignalBridge wires a bridge to a run-control token. Registration is
// deferred to Register so the bridge's scope matches the run call exactly.
func NewSignalBridge(control *RunControl, exitOnSecondInterrupt bool, logger *zap.Logger) *SignalBridge {
	return &SignalBridge{
		control:               control,
		logger:                logger.Named("signals"),
		exitOnSecondInterrupt: exitOnSecondInterrupt,
		resumeReader:          os.Stdin,
		signals:               make(chan os.Signal, 2),
		resume:                make(chan struct{}, 1),
		done:                  make(chan struct{}),
	}
}

// Register installs the interrupt handler and starts dispatching signals onto
// the control token.
func (b *SignalBridge) Register() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.registered {
		return
	}
	b.registered = true
	signal.Notify(b.signals, os.Interrupt)
	go b.dispatch()
}

// Unregister removes the interrupt handler. Safe to call more than once;
// always called during run finalization.
func (b *SignalBridge) Unregister() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.registered {
		return
	}
	b.registered = false
	signal.Stop(b.signals)
	close(b.done)
}

// dispatch translates interrupts into pause and stop transitions.
func (b *SignalBridge) dispatch() {
	for {
		select {
		case <-b.signals:
			if !b.control.Paused() {
				b.control.Pause()
				b.logger.Info("Interrupt received: pausing. Press [Enter] to resume, or interrupt again to stop.")
				continue
			}
			if b.exitOnSecondInterrupt {
				b.control.Stop()
				b.logger.Info("Second interrupt received: stopping after the current step.")
			}
		case <-b.done:
			return
		}
	}
}

// WaitForResume blocks until the operator resumes the run, a stop is
// requested, or the context ends. A nil return with the stop flag set means
// the caller should fall through to its stop handling.
func (b *SignalBridge) WaitForResume(ctx context.Context) error {
	if !b.control.Paused() {
		return nil
	}
	b.startResumeReader()

	ticker := time.NewTicker(pausePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.resume:
			b.control.Resume()
			b.logger.Info("Resuming run.")
			return nil
		case <-ticker.C:
			if b.control.Stopped() || !b.control.Paused() {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// startResumeReader launches the line reader that turns operator input into
// resume events. Started lazily so runs that never pause never touch stdin.
func (b *SignalBridge) startResumeReader() {
	b.readerOnce.Do(func() {
		go func() {
			scanner := bufio.NewScanner(b.resumeReader)
			for scanner.Scan() {
				select {
				case b.resume <- struct{}{}:
				case <-b.done:
					return
				}
			}
		}()
	})
}

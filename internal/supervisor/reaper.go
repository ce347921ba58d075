package supervisor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	mobysignal "github.com/moby/sys/signal"
	"golang.org/x/sys/unix"
)

// Receives every catchable signal delivered to the supervisor and
// dispatches it: SIGCHLD drains exited children, SIGURG and SIGWINCH
// are swallowed, everything else is forwarded to the container's init
// process. Must be constructed before init starts so no child exit can
// slip past the subscription.
type reaper struct {
	signals chan os.Signal

	// Signal delivery to the init process, replaceable in tests.
	kill func(pid int, sig syscall.Signal) error
}

func newReaper() *reaper {
	sigc := make(chan os.Signal, 2048)
	mobysignal.CatchAll(sigc)
	return &reaper{
		signals: sigc,
		kill: func(pid int, sig syscall.Signal) error {
			return unix.Kill(pid, sig)
		},
	}
}

// Close unsubscribes the reaper from signal delivery.
func (r *reaper) Close() {
	mobysignal.StopCatch(r.signals)
}

// Wait blocks until the init process identified by initPID has been
// reaped and returns its exit status. A process terminated by a signal
// reports the signal number as its status. Children other than init are
// reaped and discarded without ending the wait.
func (r *reaper) Wait(initPID int) (int, error) {
	for sig := range r.signals {
		s, ok := sig.(syscall.Signal)
		if !ok {
			continue
		}
		switch s {
		case unix.SIGCHLD:
			status, done, err := r.reap(initPID)
			if done || err != nil {
				return status, err
			}
		case unix.SIGURG:
			// Used by the Go runtime for goroutine preemption.
		case unix.SIGWINCH:
			// Terminal resizes are not propagated.
		default:
			if err := r.kill(initPID, s); err != nil {
				slog.Warn("failed to forward signal to init", "pid", initPID, "signal", s, "error", err)
			}
		}
	}
	return 0, fmt.Errorf("%w: signal channel closed", ErrSupervise)
}

// reap collects every child that has exited since the last SIGCHLD.
// Reports done once initPID itself has been collected.
func (r *reaper) reap(initPID int) (status int, done bool, err error) {
	for {
		var ws unix.WaitStatus
		pid, werr := unix.Wait4(-1, &ws, unix.WNOHANG, nil)
		switch {
		case errors.Is(werr, unix.EINTR):
			continue
		case errors.Is(werr, unix.ECHILD):
			return 0, false, nil
		case werr != nil:
			return 0, false, fmt.Errorf("%w: wait4: %w", ErrSupervise, werr)
		case pid == 0:
			return 0, false, nil
		case pid == initPID:
			if ws.Exited() {
				return ws.ExitStatus(), true, nil
			}
			if ws.Signaled() {
				return int(ws.Signal()), true, nil
			}
			// Stopped or continued, keep draining.
		default:
			slog.Debug("reaped orphaned child", "pid", pid)
		}
	}
}

package rtspd

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"go.uber.org/zap"

	"github.com/bluenviron/rtspd/internal/task"
	"github.com/bluenviron/rtspd/pkg/liberrors"
)

// Outcome is the way a connection terminated.
type Outcome int

// outcomes.
const (
	// the loop returned without errors.
	OutcomeDone Outcome = iota

	// the client did not send anything within the read timeout.
	OutcomeTimeout

	// the loop returned a liberrors.ErrServerSuccess.
	OutcomeSuccessWithMessage

	// the connection was interrupted.
	OutcomeCancelled

	// the client closed the connection.
	OutcomeClientClose

	// the server closed the connection.
	OutcomeServerClose

	// any other error.
	OutcomeUnclassified
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"

	case OutcomeTimeout:
		return "timeout"

	case OutcomeSuccessWithMessage:
		return "success"

	case OutcomeCancelled:
		return "cancelled"

	case OutcomeClientClose:
		return "client_close"

	case OutcomeServerClose:
		return "server_close"
	}
	return "unclassified"
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isCancelled(err error) bool {
	return errors.As(err, &task.ErrInterrupted{}) ||
		errors.As(err, &liberrors.ErrServerTerminated{})
}

func isClientClose(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.As(err, &liberrors.ErrServerClientClosed{})
}

func isServerClose(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.As(err, &liberrors.ErrServerConnClosed{})
}

// classifyOutcome maps the error returned by the serve loop to an Outcome.
func classifyOutcome(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeDone

	case isTimeout(err):
		return OutcomeTimeout

	case errors.As(err, &liberrors.ErrServerSuccess{}):
		return OutcomeSuccessWithMessage

	case isCancelled(err):
		return OutcomeCancelled

	case isClientClose(err):
		return OutcomeClientClose

	case isServerClose(err):
		return OutcomeServerClose
	}

	return OutcomeUnclassified
}

func logOutcome(l *zap.Logger, o Outcome, err error) {
	switch o {
	case OutcomeDone:
		l.Debug("client finished")

	case OutcomeTimeout:
		l.Debug("client timed out", zap.Error(err))

	case OutcomeSuccessWithMessage:
		var e liberrors.ErrServerSuccess
		errors.As(err, &e)
		l.Debug("client finished", zap.String("message", e.Message))

	case OutcomeCancelled:
		l.Debug("client cancelled", zap.Error(err))

	case OutcomeClientClose:
		l.Warn("client disconnect peer", zap.Error(err))

	case OutcomeServerClose:
		l.Warn("server disconnect", zap.Error(err))

	default:
		l.Error("serve error", zap.Error(err))
	}
}

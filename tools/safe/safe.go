package safe

import (
	"CollabNotes/logger"
	"CollabNotes/tools/errs"

	"go.uber.org/zap"
)

// SafeGo starts a new goroutine that recovers from panic,
// so that panics don't crash the entire program.
func SafeGo(f func()) {
	go func() {
		defer Recover("SafeGo", nil)
		f()
	}()
}

// Recover must be deferred. It logs the panic with its stack and, when onPanic
// is set, hands the converted error to it.
func Recover(where string, onPanic func(error)) {
	r := recover()
	if r == nil {
		return
	}
	err := errs.ErrPanic(r)
	logger.Error("panic recovered", zap.String("where", where), zap.Error(err), zap.Stack("stack"))
	if onPanic != nil {
		onPanic(err)
	}
}

package nvm

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ferrokv/ferrokv/lib/ferrostore"
)

// recordError implements §4.10's error ledger: every failure path funnels
// through here to set the last-error record and, if ErrorHistorySize > 0,
// push onto a bounded ring. Each entry is stamped with a fresh correlation
// ID and mirrored to a structured log line, so a caller building
// operational tooling around the store can join a log line to a later
// LastErrorEx() call.
func (e *Engine) recordError(err *ferrostore.Error, function string) {
	if err.CorrelationID == "" {
		err.CorrelationID = uuid.NewString()
	}

	ctx := ferrostore.ErrorContext{
		Code:          err.Code,
		Tag:           err.Tag,
		TimestampSecs: e.clk.TimeSeconds(),
		Function:      function,
		Msg:           err.Msg,
		CorrelationID: err.CorrelationID,
	}
	e.lastErr = ctx

	if e.opts.ErrorHistorySize > 0 {
		e.errHistory = append(e.errHistory, ctx)
		if len(e.errHistory) > e.opts.ErrorHistorySize {
			e.errHistory = e.errHistory[len(e.errHistory)-e.opts.ErrorHistorySize:]
		}
	}

	logEvent := log.Error()
	if cause := err.Cause; cause != nil {
		logEvent = logEvent.Err(cause)
	}
	logEvent.
		Str("correlation_id", ctx.CorrelationID).
		Str("code", err.Code.String()).
		Str("function", function).
		Uint16("tag", err.Tag).
		Msg(err.Msg)
}

func (e *Engine) lastErrorAsErr() error {
	return ferrostore.NewError(e.lastErr.Code, e.lastErr.Tag, e.lastErr.Msg)
}

func (e *Engine) LastError() ferrostore.ErrCode {
	return e.lastErr.Code
}

func (e *Engine) LastErrorEx() ferrostore.ErrorContext {
	return e.lastErr
}

func (e *Engine) ClearError() {
	e.lastErr = ferrostore.ErrorContext{}
}

func (e *Engine) ErrorString(code ferrostore.ErrCode) string {
	return code.String()
}

func (e *Engine) ErrorHistory() []ferrostore.ErrorContext {
	out := make([]ferrostore.ErrorContext, len(e.errHistory))
	copy(out, e.errHistory)
	return out
}

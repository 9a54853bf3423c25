package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lix74/menubot/core/graph"
	"github.com/lix74/menubot/core/logger"
)

// FormatError reports free text that does not match the open flow's
// pipe-delimited grammar. The session stays open so the user can retry.
type FormatError struct {
	Expected string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid format, expected %s", e.Expected)
}

// UnroutableError reports a callback token no namespace claims.
type UnroutableError struct {
	Token string
}

func (e *UnroutableError) Error() string {
	return fmt.Sprintf("unroutable callback %q", e.Token)
}

// respondErr maps an error to its user-facing reply and decides whether the
// open session survives. Validation and format errors keep the session so
// the user can retry; everything else clears it.
func (e *Engine) respondErr(ctx context.Context, ev *Event, err error) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		return ev.send(fmt.Sprintf("❌ Invalid format. Use:\n`%s`", fe.Expected), nil)
	}
	if ve, ok := graph.AsValidation(err); ok {
		return ev.send("❌ "+ve.Message+".", nil)
	}
	if nf, ok := graph.AsNotFound(err); ok {
		e.sessions.Clear(ev.UserID)
		return ev.send(fmt.Sprintf("❌ %s '%s' not found.", capitalize(nf.Kind), nf.ID), nil)
	}
	var ue *UnroutableError
	if errors.As(err, &ue) {
		logger.Warn(ctx, "engine", "callback.unroutable", slog.String("cb_key", ue.Token))
		return ev.send("❌ Action not found.", nil)
	}
	logger.Error(ctx, "engine", "engine.internal_error",
		slog.Int64("user_id", ev.UserID),
		slog.Any("err", err),
	)
	e.sessions.Clear(ev.UserID)
	return ev.send("❌ Something went wrong. Please try again.", nil)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-('a'-'A')) + s[1:]
	}
	return s
}

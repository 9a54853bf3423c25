package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lix74/menubot/core/graph"
	"github.com/lix74/menubot/core/logger"
	"github.com/lix74/menubot/core/telegram/format"
)

// substitute expands the placeholders supported in message content:
// {param} with the callback parameter, {user_id} and {timestamp}.
func (e *Engine) substitute(content string, ev *Event, params string) string {
	content = strings.ReplaceAll(content, "{param}", params)
	content = strings.ReplaceAll(content, "{user_id}", fmt.Sprintf("%d", ev.UserID))
	content = strings.ReplaceAll(content, "{timestamp}", e.now().Format("2006-01-02 15:04:05"))
	return content
}

// buttonTextFor finds the label of the button carrying this callback token,
// for click tracking. Falls back to "Unknown" for tokens pressed from stale
// keyboards.
func (e *Engine) buttonTextFor(token string) string {
	for _, page := range e.graph.Pages() {
		for _, b := range page.Buttons {
			if b.Action == token {
				return b.Text
			}
		}
	}
	return "Unknown"
}

// executeAction runs a custom action token, the catch-all of the callback
// router. Tokens may carry a parameter after a colon: "id:params".
func (e *Engine) executeAction(ctx context.Context, ev *Event, token string) error {
	text := e.buttonTextFor(token)
	e.users.TrackButtonClick(ev.UserID, text)
	e.stats.ButtonClick(text)
	e.markUsers()
	e.markAnalytics()

	actionID, params, _ := strings.Cut(token, ":")
	action, ok := e.graph.Action(actionID)
	if !ok {
		return &UnroutableError{Token: token}
	}

	logger.Debug(ctx, "engine", "action.executed",
		slog.Int64("user_id", ev.UserID),
		slog.String("action_id", actionID),
		slog.String("route", string(action.Type)),
	)

	switch action.Type {
	case graph.ActionMessage:
		body := format.EscapeMarkdown(e.substitute(action.Content, ev, params))
		return ev.send(body, backRow("back_to_main"))
	case graph.ActionPage:
		target := action.Content
		if params != "" {
			target = params
		}
		return e.showPage(ctx, ev, target)
	case graph.ActionURL:
		url := action.URL
		if url == "" {
			url = action.Content
		}
		if params != "" {
			url += params
		}
		return ev.send(fmt.Sprintf("🔗 [Open Link](%s)", url), backRow("back_to_main"))
	case graph.ActionCommand:
		return e.runActionCommand(ctx, ev, action.Content)
	}
	return &UnroutableError{Token: token}
}

// runActionCommand maps the known built-in command names; anything else is
// echoed back so misconfigured actions are visible to the operator.
func (e *Engine) runActionCommand(ctx context.Context, ev *Event, command string) error {
	switch command {
	case "show_analytics":
		return e.analyticsSummary(ev)
	case "show_users":
		return e.usersPanel(ev)
	}
	logger.Warn(ctx, "engine", "action.unknown_command", slog.String("route", command))
	return ev.send(fmt.Sprintf("Command: %s", command), backRow("back_to_main"))
}

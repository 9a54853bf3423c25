package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lix74/menubot/core/analytics"
	"github.com/lix74/menubot/core/graph"
	"github.com/lix74/menubot/core/logger"
	"github.com/lix74/menubot/core/session"
	"github.com/lix74/menubot/core/users"
)

// ButtonSpec describes one inline button for the transport to render.
type ButtonSpec struct {
	Text     string
	Callback string
}

// Responder is the transport-facing reply surface for a single event.
// The engine never talks to Telegram types directly.
type Responder interface {
	Reply(text string, buttons [][]ButtonSpec) error
	Edit(text string, buttons [][]ButtonSpec) error
}

// Event is one inbound message or button press.
type Event struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	// Callback is true for button presses, which edit in place.
	Callback bool
	Respond  Responder
}

func (ev *Event) send(text string, buttons [][]ButtonSpec) error {
	if ev.Callback {
		return ev.Respond.Edit(text, buttons)
	}
	return ev.Respond.Reply(text, buttons)
}

// Persister schedules debounced writes of the durable stores.
type Persister interface {
	MarkGraph()
	MarkUsers()
	MarkAnalytics()
}

// Engine routes inbound events to graph mutations, navigation and panels.
type Engine struct {
	graph    *graph.Graph
	sessions *session.Manager
	users    *users.Directory
	stats    *analytics.Tracker
	persist  Persister

	sessionTimeout time.Duration

	// volatile per-user view state, like sessions
	view viewState

	now func() time.Time
}

// New wires the engine. persist may be nil in tests.
func New(g *graph.Graph, sm *session.Manager, dir *users.Directory, tr *analytics.Tracker, persist Persister, sessionTimeout time.Duration) *Engine {
	if sessionTimeout <= 0 {
		sessionTimeout = session.DefaultTimeout
	}
	return &Engine{
		graph:          g,
		sessions:       sm,
		users:          dir,
		stats:          tr,
		persist:        persist,
		sessionTimeout: sessionTimeout,
		view:           newViewState(),
		now:            time.Now,
	}
}

func (e *Engine) markGraph() {
	if e.persist != nil {
		e.persist.MarkGraph()
	}
}

func (e *Engine) markUsers() {
	if e.persist != nil {
		e.persist.MarkUsers()
	}
}

func (e *Engine) markAnalytics() {
	if e.persist != nil {
		e.persist.MarkAnalytics()
	}
}

// sanitizeInput strips control characters and caps length, mirroring what
// the graph validators expect to see.
func sanitizeInput(text string) string {
	return logger.SanitizeLimit(text, 4096)
}

// HandleText processes a free-text message: search flag, expired-session
// sweep, open-flow grammar, otherwise navigation to the main page.
func (e *Engine) HandleText(ctx context.Context, ev *Event, text string) error {
	for _, uid := range e.sessions.SweepExpired(e.now(), e.sessionTimeout) {
		logger.Info(ctx, "sessions", "session.expired", slog.Int64("user_id", uid))
	}

	text = sanitizeInput(text)

	if e.view.takeSearching(ev.UserID) {
		return e.searchUser(ctx, ev, text)
	}

	sess, open := e.sessions.Get(ev.UserID)
	if !open {
		return e.showPage(ctx, ev, e.graph.Settings().MainMenuPageID)
	}

	logger.Debug(ctx, "sessions", "session.input",
		slog.Int64("user_id", ev.UserID),
		slog.String("state", string(sess.State)),
	)

	var err error
	switch sess.State {
	case session.CreatingPage:
		err = e.createPageFromText(ev, text)
	case session.EditingPage:
		err = e.editPageFromText(ev, text, sess.Context.PageID)
	case session.CreatingButton:
		err = e.createButtonFromText(ev, text, sess.Context.PageID)
	case session.EditingButton:
		err = e.editButtonFromText(ev, text, sess.Context.ButtonID)
	case session.CreatingAction:
		err = e.createActionFromText(ev, text)
	case session.EditingAction:
		err = e.editActionFromText(ev, text, sess.Context.ActionID)
	case session.EditingWelcome:
		err = e.editWelcomeFromText(ev, text)
	case session.AddingAdmin:
		err = e.addAdminFromText(ev, text)
	default:
		e.sessions.Clear(ev.UserID)
		return ev.send("❌ Invalid state. Use the editor buttons to navigate.", nil)
	}
	if err != nil {
		return e.respondErr(ctx, ev, err)
	}
	return nil
}

// splitFields enforces the exact arity of a pipe-delimited grammar and
// trims each field.
func splitFields(text, expected string, n int) ([]string, error) {
	parts := strings.SplitN(text, "|", n)
	if len(parts) != n {
		return nil, &FormatError{Expected: expected}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

func (e *Engine) createPageFromText(ev *Event, text string) error {
	parts, err := splitFields(text, "PAGE_ID|Title|Content", 3)
	if err != nil {
		return err
	}
	if err := e.graph.CreatePage(parts[0], parts[1], parts[2]); err != nil {
		return err
	}
	e.markGraph()
	e.sessions.Clear(ev.UserID)
	return ev.send(fmt.Sprintf("✅ Page '%s' created!\nID: `%s`", parts[1], parts[0]), nil)
}

func (e *Engine) editPageFromText(ev *Event, text, pageID string) error {
	parts, err := splitFields(text, "NEW_TITLE|NEW_CONTENT", 2)
	if err != nil {
		return err
	}
	if err := e.graph.UpdatePage(pageID, parts[0], parts[1]); err != nil {
		return err
	}
	e.markGraph()
	e.sessions.Clear(ev.UserID)
	return ev.send(fmt.Sprintf("✅ Page '%s' updated!", parts[0]), nil)
}

func (e *Engine) createButtonFromText(ev *Event, text, pageID string) error {
	parts, err := splitFields(text, "BUTTON_TEXT|ACTION", 2)
	if err != nil {
		return err
	}
	if _, err := e.graph.AddButton(pageID, parts[0], parts[1]); err != nil {
		return err
	}
	e.markGraph()
	e.sessions.Clear(ev.UserID)
	return ev.send(fmt.Sprintf("✅ Button '%s' added!", parts[0]), nil)
}

func (e *Engine) editButtonFromText(ev *Event, text, buttonID string) error {
	parts, err := splitFields(text, "NEW_TEXT|NEW_ACTION", 2)
	if err != nil {
		return err
	}
	if err := e.graph.UpdateButton(buttonID, parts[0], parts[1]); err != nil {
		return err
	}
	e.markGraph()
	e.sessions.Clear(ev.UserID)
	return ev.send("✅ Button updated!", nil)
}

func (e *Engine) createActionFromText(ev *Event, text string) error {
	parts, err := splitFields(text, "ACTION_ID|TYPE|CONTENT", 3)
	if err != nil {
		return err
	}
	if err := e.graph.CreateAction(parts[0], graph.ActionType(parts[1]), parts[2]); err != nil {
		return err
	}
	e.markGraph()
	e.sessions.Clear(ev.UserID)
	return ev.send(fmt.Sprintf("✅ Action '%s' created!", parts[0]), nil)
}

func (e *Engine) editActionFromText(ev *Event, text, actionID string) error {
	parts, err := splitFields(text, "NEW_TYPE|NEW_CONTENT", 2)
	if err != nil {
		return err
	}
	if err := e.graph.UpdateAction(actionID, graph.ActionType(parts[0]), parts[1]); err != nil {
		return err
	}
	e.markGraph()
	e.sessions.Clear(ev.UserID)
	return ev.send(fmt.Sprintf("✅ Action '%s' updated!", actionID), nil)
}

func (e *Engine) editWelcomeFromText(ev *Event, text string) error {
	if err := e.graph.SetWelcomeMessage(strings.TrimSpace(text)); err != nil {
		return err
	}
	e.markGraph()
	e.sessions.Clear(ev.UserID)
	return ev.send(fmt.Sprintf("✅ Welcome message updated!\n\nNew message:\n%s", strings.TrimSpace(text)), nil)
}

func (e *Engine) addAdminFromText(ev *Event, text string) error {
	term := strings.TrimSpace(text)
	if term == "" {
		return &graph.ValidationError{Code: graph.CodeInvalidContent, Message: "Empty input"}
	}
	target, found := e.users.Lookup(term)
	if !found {
		return &graph.ValidationError{
			Code:    graph.CodeInvalidContent,
			Message: fmt.Sprintf("User '%s' not found", term),
		}
	}
	if target.Role == users.RoleAdmin {
		return &graph.ValidationError{
			Code:    graph.CodeInvalidContent,
			Message: fmt.Sprintf("User %s is already an administrator", displayUsername(target)),
		}
	}
	e.users.SetRole(target.ID, users.RoleAdmin)
	e.markUsers()
	e.sessions.Clear(ev.UserID)
	return ev.send(fmt.Sprintf(
		"✅ Administrator added!\n\n**User:** %s (ID: %d)\n**Role:** admin",
		displayUsername(target), target.ID,
	), nil)
}

func displayUsername(u users.User) string {
	if u.Username != "" {
		return u.Username
	}
	if name := u.FullName(); name != "" {
		return name
	}
	return "N/A"
}

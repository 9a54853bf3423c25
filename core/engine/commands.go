package engine

import (
	"context"
	"log/slog"

	"github.com/lix74/menubot/core/logger"
	"github.com/lix74/menubot/core/telegram/format"
	"github.com/lix74/menubot/core/users"
)

const helpText = "ℹ️ **Help**\n\n" +
	"/start — open the main menu\n" +
	"/help — this message\n" +
	"/admin — admin panel\n" +
	"/editor — content editor\n" +
	"/analytics — usage analytics\n" +
	"/users — user management\n\n" +
	"Use the inline buttons to navigate between pages."

const bootstrapText = "👑 **Welcome!**\n\n" +
	"You are the first user, so you've been made administrator.\n\n" +
	"Use /editor to configure pages and buttons, and /analytics to follow usage."

// HandleCommand serves the slash commands. Every command registers the
// sender first, so the directory knows about users before any tracking.
func (e *Engine) HandleCommand(ctx context.Context, ev *Event, name string) error {
	if e.users.Register(ev.UserID, ev.Username, ev.FirstName, ev.LastName) {
		logger.Info(ctx, "users", "user.registered", slog.Int64("user_id", ev.UserID))
		e.markUsers()
	}
	e.users.TrackCommand(ev.UserID, name)
	e.markUsers()

	var err error
	switch name {
	case "start":
		err = e.handleStart(ctx, ev)
	case "help":
		err = ev.send(helpText, nil)
	case "admin":
		if !e.users.IsAdmin(ev.UserID) {
			return ev.send("❌ You don't have permission to do this.", nil)
		}
		err = e.adminPanel(ev)
	case "editor":
		if !e.users.IsAdmin(ev.UserID) {
			return ev.send("❌ You don't have permission to do this.", nil)
		}
		err = e.editorPanel(ev)
	case "analytics":
		if !e.users.HasPermission(ev.UserID, users.PermViewAnalytics) {
			return ev.send("❌ You don't have permission to do this.", nil)
		}
		err = e.analyticsSummary(ev)
	case "users":
		if !e.users.HasPermission(ev.UserID, users.PermViewAnalytics) {
			return ev.send("❌ You don't have permission to do this.", nil)
		}
		err = e.usersPanel(ev)
	default:
		err = ev.send("❌ Unknown command. Use /help to see what's available.", nil)
	}
	if err != nil {
		return e.respondErr(ctx, ev, err)
	}
	return nil
}

// handleStart greets the very first user with the bootstrap notice; everyone
// else gets the configured welcome message and the main menu.
func (e *Engine) handleStart(ctx context.Context, ev *Event) error {
	if e.users.BootstrapAdmin(ev.UserID) {
		logger.Info(ctx, "users", "user.bootstrap_admin", slog.Int64("user_id", ev.UserID))
		e.markUsers()
		return ev.Respond.Reply(bootstrapText, nil)
	}
	settings := e.graph.Settings()
	if err := ev.Respond.Reply(format.EscapeMarkdown(settings.WelcomeMessage), nil); err != nil {
		return err
	}
	return e.showPage(ctx, ev, settings.MainMenuPageID)
}

package telegram

import (
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/lix74/menubot/core/engine"
	"github.com/lix74/menubot/core/logger"
	tghelpers "github.com/lix74/menubot/core/telegram/helpers"
)

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// botCommand pairs a slash command with its menu description. hidden keeps
// a command out of the Telegram command menu; it says nothing about who may
// run it, that is the engine's role gate.
type botCommand struct {
	name        string
	description string
	hidden      bool
}

var botCommands = []botCommand{
	{name: "start", description: "Open the main menu"},
	{name: "help", description: "Show usage help"},
	{name: "admin", description: "Admin panel", hidden: true},
	{name: "editor", description: "Content editor", hidden: true},
	{name: "analytics", description: "Usage analytics", hidden: true},
	{name: "users", description: "User management", hidden: true},
}

// MenuCommands lists the commands shown in the Telegram command menu. The
// staff/admin commands stay hidden since the menu is global and most users
// cannot run them; /help still documents every command.
func MenuCommands() []tele.Command {
	var out []tele.Command
	for _, cmd := range botCommands {
		if cmd.hidden {
			continue
		}
		out = append(out, tele.Command{Text: cmd.name, Description: cmd.description})
	}
	return out
}

// BuildRoutes binds the engine to telebot endpoints: one route per slash
// command, one for free text, one for callbacks.
func BuildRoutes(eng *engine.Engine) []Route {
	routes := make([]Route, 0, len(botCommands)+2)
	for _, cmd := range botCommands {
		name := cmd.name
		routes = append(routes, Route{
			Endpoint: "/" + name,
			Handler: func(c tele.Context) error {
				return handleWithSummary(c, "command."+name, func() error {
					ctx := tghelpers.BuildContext(c)
					return eng.HandleCommand(ctx, eventFrom(c, false), name)
				})
			},
		})
	}

	routes = append(routes, Route{
		Endpoint: tele.OnText,
		Handler: func(c tele.Context) error {
			return handleWithSummary(c, "message.text", func() error {
				ctx := tghelpers.BuildContext(c)
				return eng.HandleText(ctx, eventFrom(c, false), c.Text())
			})
		},
	})

	routes = append(routes, Route{
		Endpoint: tele.OnCallback,
		Handler: func(c tele.Context) error {
			cb := c.Callback()
			if cb == nil {
				return nil
			}
			// stop the client-side spinner before doing any work
			_ = c.Respond()
			data := strings.TrimSpace(strings.TrimPrefix(cb.Data, "\f"))
			return handleWithSummary(c, "callback", func() error {
				ctx := tghelpers.BuildContext(c)
				return eng.HandleCallback(ctx, eventFrom(c, true), data)
			}, slog.String("cb_key", logger.SanitizeLimit(data, 128)))
		},
	})

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("count", len(routes)),
	)
	return routes
}

// handleWithSummary runs fn and emits one summary line per handled update.
func handleWithSummary(c tele.Context, handlerName string, fn func() error, extras ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, handlerName)
	err := fn()

	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("handler", handlerName),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	}
	attrs = append(attrs, extras...)
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
	return err
}

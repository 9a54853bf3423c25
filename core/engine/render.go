package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lix74/menubot/core/graph"
	"github.com/lix74/menubot/core/logger"
	"github.com/lix74/menubot/core/telegram/format"
)

// RenderPage produces the markdown body for a page: bold escaped title,
// blank line, escaped content. Escaping is idempotent, so content that was
// stored pre-escaped renders the same.
func RenderPage(page graph.Page) string {
	return fmt.Sprintf("**%s**\n\n%s",
		format.EscapeMarkdown(page.Title),
		format.EscapeMarkdown(page.Content),
	)
}

// pageKeyboard lays out one button per row in stored order, with a back row
// appended on every page except the main menu.
func pageKeyboard(page graph.Page, isMain bool) [][]ButtonSpec {
	var rows [][]ButtonSpec
	for _, b := range page.Buttons {
		rows = append(rows, []ButtonSpec{{Text: b.Text, Callback: b.Action}})
	}
	if !isMain {
		rows = append(rows, []ButtonSpec{{Text: "🔙 Back", Callback: "back_to_main"}})
	}
	return rows
}

// showPage resolves, tracks and renders a page. Missing pages fall back to
// the main menu; an empty graph self-heals and is queued for persistence.
func (e *Engine) showPage(ctx context.Context, ev *Event, pageID string) error {
	page, dirty := e.graph.ResolvePage(pageID)
	if dirty {
		logger.Warn(ctx, "graph", "graph.self_healed", slog.String("page_id", page.ID))
		e.markGraph()
	}

	e.users.TrackPageView(ev.UserID, page.ID)
	e.stats.PageView(page.ID)
	e.markUsers()
	e.markAnalytics()

	logger.Debug(ctx, "engine", "page.shown",
		slog.Int64("user_id", ev.UserID),
		slog.String("page_id", page.ID),
	)
	return ev.send(RenderPage(page), pageKeyboard(page, e.graph.IsMainMenu(page.ID)))
}

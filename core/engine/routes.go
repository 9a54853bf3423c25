package engine

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lix74/menubot/core/graph"
	"github.com/lix74/menubot/core/logger"
	"github.com/lix74/menubot/core/users"
)

// editorPrefixes is the token class claimed by the editor namespace. Checked
// after admin_, analytics_ and users_, so those prefixes win even though
// add_ or set_ would also match here.
var editorPrefixes = []string{
	"editor_", "edit_", "manage_", "add_", "delete_",
	"create_", "list_", "set_", "user_", "change_",
}

func isEditorToken(data string) bool {
	for _, p := range editorPrefixes {
		if strings.HasPrefix(data, p) {
			return true
		}
	}
	return data == "admin_back"
}

// HandleCallback routes a button press. Namespaces are checked in a fixed
// order: admin, analytics, users, the editor token class, page navigation,
// and finally custom actions as the catch-all.
func (e *Engine) HandleCallback(ctx context.Context, ev *Event, data string) error {
	data = strings.TrimSpace(data)
	if data == "" {
		return e.respondErr(ctx, ev, &UnroutableError{Token: data})
	}

	logger.Debug(ctx, "engine", "callback.received",
		slog.Int64("user_id", ev.UserID),
		slog.String("cb_key", data),
	)

	var err error
	switch {
	case strings.HasPrefix(data, "admin_"):
		err = e.handleAdminCallback(ctx, ev, data)
	case strings.HasPrefix(data, "analytics_"):
		err = e.handleAnalyticsCallback(ctx, ev, data)
	case strings.HasPrefix(data, "users_"):
		err = e.handleUsersCallback(ctx, ev, data)
	case isEditorToken(data):
		err = e.handleEditorCallback(ctx, ev, data)
	case strings.HasPrefix(data, "page_"):
		err = e.showPage(ctx, ev, strings.TrimPrefix(data, "page_"))
	case data == "back_to_main":
		err = e.showPage(ctx, ev, e.graph.Settings().MainMenuPageID)
	default:
		err = e.executeAction(ctx, ev, data)
	}
	if err != nil {
		return e.respondErr(ctx, ev, err)
	}
	return nil
}

func (e *Engine) handleAdminCallback(ctx context.Context, ev *Event, data string) error {
	if !e.users.IsAdmin(ev.UserID) {
		return ev.send("❌ You don't have permission to do this.", nil)
	}
	switch data {
	case "admin_editor":
		return e.editorPanel(ev)
	case "admin_analytics":
		return e.analyticsSummary(ev)
	case "admin_users_manage":
		return e.manageAdminsPanel(ev)
	case "admin_settings":
		return e.settingsPanel(ev)
	case "admin_stats":
		return e.statsPanel(ev)
	case "admin_back":
		return e.adminPanel(ev)
	}
	logger.Warn(ctx, "engine", "callback.unknown_admin", slog.String("cb_key", data))
	return ev.send("❌ Unrecognized admin option.", nil)
}

func (e *Engine) handleAnalyticsCallback(ctx context.Context, ev *Event, data string) error {
	if !e.users.HasPermission(ev.UserID, users.PermViewAnalytics) {
		return ev.send("❌ You don't have permission to do this.", nil)
	}
	switch data {
	case "analytics_detailed":
		return e.analyticsDetailed(ev)
	case "analytics_base":
		return e.analyticsSummary(ev)
	}
	logger.Warn(ctx, "engine", "callback.unknown_analytics", slog.String("cb_key", data))
	return ev.send("❌ Unrecognized analytics option.", nil)
}

func (e *Engine) handleUsersCallback(ctx context.Context, ev *Event, data string) error {
	if !e.users.HasPermission(ev.UserID, users.PermViewAnalytics) {
		return ev.send("❌ You don't have permission to do this.", nil)
	}
	switch data {
	case "users_manage":
		return e.usersPanel(ev)
	case "users_list":
		e.view.resetPage(ev.UserID)
		return e.usersList(ev, 0)
	case "users_search":
		e.view.setSearching(ev.UserID)
		return ev.send("🔍 **Search user**\n\nSend an ID, username or name:", nil)
	case "users_page_prev":
		return e.usersList(ev, e.view.movePage(ev.UserID, -1))
	case "users_page_next":
		return e.usersList(ev, e.view.movePage(ev.UserID, 1))
	}
	logger.Warn(ctx, "engine", "callback.unknown_users", slog.String("cb_key", data))
	return ev.send("❌ Unrecognized users option.", nil)
}

// handleEditorCallback serves the editor token class. User-management detail
// tokens land here because of their prefixes and are delegated onward.
func (e *Engine) handleEditorCallback(ctx context.Context, ev *Event, data string) error {
	if !e.users.IsAdmin(ev.UserID) {
		return ev.send("❌ You don't have permission to do this.", nil)
	}

	switch {
	case strings.HasPrefix(data, "user_details_"):
		return e.userDetails(ev, strings.TrimPrefix(data, "user_details_"))
	case strings.HasPrefix(data, "user_activity_"):
		return e.userActivity(ev, strings.TrimPrefix(data, "user_activity_"))
	case strings.HasPrefix(data, "change_role_"):
		return e.rolePicker(ev, strings.TrimPrefix(data, "change_role_"))
	case strings.HasPrefix(data, "set_role_"):
		return e.setRole(ctx, ev, strings.TrimPrefix(data, "set_role_"))
	}

	switch data {
	case "editor_create_page":
		return e.startCreatePage(ev)
	case "editor_edit_page":
		return e.pagePicker(ev, "edit_page_", "✏️ **Edit page**\n\nChoose the page to edit:")
	case "editor_buttons":
		return e.pagePicker(ev, "manage_buttons_", "🔘 **Manage buttons**\n\nChoose a page:")
	case "editor_actions":
		return e.actionManager(ev)
	case "editor_main_menu":
		return e.pagePicker(ev, "set_main_", "🏠 **Main menu**\n\nChoose the new main menu page:")
	case "editor_exit":
		e.sessions.Clear(ev.UserID)
		e.view.resetPage(ev.UserID)
		e.view.clearSearching(ev.UserID)
		return ev.send("✅ Editor closed.", nil)
	case "edit_welcome":
		return e.startEditWelcome(ev)
	case "add_admin":
		return e.startAddAdmin(ev)
	case "create_action":
		return e.startCreateAction(ev)
	case "list_actions":
		return e.actionList(ev)
	}

	switch {
	case strings.HasPrefix(data, "edit_page_"):
		return e.startEditPage(ev, strings.TrimPrefix(data, "edit_page_"))
	case strings.HasPrefix(data, "manage_buttons_"):
		return e.buttonManager(ev, strings.TrimPrefix(data, "manage_buttons_"))
	case strings.HasPrefix(data, "set_main_"):
		return e.setMainMenu(ctx, ev, strings.TrimPrefix(data, "set_main_"))
	case strings.HasPrefix(data, "add_button_"):
		return e.startCreateButton(ev, strings.TrimPrefix(data, "add_button_"))
	case strings.HasPrefix(data, "edit_button_"):
		return e.startEditButton(ev, strings.TrimPrefix(data, "edit_button_"))
	case strings.HasPrefix(data, "delete_button_"):
		return e.deleteButton(ctx, ev, strings.TrimPrefix(data, "delete_button_"))
	case strings.HasPrefix(data, "edit_action_"):
		return e.startEditAction(ev, strings.TrimPrefix(data, "edit_action_"))
	case strings.HasPrefix(data, "delete_action_"):
		return e.deleteAction(ctx, ev, strings.TrimPrefix(data, "delete_action_"))
	}

	logger.Warn(ctx, "engine", "callback.unknown_editor", slog.String("cb_key", data))
	return ev.send("❌ Unrecognized editor option.\n\nUse the editor buttons to navigate.", nil)
}

// setRole parses "<id>_<role>" and applies the new role.
func (e *Engine) setRole(ctx context.Context, ev *Event, rest string) error {
	idPart, role, found := strings.Cut(rest, "_")
	if !found {
		return &UnroutableError{Token: "set_role_" + rest}
	}
	targetID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return &UnroutableError{Token: "set_role_" + rest}
	}
	if !users.ValidRole(role) {
		return ev.send("❌ Invalid role.", nil)
	}
	if !e.users.SetRole(targetID, role) {
		return &graph.NotFoundError{Kind: "user", ID: idPart}
	}
	e.markUsers()
	logger.Info(ctx, "users", "user.role_changed",
		slog.Int64("user_id", targetID),
		slog.String("role", role),
	)
	return e.userDetails(ev, idPart)
}

func (e *Engine) setMainMenu(ctx context.Context, ev *Event, pageID string) error {
	if err := e.graph.SetMainMenu(pageID); err != nil {
		return err
	}
	e.markGraph()
	logger.Info(ctx, "graph", "settings.main_menu_changed", slog.String("page_id", pageID))
	page, _ := e.graph.Page(pageID)
	return ev.send("✅ Main menu set to '"+page.Title+"'.", backRow("admin_editor"))
}

func (e *Engine) deleteButton(ctx context.Context, ev *Event, buttonID string) error {
	pageID, _, found := e.graph.FindButton(buttonID)
	if !found {
		return &graph.NotFoundError{Kind: "button", ID: buttonID}
	}
	if err := e.graph.DeleteButton(buttonID); err != nil {
		return err
	}
	e.markGraph()
	logger.Info(ctx, "graph", "button.deleted",
		slog.String("button_id", buttonID),
		slog.String("page_id", pageID),
	)
	return e.buttonManager(ev, pageID)
}

func (e *Engine) deleteAction(ctx context.Context, ev *Event, actionID string) error {
	if err := e.graph.DeleteAction(actionID); err != nil {
		return err
	}
	e.markGraph()
	logger.Info(ctx, "graph", "action.deleted", slog.String("action_id", actionID))
	return e.actionList(ev)
}

func backRow(callback string) [][]ButtonSpec {
	return [][]ButtonSpec{{{Text: "🔙 Back", Callback: callback}}}
}

package engine

import (
	"fmt"

	"github.com/lix74/menubot/core/graph"
	"github.com/lix74/menubot/core/session"
)

// Each start* handler opens the matching session and prompts for the flow's
// pipe-delimited input. The next free-text message completes the flow.

func (e *Engine) startCreatePage(ev *Event) error {
	e.sessions.Begin(ev.UserID, session.CreatingPage, session.Context{})
	return ev.send(
		"📄 **Create page**\n\nSend the new page as:\n`PAGE_ID|Title|Content`\n\n"+
			"Example:\n`about|About Us|We are a small team.`",
		backRow("admin_editor"),
	)
}

func (e *Engine) startEditPage(ev *Event, pageID string) error {
	page, ok := e.graph.Page(pageID)
	if !ok {
		return &graph.NotFoundError{Kind: "page", ID: pageID}
	}
	e.sessions.Begin(ev.UserID, session.EditingPage, session.Context{PageID: pageID})
	return ev.send(fmt.Sprintf(
		"✏️ **Edit page '%s'**\n\nCurrent title: %s\nCurrent content: %s\n\n"+
			"Send the new version as:\n`NEW_TITLE|NEW_CONTENT`",
		pageID, page.Title, page.Content,
	), backRow("admin_editor"))
}

func (e *Engine) startCreateButton(ev *Event, pageID string) error {
	page, ok := e.graph.Page(pageID)
	if !ok {
		return &graph.NotFoundError{Kind: "page", ID: pageID}
	}
	e.sessions.Begin(ev.UserID, session.CreatingButton, session.Context{PageID: pageID})
	return ev.send(fmt.Sprintf(
		"➕ **Add button to '%s'**\n\nSend the new button as:\n`BUTTON_TEXT|ACTION`\n\n"+
			"ACTION can be `page_<id>`, `back_to_main` or a custom action id.",
		page.Title,
	), backRow("manage_buttons_"+pageID))
}

func (e *Engine) startEditButton(ev *Event, buttonID string) error {
	pageID, button, found := e.graph.FindButton(buttonID)
	if !found {
		return &graph.NotFoundError{Kind: "button", ID: buttonID}
	}
	e.sessions.Begin(ev.UserID, session.EditingButton, session.Context{ButtonID: buttonID})
	return ev.send(fmt.Sprintf(
		"✏️ **Edit button**\n\nCurrent text: %s\nCurrent action: `%s`\n\n"+
			"Send the new version as:\n`NEW_TEXT|NEW_ACTION`",
		button.Text, button.Action,
	), backRow("manage_buttons_"+pageID))
}

func (e *Engine) startCreateAction(ev *Event) error {
	e.sessions.Begin(ev.UserID, session.CreatingAction, session.Context{})
	return ev.send(
		"⚡ **Create action**\n\nSend the new action as:\n`ACTION_ID|TYPE|CONTENT`\n\n"+
			"TYPE is one of `message`, `page`, `url`, `command`.\n"+
			"Example:\n`greet|message|Hello {user_id}!`",
		backRow("editor_actions"),
	)
}

func (e *Engine) startEditAction(ev *Event, actionID string) error {
	action, ok := e.graph.Action(actionID)
	if !ok {
		return &graph.NotFoundError{Kind: "action", ID: actionID}
	}
	e.sessions.Begin(ev.UserID, session.EditingAction, session.Context{ActionID: actionID})
	return ev.send(fmt.Sprintf(
		"✏️ **Edit action '%s'**\n\nCurrent type: `%s`\nCurrent content: %s\n\n"+
			"Send the new version as:\n`NEW_TYPE|NEW_CONTENT`",
		actionID, action.Type, action.Content,
	), backRow("list_actions"))
}

func (e *Engine) startEditWelcome(ev *Event) error {
	e.sessions.Begin(ev.UserID, session.EditingWelcome, session.Context{})
	return ev.send(fmt.Sprintf(
		"💬 **Edit welcome message**\n\nCurrent message:\n%s\n\n"+
			"Send the new message (max 1000 characters):",
		e.graph.Settings().WelcomeMessage,
	), backRow("admin_settings"))
}

func (e *Engine) startAddAdmin(ev *Event) error {
	e.sessions.Begin(ev.UserID, session.AddingAdmin, session.Context{})
	return ev.send(
		"👑 **Add administrator**\n\nSend the user's ID or username:",
		backRow("admin_users_manage"),
	)
}

package engine

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lix74/menubot/core/analytics"
	"github.com/lix74/menubot/core/graph"
	"github.com/lix74/menubot/core/session"
	"github.com/lix74/menubot/core/users"
)

// recorder captures everything the engine sends so tests can assert on the
// last message and keyboard.
type recorder struct {
	texts     []string
	keyboards [][][]ButtonSpec
	edits     int
}

func (r *recorder) Reply(text string, buttons [][]ButtonSpec) error {
	r.texts = append(r.texts, text)
	r.keyboards = append(r.keyboards, buttons)
	return nil
}

func (r *recorder) Edit(text string, buttons [][]ButtonSpec) error {
	r.edits++
	return r.Reply(text, buttons)
}

func (r *recorder) last() string {
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

func (r *recorder) lastKeyboard() [][]ButtonSpec {
	if len(r.keyboards) == 0 {
		return nil
	}
	return r.keyboards[len(r.keyboards)-1]
}

// callbacks flattens the last keyboard into its callback tokens.
func (r *recorder) callbacks() []string {
	var out []string
	for _, row := range r.lastKeyboard() {
		for _, b := range row {
			out = append(out, b.Callback)
		}
	}
	return out
}

type fixture struct {
	engine *Engine
	rec    *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	g := graph.New(graph.DefaultSnapshot(time.Now()))
	e := New(g, session.NewManager(), users.NewDirectory(users.DefaultDocument(time.Now())),
		analytics.NewTracker(analytics.DefaultDocument(time.Now())), nil, time.Hour)
	return &fixture{engine: e, rec: &recorder{}}
}

func (f *fixture) event(userID int64, callback bool) *Event {
	return &Event{
		UserID:    userID,
		Username:  "tester" + strconv.FormatInt(userID, 10),
		FirstName: "Test",
		Callback:  callback,
		Respond:   f.rec,
	}
}

// admin registers the user and makes it administrator.
func (f *fixture) admin(userID int64) {
	f.engine.users.Register(userID, "boss", "Boss", "")
	f.engine.users.SetRole(userID, users.RoleAdmin)
}

func TestCreatePageFlow(t *testing.T) {
	f := newFixture(t)
	f.admin(1)
	ctx := context.Background()
	ev := f.event(1, false)

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "editor_create_page"))
	assert.Equal(t, session.CreatingPage, f.engine.sessions.Current(1))

	require.NoError(t, f.engine.HandleText(ctx, ev, "about|Chi Siamo|Testo della pagina"))
	assert.Contains(t, f.rec.last(), "✅ Page 'Chi Siamo' created!")
	assert.Equal(t, session.Waiting, f.engine.sessions.Current(1))

	page, ok := f.engine.graph.Page("about")
	require.True(t, ok)
	assert.Equal(t, "Chi Siamo", page.Title)
}

func TestCreatePageDuplicateKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.admin(1)
	ctx := context.Background()
	ev := f.event(1, false)

	require.NoError(t, f.engine.graph.CreatePage("about", "About", "Body"))
	require.NoError(t, f.engine.HandleCallback(ctx, ev, "editor_create_page"))
	require.NoError(t, f.engine.HandleText(ctx, ev, "about|Other|Other body"))

	assert.Contains(t, f.rec.last(), "❌")
	assert.Contains(t, f.rec.last(), "already exists")
	assert.Equal(t, session.CreatingPage, f.engine.sessions.Current(1), "user can retry")

	page, _ := f.engine.graph.Page("about")
	assert.Equal(t, "About", page.Title, "failed create leaves the page untouched")
}

func TestCreatePageBadFormatKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.admin(1)
	ctx := context.Background()
	ev := f.event(1, false)

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "editor_create_page"))
	require.NoError(t, f.engine.HandleText(ctx, ev, "no pipes here"))

	assert.Contains(t, f.rec.last(), "❌ Invalid format")
	assert.Contains(t, f.rec.last(), "PAGE_ID|Title|Content")
	assert.Equal(t, session.CreatingPage, f.engine.sessions.Current(1))
}

func TestFreeTextWithoutSessionShowsMainMenu(t *testing.T) {
	f := newFixture(t)
	f.engine.users.Register(7, "u7", "Seven", "")
	ev := f.event(7, false)

	require.NoError(t, f.engine.HandleText(context.Background(), ev, "hello"))
	assert.Contains(t, f.rec.last(), "Main Menu")
}

func TestPageNavigationAndBackRow(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.graph.CreatePage("about", "About", "Body text"))
	_, err := f.engine.graph.AddButton("about", "Contact", "contact")
	require.NoError(t, err)
	f.engine.users.Register(7, "u7", "Seven", "")
	ctx := context.Background()
	ev := f.event(7, true)

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "page_about"))
	assert.Contains(t, f.rec.last(), "About")
	assert.Contains(t, f.rec.callbacks(), "contact")
	assert.Contains(t, f.rec.callbacks(), "back_to_main", "non-main pages get a back row")

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "back_to_main"))
	assert.NotContains(t, f.rec.callbacks(), "back_to_main", "main menu has no back row")
}

func TestMissingPageFallsBackToMainMenu(t *testing.T) {
	f := newFixture(t)
	f.engine.users.Register(7, "u7", "Seven", "")
	ev := f.event(7, true)

	require.NoError(t, f.engine.HandleCallback(context.Background(), ev, "page_ghost"))
	assert.Contains(t, f.rec.last(), "Main Menu")
}

func TestAdminGateDeniesRegularUser(t *testing.T) {
	f := newFixture(t)
	f.engine.users.Register(7, "u7", "Seven", "")
	ctx := context.Background()
	ev := f.event(7, true)

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "admin_editor"))
	assert.Contains(t, f.rec.last(), "❌ You don't have permission")

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "editor_create_page"))
	assert.Contains(t, f.rec.last(), "❌ You don't have permission")
	assert.Equal(t, session.Waiting, f.engine.sessions.Current(7))
}

func TestUnknownCallbackReportsActionNotFound(t *testing.T) {
	f := newFixture(t)
	f.engine.users.Register(7, "u7", "Seven", "")
	ev := f.event(7, true)

	require.NoError(t, f.engine.HandleCallback(context.Background(), ev, "does_not_exist"))
	assert.Equal(t, "❌ Action not found.", f.rec.last())
}

func TestSetRoleCallback(t *testing.T) {
	f := newFixture(t)
	f.admin(1)
	f.engine.users.Register(7, "u7", "Seven", "")
	ctx := context.Background()
	ev := f.event(1, true)

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "set_role_7_staff"))
	assert.Equal(t, users.RoleStaff, f.engine.users.Role(7))
	assert.Contains(t, f.rec.last(), "User details")

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "set_role_7_king"))
	assert.Equal(t, "❌ Invalid role.", f.rec.last())
	assert.Equal(t, users.RoleStaff, f.engine.users.Role(7))
}

func TestUserSearchFlow(t *testing.T) {
	f := newFixture(t)
	f.admin(1)
	f.engine.users.Register(7, "mario", "Mario", "Rossi")
	ctx := context.Background()
	ev := f.event(1, true)

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "users_search"))
	assert.Contains(t, f.rec.last(), "Search user")

	textEv := f.event(1, false)
	require.NoError(t, f.engine.HandleText(ctx, textEv, "mario"))
	assert.Contains(t, f.rec.last(), "User details")
	assert.Contains(t, f.rec.last(), "@mario")
}

func TestEditorExitDropsPendingSearch(t *testing.T) {
	f := newFixture(t)
	f.admin(1)
	f.engine.users.Register(7, "mario", "Mario", "Rossi")
	ctx := context.Background()
	ev := f.event(1, true)

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "users_search"))
	require.NoError(t, f.engine.HandleCallback(ctx, ev, "editor_exit"))

	require.NoError(t, f.engine.HandleText(ctx, f.event(1, false), "mario"))
	assert.Contains(t, f.rec.last(), "Main Menu", "text after exit navigates, it is not a search")
	assert.NotContains(t, f.rec.last(), "User details")
}

func TestUsersListPagination(t *testing.T) {
	f := newFixture(t)
	f.admin(1)
	for i := int64(100); i < 125; i++ {
		f.engine.users.Register(i, "", "User", strconv.FormatInt(i, 10))
	}
	ctx := context.Background()
	ev := f.event(1, true)

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "users_list"))
	assert.Contains(t, f.rec.last(), "page 1/3")
	assert.Contains(t, f.rec.callbacks(), "users_page_next")
	assert.NotContains(t, f.rec.callbacks(), "users_page_prev")

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "users_page_next"))
	assert.Contains(t, f.rec.last(), "page 2/3")
	assert.Contains(t, f.rec.callbacks(), "users_page_prev")

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "users_page_next"))
	require.NoError(t, f.engine.HandleCallback(ctx, ev, "users_page_next"))
	assert.Contains(t, f.rec.last(), "page 3/3", "next clamps at the last page")
}

func TestAddAdminFlow(t *testing.T) {
	f := newFixture(t)
	f.admin(1)
	f.engine.users.Register(7, "mario", "Mario", "")
	ctx := context.Background()
	ev := f.event(1, true)

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "add_admin"))
	textEv := f.event(1, false)
	require.NoError(t, f.engine.HandleText(ctx, textEv, "@mario"))

	assert.Contains(t, f.rec.last(), "✅ Administrator added!")
	assert.True(t, f.engine.users.IsAdmin(7))

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "add_admin"))
	require.NoError(t, f.engine.HandleText(ctx, textEv, "mario"))
	assert.Contains(t, f.rec.last(), "already an administrator")
	assert.Equal(t, session.AddingAdmin, f.engine.sessions.Current(1))
}

func TestExpiredSessionSweptOnText(t *testing.T) {
	f := newFixture(t)
	f.admin(1)
	ctx := context.Background()
	ev := f.event(1, false)

	require.NoError(t, f.engine.HandleCallback(ctx, f.event(1, true), "editor_create_page"))
	f.engine.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	require.NoError(t, f.engine.HandleText(ctx, ev, "about|About|Body"))
	_, ok := f.engine.graph.Page("about")
	assert.False(t, ok, "expired session must not accept flow input")
	assert.Contains(t, f.rec.last(), "Main Menu")
}

func TestStartRegistersAndBootstrapsFirstAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.HandleCommand(ctx, f.event(1, false), "start"))
	assert.Contains(t, f.rec.last(), "first user")
	assert.True(t, f.engine.users.IsAdmin(1))

	require.NoError(t, f.engine.HandleCommand(ctx, f.event(2, false), "start"))
	assert.False(t, f.engine.users.IsAdmin(2), "bootstrap is one-shot")
	assert.Contains(t, f.rec.last(), "Main Menu")
}

func TestCommandPermissions(t *testing.T) {
	f := newFixture(t)
	f.admin(1)
	f.engine.users.Register(7, "u7", "Seven", "")
	ctx := context.Background()

	require.NoError(t, f.engine.HandleCommand(ctx, f.event(7, false), "editor"))
	assert.Contains(t, f.rec.last(), "❌ You don't have permission")

	require.NoError(t, f.engine.HandleCommand(ctx, f.event(1, false), "editor"))
	assert.Contains(t, f.rec.last(), "Content editor")

	f.engine.users.SetRole(7, users.RoleStaff)
	require.NoError(t, f.engine.HandleCommand(ctx, f.event(7, false), "analytics"))
	assert.Contains(t, f.rec.last(), "📊 **Analytics**")
}

func TestDeleteButtonRefreshesManager(t *testing.T) {
	f := newFixture(t)
	f.admin(1)
	require.NoError(t, f.engine.graph.CreatePage("about", "About", "Body"))
	id, err := f.engine.graph.AddButton("about", "Contact", "contact")
	require.NoError(t, err)
	ctx := context.Background()
	ev := f.event(1, true)

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "delete_button_"+id))
	assert.Contains(t, f.rec.last(), "no buttons yet")

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "delete_button_"+id))
	assert.Contains(t, f.rec.last(), "❌ Button '"+id+"' not found.")
}

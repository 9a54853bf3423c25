package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lix74/menubot/core/analytics"
	"github.com/lix74/menubot/core/graph"
	"github.com/lix74/menubot/core/users"
)

const usersPerPage = 10

func (e *Engine) adminPanel(ev *Event) error {
	return ev.send("🛠 **Admin panel**\n\nChoose a section:", [][]ButtonSpec{
		{{Text: "📝 Content editor", Callback: "admin_editor"}},
		{{Text: "📊 Analytics", Callback: "admin_analytics"}},
		{{Text: "👥 Manage admins", Callback: "admin_users_manage"}},
		{{Text: "⚙️ Settings", Callback: "admin_settings"}},
		{{Text: "📈 Statistics", Callback: "admin_stats"}},
	})
}

func (e *Engine) editorPanel(ev *Event) error {
	return ev.send("📝 **Content editor**\n\nWhat do you want to do?", [][]ButtonSpec{
		{{Text: "📄 Create page", Callback: "editor_create_page"}},
		{{Text: "✏️ Edit page", Callback: "editor_edit_page"}},
		{{Text: "🔘 Manage buttons", Callback: "editor_buttons"}},
		{{Text: "⚡ Manage actions", Callback: "editor_actions"}},
		{{Text: "🏠 Set main menu", Callback: "editor_main_menu"}},
		{{Text: "📊 Analytics", Callback: "admin_analytics"}},
		{{Text: "👥 Manage admins", Callback: "admin_users_manage"}},
		{{Text: "❌ Close editor", Callback: "editor_exit"}},
	})
}

// pageTitle resolves a page id to its title, falling back to the raw id when
// the page no longer exists.
func (e *Engine) pageTitle(pageID string) string {
	if page, ok := e.graph.Page(pageID); ok {
		return page.Title
	}
	return pageID
}

func (e *Engine) analyticsSummary(ev *Event) error {
	var b strings.Builder
	b.WriteString("📊 **Analytics**\n\n")
	fmt.Fprintf(&b, "👁 Total page views: %d\n", e.stats.TotalPageViews())
	fmt.Fprintf(&b, "🔘 Total button clicks: %d\n", e.stats.TotalButtonClicks())
	fmt.Fprintf(&b, "👥 Registered users: %d\n", e.users.Count())
	fmt.Fprintf(&b, "🟢 Active last 7 days: %d\n", e.users.ActiveSince(e.now().AddDate(0, 0, -7)))

	if top := e.stats.TopPages(5); len(top) > 0 {
		b.WriteString("\n**Top pages:**\n")
		for i, entry := range top {
			fmt.Fprintf(&b, "%d. %s — %d views\n", i+1, e.pageTitle(entry.Key), entry.Count)
		}
	}
	if top := e.stats.TopButtons(5); len(top) > 0 {
		b.WriteString("\n**Top buttons:**\n")
		for i, entry := range top {
			fmt.Fprintf(&b, "%d. %s — %d clicks\n", i+1, entry.Key, entry.Count)
		}
	}

	return ev.send(b.String(), [][]ButtonSpec{
		{{Text: "📈 Detailed report", Callback: "analytics_detailed"}},
		{{Text: "👥 Users", Callback: "users_manage"}},
		{{Text: "🔙 Back", Callback: "admin_back"}},
	})
}

func (e *Engine) analyticsDetailed(ev *Event) error {
	all := e.users.All()
	total := len(all)

	var b strings.Builder
	b.WriteString("📈 **Detailed report**\n\n")

	b.WriteString("**Roles:**\n")
	counts := e.users.RoleCounts()
	for _, role := range []string{users.RoleAdmin, users.RoleStaff, users.RoleUser} {
		pct := 0.0
		if total > 0 {
			pct = float64(counts[role]) / float64(total) * 100
		}
		fmt.Fprintf(&b, "• %s: %d (%.1f%%)\n", role, counts[role], pct)
	}

	lastSeen := make([]time.Time, 0, total)
	for _, u := range all {
		lastSeen = append(lastSeen, u.LastSeen)
	}
	b.WriteString("\n**Activity, last 7 days:**\n")
	for _, day := range analytics.DailyActivity(lastSeen, e.now(), 7) {
		fmt.Fprintf(&b, "• %s: %d active\n", day.Date, day.Count)
	}

	if top := e.stats.TopButtons(10); len(top) > 0 {
		b.WriteString("\n**Top buttons:**\n")
		for i, entry := range top {
			fmt.Fprintf(&b, "%d. %s — %d clicks\n", i+1, entry.Key, entry.Count)
		}
	}

	return ev.send(b.String(), [][]ButtonSpec{
		{{Text: "📊 Summary", Callback: "analytics_base"}},
		{{Text: "👥 Users", Callback: "users_manage"}},
		{{Text: "🔙 Back", Callback: "admin_back"}},
	})
}

// userLine formats one user for lists: id, display name and role.
func userLine(u users.User) string {
	name := u.FullName()
	if name == "" {
		name = "N/A"
	}
	line := fmt.Sprintf("• `%d` — %s", u.ID, name)
	if u.Username != "" {
		line += " (@" + u.Username + ")"
	}
	return line + " [" + u.Role + "]"
}

func (e *Engine) usersPanel(ev *Event) error {
	var b strings.Builder
	b.WriteString("👥 **Users**\n\n")
	fmt.Fprintf(&b, "Total registered: %d\n", e.users.Count())
	counts := e.users.RoleCounts()
	fmt.Fprintf(&b, "Admins: %d · Staff: %d · Users: %d\n",
		counts[users.RoleAdmin], counts[users.RoleStaff], counts[users.RoleUser])

	if recent := e.users.All(); len(recent) > 0 {
		b.WriteString("\n**Latest registrations:**\n")
		if len(recent) > 5 {
			recent = recent[:5]
		}
		for _, u := range recent {
			b.WriteString(userLine(u) + "\n")
		}
	}

	return ev.send(b.String(), [][]ButtonSpec{
		{{Text: "📋 Full list", Callback: "users_list"}},
		{{Text: "🔍 Search", Callback: "users_search"}},
		{{Text: "📈 Detailed report", Callback: "analytics_detailed"}},
		{{Text: "🔙 Back", Callback: "admin_back"}},
	})
}

func (e *Engine) usersList(ev *Event, pageIdx int) error {
	all := e.users.All()
	if len(all) == 0 {
		return ev.send("👥 No registered users yet.", backRow("users_manage"))
	}

	pages := (len(all) + usersPerPage - 1) / usersPerPage
	if pageIdx >= pages {
		pageIdx = pages - 1
		e.view.setPage(ev.UserID, pageIdx)
	}
	start := pageIdx * usersPerPage
	end := start + usersPerPage
	if end > len(all) {
		end = len(all)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 **User list** (page %d/%d)\n\n", pageIdx+1, pages)
	for _, u := range all[start:end] {
		b.WriteString(userLine(u) + "\n")
	}

	var nav []ButtonSpec
	if pageIdx > 0 {
		nav = append(nav, ButtonSpec{Text: "⬅️ Prev", Callback: "users_page_prev"})
	}
	if pageIdx < pages-1 {
		nav = append(nav, ButtonSpec{Text: "Next ➡️", Callback: "users_page_next"})
	}
	var rows [][]ButtonSpec
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows,
		[]ButtonSpec{{Text: "🔍 Search", Callback: "users_search"}},
		[]ButtonSpec{{Text: "🔙 Back", Callback: "users_manage"}},
	)
	return ev.send(b.String(), rows)
}

// searchUser resolves the text entered after the search prompt. A single
// match opens the detail view directly.
func (e *Engine) searchUser(ctx context.Context, ev *Event, term string) error {
	term = strings.TrimSpace(term)
	if u, found := e.users.Lookup(term); found {
		return e.userDetails(ev, strconv.FormatInt(u.ID, 10))
	}
	matches := e.users.Search(term)
	switch len(matches) {
	case 0:
		return ev.send(fmt.Sprintf("🔍 No user matches '%s'.", term), backRow("users_manage"))
	case 1:
		return e.userDetails(ev, strconv.FormatInt(matches[0].ID, 10))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 **%d users match '%s':**\n\n", len(matches), term)
	shown := matches
	if len(shown) > 10 {
		shown = shown[:10]
	}
	for _, u := range shown {
		b.WriteString(userLine(u) + "\n")
	}

	var rows [][]ButtonSpec
	buttons := matches
	if len(buttons) > 5 {
		buttons = buttons[:5]
	}
	for _, u := range buttons {
		label := u.FullName()
		if label == "" {
			label = strconv.FormatInt(u.ID, 10)
		}
		rows = append(rows, []ButtonSpec{{
			Text:     "👤 " + label,
			Callback: "user_details_" + strconv.FormatInt(u.ID, 10),
		}})
	}
	rows = append(rows, []ButtonSpec{{Text: "🔙 Back", Callback: "users_manage"}})
	return ev.send(b.String(), rows)
}

func (e *Engine) lookupByIDString(idStr string) (users.User, error) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return users.User{}, &graph.NotFoundError{Kind: "user", ID: idStr}
	}
	u, found := e.users.Get(id)
	if !found {
		return users.User{}, &graph.NotFoundError{Kind: "user", ID: idStr}
	}
	return u, nil
}

func (e *Engine) userDetails(ev *Event, idStr string) error {
	u, err := e.lookupByIDString(idStr)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("👤 **User details**\n\n")
	fmt.Fprintf(&b, "ID: `%d`\n", u.ID)
	if u.Username != "" {
		fmt.Fprintf(&b, "Username: @%s\n", u.Username)
	}
	if name := u.FullName(); name != "" {
		fmt.Fprintf(&b, "Name: %s\n", name)
	}
	fmt.Fprintf(&b, "Role: %s\n", u.Role)
	fmt.Fprintf(&b, "Registered: %s\n", u.RegisteredAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Last seen: %s\n", u.LastSeen.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Interactions: %d\n", u.TotalInteractions)

	return ev.send(b.String(), [][]ButtonSpec{
		{{Text: "🎭 Change role", Callback: "change_role_" + idStr}},
		{{Text: "📊 Activity", Callback: "user_activity_" + idStr}},
		{{Text: "🔙 Back", Callback: "users_list"}},
	})
}

func (e *Engine) rolePicker(ev *Event, idStr string) error {
	u, err := e.lookupByIDString(idStr)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("🎭 **Change role**\n\nUser: %s\nCurrent role: %s\n\nChoose the new role:",
		displayUsername(u), u.Role)
	return ev.send(text, [][]ButtonSpec{
		{{Text: "👤 User", Callback: "set_role_" + idStr + "_user"}},
		{{Text: "🧑‍💼 Staff", Callback: "set_role_" + idStr + "_staff"}},
		{{Text: "👑 Admin", Callback: "set_role_" + idStr + "_admin"}},
		{{Text: "🔙 Back", Callback: "user_details_" + idStr}},
	})
}

func (e *Engine) userActivity(ev *Event, idStr string) error {
	u, err := e.lookupByIDString(idStr)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 **Activity of %s**\n\n", displayUsername(u))

	pages := u.PagesVisited
	if len(pages) > 10 {
		pages = pages[len(pages)-10:]
	}
	if len(pages) > 0 {
		b.WriteString("**Pages visited:**\n")
		for _, pageID := range pages {
			fmt.Fprintf(&b, "• %s\n", e.pageTitle(pageID))
		}
	}

	clicks := u.ButtonsClicked
	if len(clicks) > 10 {
		clicks = clicks[len(clicks)-10:]
	}
	if len(clicks) > 0 {
		b.WriteString("\n**Buttons clicked:**\n")
		for _, text := range clicks {
			fmt.Fprintf(&b, "• %s\n", text)
		}
	}
	if len(pages) == 0 && len(clicks) == 0 {
		b.WriteString("No activity recorded yet.")
	}

	return ev.send(b.String(), backRow("user_details_"+idStr))
}

func (e *Engine) settingsPanel(ev *Event) error {
	settings := e.graph.Settings()
	stats := e.graph.Stats()

	var b strings.Builder
	b.WriteString("⚙️ **Settings**\n\n")
	fmt.Fprintf(&b, "Welcome message:\n%s\n\n", settings.WelcomeMessage)
	fmt.Fprintf(&b, "Main menu: `%s`\n", settings.MainMenuPageID)
	fmt.Fprintf(&b, "Pages: %d · Buttons: %d\n", stats.Pages, stats.Buttons)

	return ev.send(b.String(), [][]ButtonSpec{
		{{Text: "💬 Edit welcome message", Callback: "edit_welcome"}},
		{{Text: "🔙 Back", Callback: "admin_back"}},
	})
}

func (e *Engine) statsPanel(ev *Event) error {
	stats := e.graph.Stats()

	var b strings.Builder
	b.WriteString("📈 **Statistics**\n\n")
	fmt.Fprintf(&b, "📄 Pages: %d\n", stats.Pages)
	fmt.Fprintf(&b, "🔘 Buttons: %d\n", stats.Buttons)
	fmt.Fprintf(&b, "⚡ Actions: %d\n", stats.Actions)
	fmt.Fprintf(&b, "👑 Administrators: %d\n", len(e.users.AdminIDs()))
	fmt.Fprintf(&b, "👥 Users: %d\n", e.users.Count())

	return ev.send(b.String(), backRow("admin_back"))
}

func (e *Engine) manageAdminsPanel(ev *Event) error {
	var b strings.Builder
	b.WriteString("👑 **Administrators**\n\n")
	ids := e.users.AdminIDs()
	if len(ids) == 0 {
		b.WriteString("No administrator configured yet.\n")
	}
	for _, id := range ids {
		if u, ok := e.users.Get(id); ok {
			fmt.Fprintf(&b, "• `%d` — %s\n", id, displayUsername(u))
		} else {
			fmt.Fprintf(&b, "• `%d`\n", id)
		}
	}

	return ev.send(b.String(), [][]ButtonSpec{
		{{Text: "➕ Add administrator", Callback: "add_admin"}},
		{{Text: "🔙 Back", Callback: "admin_back"}},
	})
}

// pagePicker lists every page as a button whose callback is prefix+pageID.
func (e *Engine) pagePicker(ev *Event, prefix, title string) error {
	pages := e.graph.Pages()
	if len(pages) == 0 {
		return ev.send("📄 No pages yet. Create one first.", backRow("admin_editor"))
	}
	var rows [][]ButtonSpec
	for _, p := range pages {
		rows = append(rows, []ButtonSpec{{Text: p.Title, Callback: prefix + p.ID}})
	}
	rows = append(rows, []ButtonSpec{{Text: "🔙 Back", Callback: "admin_editor"}})
	return ev.send(title, rows)
}

func (e *Engine) buttonManager(ev *Event, pageID string) error {
	page, ok := e.graph.Page(pageID)
	if !ok {
		return &graph.NotFoundError{Kind: "page", ID: pageID}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔘 **Buttons of '%s'**\n\n", page.Title)
	if len(page.Buttons) == 0 {
		b.WriteString("This page has no buttons yet.")
	} else {
		for _, btn := range page.Buttons {
			fmt.Fprintf(&b, "• %s → `%s`\n", btn.Text, btn.Action)
		}
	}

	rows := [][]ButtonSpec{
		{{Text: "➕ Add button", Callback: "add_button_" + pageID}},
	}
	for _, btn := range page.Buttons {
		rows = append(rows, []ButtonSpec{
			{Text: "✏️ " + btn.Text, Callback: "edit_button_" + btn.ID},
			{Text: "🗑", Callback: "delete_button_" + btn.ID},
		})
	}
	rows = append(rows, []ButtonSpec{{Text: "🔙 Back", Callback: "editor_buttons"}})
	return ev.send(b.String(), rows)
}

func (e *Engine) actionManager(ev *Event) error {
	stats := e.graph.Stats()
	text := fmt.Sprintf("⚡ **Actions**\n\nConfigured actions: %d", stats.Actions)
	return ev.send(text, [][]ButtonSpec{
		{{Text: "➕ Create action", Callback: "create_action"}},
		{{Text: "📋 List actions", Callback: "list_actions"}},
		{{Text: "🔙 Back", Callback: "admin_editor"}},
	})
}

func (e *Engine) actionList(ev *Event) error {
	actions := e.graph.Actions()
	if len(actions) == 0 {
		return ev.send("⚡ No actions yet. Create one first.", backRow("editor_actions"))
	}

	var b strings.Builder
	b.WriteString("📋 **Action list**\n\n")
	for _, a := range actions {
		fmt.Fprintf(&b, "• `%s` [%s]: %s\n", a.ID, a.Type, a.Content)
	}

	var rows [][]ButtonSpec
	for _, a := range actions {
		rows = append(rows, []ButtonSpec{
			{Text: "✏️ " + a.ID, Callback: "edit_action_" + a.ID},
			{Text: "🗑", Callback: "delete_action_" + a.ID},
		})
	}
	rows = append(rows, []ButtonSpec{{Text: "🔙 Back", Callback: "editor_actions"}})
	return ev.send(b.String(), rows)
}

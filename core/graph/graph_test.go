package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	return New(DefaultSnapshot(time.Now()))
}

func TestCreatePageOnce(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.CreatePage("about", "Chi Siamo", "Testo"))

	err := g.CreatePage("about", "Chi Siamo", "Testo")
	require.Error(t, err)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeDuplicateID, ve.Code)

	p, ok := g.Page("about")
	require.True(t, ok)
	assert.Equal(t, "Chi Siamo", p.Title)
	assert.Equal(t, "Testo", p.Content)
	assert.Empty(t, p.Buttons)
}

func TestCreatePageRejectsBadInput(t *testing.T) {
	g := newTestGraph(t)

	err := g.CreatePage("bad id!", "T", "C")
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidID, ve.Code)

	err = g.CreatePage("ok", "", "C")
	ve, ok = AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidContent, ve.Code)

	long := make([]byte, 4097)
	for i := range long {
		long[i] = 'x'
	}
	err = g.CreatePage("ok", "T", string(long))
	ve, ok = AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidContent, ve.Code)

	_, found := g.Page("ok")
	assert.False(t, found, "failed create must not mutate the graph")
}

func TestButtonIDsMonotonic(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.CreatePage("p", "P", "c"))

	id1, err := g.AddButton("p", "One", "back_to_main")
	require.NoError(t, err)
	id2, err := g.AddButton("p", "Two", "back_to_main")
	require.NoError(t, err)
	assert.Equal(t, "btn_1", id1)
	assert.Equal(t, "btn_2", id2)
}

func TestButtonCounterSeededFromSnapshot(t *testing.T) {
	now := time.Now()
	snap := DefaultSnapshot(now)
	snap.Pages["p"] = Page{
		ID:      "p",
		Title:   "P",
		Content: "c",
		Buttons: []Button{
			{ID: "btn_3", Text: "A", Action: "back_to_main", CreatedAt: now},
			{ID: "btn_7", Text: "B", Action: "back_to_main", CreatedAt: now},
			{ID: "legacy", Text: "C", Action: "back_to_main", CreatedAt: now},
		},
		CreatedAt: now,
	}
	g := New(snap)

	id, err := g.AddButton("p", "D", "back_to_main")
	require.NoError(t, err)
	assert.Equal(t, "btn_8", id)
}

func TestAddButtonDuplicateText(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.CreatePage("p", "P", "c"))
	_, err := g.AddButton("p", "Same", "back_to_main")
	require.NoError(t, err)

	_, err = g.AddButton("p", "Same", "other")
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeDuplicateButtonText, ve.Code)

	// Same text on another page is fine.
	require.NoError(t, g.CreatePage("q", "Q", "c"))
	_, err = g.AddButton("q", "Same", "back_to_main")
	assert.NoError(t, err)
}

func TestDeleteButtonTouchesOnlyOwningPage(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.CreatePage("p1", "P1", "c"))
	require.NoError(t, g.CreatePage("p2", "P2", "c"))
	id1, err := g.AddButton("p1", "A", "back_to_main")
	require.NoError(t, err)
	_, err = g.AddButton("p2", "B", "back_to_main")
	require.NoError(t, err)

	require.NoError(t, g.DeleteButton(id1))

	p1, _ := g.Page("p1")
	p2, _ := g.Page("p2")
	assert.Empty(t, p1.Buttons)
	require.Len(t, p2.Buttons, 1)
	assert.Equal(t, "B", p2.Buttons[0].Text)

	err = g.DeleteButton(id1)
	_, ok := AsNotFound(err)
	assert.True(t, ok)
}

func TestUpdateButtonByFullScan(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.CreatePage("p", "P", "c"))
	id, err := g.AddButton("p", "Old", "back_to_main")
	require.NoError(t, err)

	require.NoError(t, g.UpdateButton(id, "New", "page_p"))
	pageID, b, found := g.FindButton(id)
	require.True(t, found)
	assert.Equal(t, "p", pageID)
	assert.Equal(t, "New", b.Text)
	assert.Equal(t, "page_p", b.Action)

	err = g.UpdateButton("btn_999", "X", "y")
	_, ok := AsNotFound(err)
	assert.True(t, ok)
}

func TestActionLifecycle(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.CreateAction("site", ActionURL, "https://example.com"))

	a, ok := g.Action("site")
	require.True(t, ok)
	assert.Equal(t, "https://example.com", a.URL)

	err := g.CreateAction("bad", "sticker", "x")
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidType, ve.Code)

	require.NoError(t, g.UpdateAction("site", ActionMessage, "hello"))
	a, _ = g.Action("site")
	assert.Equal(t, ActionMessage, a.Type)
	assert.Empty(t, a.URL)

	require.NoError(t, g.DeleteAction("site"))
	err = g.DeleteAction("site")
	_, ok = AsNotFound(err)
	assert.True(t, ok)
}

func TestSetMainMenuRequiresExistingPage(t *testing.T) {
	g := newTestGraph(t)
	err := g.SetMainMenu("ghost")
	_, ok := AsNotFound(err)
	require.True(t, ok)

	require.NoError(t, g.CreatePage("home", "Home", "c"))
	require.NoError(t, g.SetMainMenu("home"))
	assert.Equal(t, "home", g.Settings().MainMenuPageID)
	assert.True(t, g.IsMainMenu("home"))
}

func TestResolvePageSelfHeals(t *testing.T) {
	g := New(Snapshot{})

	p, dirty := g.ResolvePage("missing")
	assert.True(t, dirty)
	assert.Equal(t, DefaultMainMenuID, p.ID)
	assert.Equal(t, DefaultPageTitle, p.Title)
	assert.Empty(t, p.Buttons)

	// Second resolve finds the healed page without mutating again.
	p2, dirty := g.ResolvePage("still-missing")
	assert.False(t, dirty)
	assert.Equal(t, p.ID, p2.ID)
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.CreatePage("p", "P", "c"))
	_, err := g.AddButton("p", "A", "back_to_main")
	require.NoError(t, err)
	require.NoError(t, g.CreateAction("act", ActionMessage, "hi"))

	snap := g.Snapshot()
	require.NotNil(t, snap.Buttons)
	assert.Empty(t, snap.Buttons, "top-level buttons key is reserved")

	restored := New(snap)
	p, ok := restored.Page("p")
	require.True(t, ok)
	require.Len(t, p.Buttons, 1)

	id, err := restored.AddButton("p", "B", "x")
	require.NoError(t, err)
	assert.Equal(t, "btn_2", id)
}

func TestStats(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.CreatePage("p", "P", "c"))
	_, err := g.AddButton("p", "A", "back_to_main")
	require.NoError(t, err)
	require.NoError(t, g.CreateAction("a1", ActionMessage, "hi"))

	s := g.Stats()
	assert.Equal(t, 2, s.Pages) // default main + p
	assert.Equal(t, 1, s.Buttons)
	assert.Equal(t, 1, s.Actions)
}

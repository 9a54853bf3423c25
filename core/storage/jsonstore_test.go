package storage

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lix74/menubot/core/analytics"
	"github.com/lix74/menubot/core/graph"
	"github.com/lix74/menubot/core/users"
)

func TestJSONStoreCreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	require.NoError(t, err)

	snap, err := store.LoadGraph()
	require.NoError(t, err)
	require.Contains(t, snap.Pages, graph.DefaultMainMenuID)
	assert.Equal(t, graph.DefaultWelcomeMessage, snap.Settings.WelcomeMessage)
	assert.FileExists(t, filepath.Join(dir, graphFile))

	doc, err := store.LoadUsers()
	require.NoError(t, err)
	assert.Contains(t, doc.Roles, users.RoleAdmin)
	assert.FileExists(t, filepath.Join(dir, usersFile))

	adoc, err := store.LoadAnalytics()
	require.NoError(t, err)
	assert.NotNil(t, adoc.PageViews)
	assert.FileExists(t, filepath.Join(dir, analyticsFile))
}

func TestJSONStoreRoundTrip(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)

	g := graph.New(graph.DefaultSnapshot(time.Now()))
	require.NoError(t, g.CreatePage("about", "About", "Body"))
	_, err = g.AddButton("about", "Back", "back_to_main")
	require.NoError(t, err)
	require.NoError(t, store.SaveGraph(g.Snapshot()))

	snap, err := store.LoadGraph()
	require.NoError(t, err)
	page, ok := snap.Pages["about"]
	require.True(t, ok)
	require.Len(t, page.Buttons, 1)
	assert.Equal(t, "btn_1", page.Buttons[0].ID)

	tr := analytics.NewTracker(analytics.DefaultDocument(time.Now()))
	tr.PageView("about")
	require.NoError(t, store.SaveAnalytics(tr.Snapshot()))
	adoc, err := store.LoadAnalytics()
	require.NoError(t, err)
	assert.Equal(t, 1, adoc.PageViews["about"])
}

func TestJSONStoreRejectsCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, graphFile), []byte("{not json"), 0o644))

	_, err = store.LoadGraph()
	assert.Error(t, err)
}

// recordingStore counts saves per store so coalescing can be observed.
type recordingStore struct {
	mu         sync.Mutex
	graphSaves int
	usersSaves int
	statsSaves int
}

func (r *recordingStore) LoadGraph() (graph.Snapshot, error) { return graph.Snapshot{}, nil }
func (r *recordingStore) SaveGraph(graph.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graphSaves++
	return nil
}
func (r *recordingStore) LoadUsers() (users.Document, error) { return users.Document{}, nil }
func (r *recordingStore) SaveUsers(users.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usersSaves++
	return nil
}
func (r *recordingStore) LoadAnalytics() (analytics.Document, error) {
	return analytics.Document{}, nil
}
func (r *recordingStore) SaveAnalytics(analytics.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statsSaves++
	return nil
}
func (r *recordingStore) Close() error { return nil }

func (r *recordingStore) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.graphSaves, r.usersSaves, r.statsSaves
}

func testSources() Sources {
	return Sources{
		Graph:     func() graph.Snapshot { return graph.Snapshot{} },
		Users:     func() users.Document { return users.Document{} },
		Analytics: func() analytics.Document { return analytics.Document{} },
	}
}

func TestCoalescerBatchesWrites(t *testing.T) {
	rec := &recordingStore{}
	c := NewCoalescer(rec, testSources(), 50*time.Millisecond)

	for i := 0; i < 10; i++ {
		c.MarkGraph()
	}
	c.MarkUsers()

	time.Sleep(150 * time.Millisecond)
	g, u, a := rec.counts()
	assert.Equal(t, 1, g, "ten rapid marks collapse into one write")
	assert.Equal(t, 1, u)
	assert.Equal(t, 0, a)

	c.Close()
}

func TestCoalescerFlushOnClose(t *testing.T) {
	rec := &recordingStore{}
	c := NewCoalescer(rec, testSources(), time.Hour)

	c.MarkGraph()
	c.MarkAnalytics()
	c.Close()

	g, _, a := rec.counts()
	assert.Equal(t, 1, g, "close flushes the pending window")
	assert.Equal(t, 1, a)

	c.Close() // second close is a no-op
	g2, _, _ := rec.counts()
	assert.Equal(t, g, g2)
}

// gatedStore blocks inside SaveGraph until released, so tests can interleave
// marks with an in-flight save.
type gatedStore struct {
	recordingStore
	entered  chan struct{}
	release  chan struct{}
	mu       sync.Mutex
	welcomes []string
}

func (g *gatedStore) SaveGraph(snap graph.Snapshot) error {
	g.entered <- struct{}{}
	<-g.release
	g.mu.Lock()
	g.welcomes = append(g.welcomes, snap.Settings.WelcomeMessage)
	g.mu.Unlock()
	return g.recordingStore.SaveGraph(snap)
}

func (g *gatedStore) saved() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.welcomes...)
}

func TestCoalescerMarkDuringSaveSurvivesClose(t *testing.T) {
	rec := &gatedStore{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}

	var srcMu sync.Mutex
	welcome := "v1"
	src := testSources()
	src.Graph = func() graph.Snapshot {
		srcMu.Lock()
		defer srcMu.Unlock()
		return graph.Snapshot{Settings: graph.Settings{WelcomeMessage: welcome}}
	}

	c := NewCoalescer(rec, src, time.Hour)
	c.MarkGraph()

	done := make(chan struct{})
	go func() {
		c.Flush()
		close(done)
	}()
	<-rec.entered

	// a mutation lands while the first save is still in flight
	srcMu.Lock()
	welcome = "v2"
	srcMu.Unlock()
	c.MarkGraph()

	rec.release <- struct{}{}
	<-done

	go func() {
		<-rec.entered
		rec.release <- struct{}{}
	}()
	c.Close()

	saved := rec.saved()
	require.NotEmpty(t, saved)
	assert.Equal(t, "v2", saved[len(saved)-1], "mutation marked during flush must survive a clean shutdown")
}

func TestCoalescerFlushClearsDirty(t *testing.T) {
	rec := &recordingStore{}
	c := NewCoalescer(rec, testSources(), time.Hour)
	defer c.Close()

	c.MarkUsers()
	c.Flush()
	c.Flush()

	_, u, _ := rec.counts()
	assert.Equal(t, 1, u, "flushed store is no longer dirty")
}

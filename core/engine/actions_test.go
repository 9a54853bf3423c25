package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lix74/menubot/core/graph"
)

func TestMessageActionSubstitutesPlaceholders(t *testing.T) {
	f := newFixture(t)
	f.engine.users.Register(42, "u42", "Forty", "Two")
	require.NoError(t, f.engine.graph.CreateAction("greet", graph.ActionMessage, "Ciao {user_id}"))
	ev := f.event(42, true)

	require.NoError(t, f.engine.HandleCallback(context.Background(), ev, "greet"))
	assert.Equal(t, "Ciao 42", f.rec.last())
	assert.Contains(t, f.rec.callbacks(), "back_to_main")
}

func TestMessageActionTimestampAndParam(t *testing.T) {
	f := newFixture(t)
	f.engine.users.Register(42, "u42", "Forty", "Two")
	require.NoError(t, f.engine.graph.CreateAction("stamp", graph.ActionMessage, "At {timestamp}: {param}"))
	f.engine.now = func() time.Time {
		return time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC)
	}
	ev := f.event(42, true)

	require.NoError(t, f.engine.HandleCallback(context.Background(), ev, "stamp:hello"))
	assert.Equal(t, `At 2026\-08\-23 10:30:00: hello`, f.rec.last())
}

func TestPageActionNavigates(t *testing.T) {
	f := newFixture(t)
	f.engine.users.Register(42, "u42", "Forty", "Two")
	require.NoError(t, f.engine.graph.CreatePage("about", "About", "Body"))
	require.NoError(t, f.engine.graph.CreateAction("goto", graph.ActionPage, "about"))
	ev := f.event(42, true)

	require.NoError(t, f.engine.HandleCallback(context.Background(), ev, "goto"))
	assert.Contains(t, f.rec.last(), "About")
}

func TestURLActionRendersLink(t *testing.T) {
	f := newFixture(t)
	f.engine.users.Register(42, "u42", "Forty", "Two")
	require.NoError(t, f.engine.graph.CreateAction("site", graph.ActionURL, "https://example.com/"))
	ev := f.event(42, true)

	require.NoError(t, f.engine.HandleCallback(context.Background(), ev, "site:docs"))
	assert.Equal(t, "🔗 [Open Link](https://example.com/docs)", f.rec.last())
}

func TestCommandActionDispatch(t *testing.T) {
	f := newFixture(t)
	f.admin(1)
	require.NoError(t, f.engine.graph.CreateAction("report", graph.ActionCommand, "show_analytics"))
	require.NoError(t, f.engine.graph.CreateAction("mystery", graph.ActionCommand, "does_nothing"))
	ctx := context.Background()
	ev := f.event(1, true)

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "report"))
	assert.Contains(t, f.rec.last(), "📊 **Analytics**")

	require.NoError(t, f.engine.HandleCallback(ctx, ev, "mystery"))
	assert.Equal(t, "Command: does_nothing", f.rec.last())
}

func TestActionClickTracking(t *testing.T) {
	f := newFixture(t)
	f.engine.users.Register(42, "u42", "Forty", "Two")
	require.NoError(t, f.engine.graph.CreatePage("about", "About", "Body"))
	_, err := f.engine.graph.AddButton("about", "Say hi", "greet")
	require.NoError(t, err)
	require.NoError(t, f.engine.graph.CreateAction("greet", graph.ActionMessage, "hi"))
	ev := f.event(42, true)

	require.NoError(t, f.engine.HandleCallback(context.Background(), ev, "greet"))
	top := f.engine.stats.TopButtons(1)
	require.Len(t, top, 1)
	assert.Equal(t, "Say hi", top[0].Key)

	u, _ := f.engine.users.Get(42)
	assert.Contains(t, u.ButtonsClicked, "Say hi")
}

func TestStaleTokenTracksUnknown(t *testing.T) {
	f := newFixture(t)
	f.engine.users.Register(42, "u42", "Forty", "Two")
	ev := f.event(42, true)

	require.NoError(t, f.engine.HandleCallback(context.Background(), ev, "gone"))
	assert.Equal(t, "❌ Action not found.", f.rec.last())

	top := f.engine.stats.TopButtons(1)
	require.Len(t, top, 1)
	assert.Equal(t, "Unknown", top[0].Key)
}

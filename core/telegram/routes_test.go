package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenuCommandsHidesStaffCommands(t *testing.T) {
	cmds := MenuCommands()
	require.Len(t, cmds, 2)

	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		assert.False(t, strings.HasPrefix(c.Text, "/"), "setMyCommands wants bare names")
		assert.NotEmpty(t, c.Description)
		names = append(names, c.Text)
	}
	assert.Equal(t, []string{"start", "help"}, names)
}

func TestEveryCommandIsRouted(t *testing.T) {
	routed := make(map[string]bool, len(botCommands))
	for _, cmd := range botCommands {
		routed["/"+cmd.name] = true
	}
	for _, name := range []string{"/start", "/help", "/admin", "/editor", "/analytics", "/users"} {
		assert.True(t, routed[name], "%s must have a route", name)
	}
}

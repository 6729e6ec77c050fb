package autostart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitRunsWatch(t *testing.T) {
	var b strings.Builder
	require.NoError(t, writeUnit(&b, Target{
		ExecPath:  "/usr/local/bin/scriptpack",
		Workspace: "/home/me/mods/My Mod",
		Archive:   "/home/me/Mods/my_mod.ts4script",
	}))

	unit := b.String()
	assert.Contains(t, unit, "[Service]\n")
	assert.Contains(t, unit,
		`ExecStart="/usr/local/bin/scriptpack" watch "/home/me/mods/My Mod" "/home/me/Mods/my_mod.ts4script"`)
}

func TestTaskCommandQuotesPaths(t *testing.T) {
	got := taskCommand(Target{
		ExecPath:  `C:\bin\scriptpack.exe`,
		Workspace: `C:\mods\src`,
		Archive:   `C:\Mods\out.ts4script`,
	})
	assert.Equal(t, `"C:\bin\scriptpack.exe" watch "C:\mods\src" "C:\Mods\out.ts4script"`, got)
}

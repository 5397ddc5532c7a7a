package ruleset_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rwpulley/charkeep/internal/game/ruleset"
	"github.com/rwpulley/charkeep/internal/game/sheet"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadTemplates_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "adventurer.yaml"), `
id: adventurer
name: "Adventurer"
description: "The standard sheet for a starting adventurer."
base_speed: 30
base_ac: 10
grimoire_capacity: 39
xp_table: [0, 2000, 4000, 8000, 16000]
starting_wallet:
  gold: 10
  silver: 25
`)
	templates, err := ruleset.LoadTemplates(dir)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	tpl := templates[0]
	assert.Equal(t, "adventurer", tpl.ID)
	assert.Equal(t, "Adventurer", tpl.Name)
	assert.Equal(t, 30, tpl.BaseSpeed)
	assert.Equal(t, 39, tpl.Capacity())
	assert.Equal(t, []int{0, 2000, 4000, 8000, 16000}, tpl.XPTable)
	assert.Equal(t, 10, tpl.StartingWallet.Gold)
	assert.Equal(t, 25, tpl.StartingWallet.Silver)
}

func TestLoadTemplates_EmptyDir(t *testing.T) {
	templates, err := ruleset.LoadTemplates(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestLoadTemplates_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.yaml"), `{{{ not yaml`)
	_, err := ruleset.LoadTemplates(dir)
	require.Error(t, err)
}

func TestLoadTemplates_RejectsBadXPTable(t *testing.T) {
	tests := []struct {
		name  string
		table string
	}{
		{"missing", ""},
		{"nonzero start", "xp_table: [100, 200]"},
		{"plateau", "xp_table: [0, 2000, 2000]"},
		{"decreasing", "xp_table: [0, 4000, 2000]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "bad.yaml"), fmt.Sprintf(`
id: bad
name: "Bad"
%s
`, tt.table))
			_, err := ruleset.LoadTemplates(dir)
			require.ErrorIs(t, err, ruleset.ErrBadXPTable)
		})
	}
}

func TestTemplate_Apply(t *testing.T) {
	tpl := &ruleset.Template{
		ID:        "adventurer",
		Name:      "Adventurer",
		BaseSpeed: 30,
		BaseAC:    10,
		XPTable:   []int{0, 2000, 4000},
		StartingWallet: ruleset.StartingWallet{
			Gold:   10,
			Silver: 25,
		},
	}
	require.NoError(t, tpl.Validate())

	c := tpl.Apply(sheet.New("Bryn"))
	assert.Equal(t, 30, c.Speed)
	assert.Equal(t, 10, c.ACBase)
	assert.Equal(t, []int{0, 2000, 4000}, c.XPTable)
	assert.Equal(t, 10, c.Wallet.Gold)
	assert.Equal(t, 25, c.Wallet.Silver)
}

func TestTemplate_CapacityFallback(t *testing.T) {
	tpl := &ruleset.Template{}
	assert.Equal(t, sheet.DefaultGrimoireCapacity, tpl.Capacity())
}

func TestTemplateRegistry(t *testing.T) {
	reg := ruleset.NewTemplateRegistry()
	tpl := &ruleset.Template{ID: "adventurer", Name: "Adventurer", XPTable: []int{0, 1}}
	reg.Register(tpl)

	got, ok := reg.Template("adventurer")
	require.True(t, ok)
	assert.Same(t, tpl, got)

	_, ok = reg.Template("nope")
	assert.False(t, ok)
	assert.Equal(t, []string{"adventurer"}, reg.IDs())
}

func TestTemplateRegistry_PanicsOnBadInput(t *testing.T) {
	reg := ruleset.NewTemplateRegistry()
	assert.Panics(t, func() { reg.Register(nil) })
	assert.Panics(t, func() { reg.Register(&ruleset.Template{}) })
}

// Property: every loaded template has a strictly increasing XP table.
func TestLoadTemplates_AllTablesIncrease(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(rt, "n")
		levels := rapid.IntRange(2, 25).Draw(rt, "levels")
		dir := t.TempDir()
		for i := 0; i < n; i++ {
			table := "[0"
			for l := 1; l < levels; l++ {
				table += fmt.Sprintf(", %d", l*1000)
			}
			table += "]"
			content := fmt.Sprintf(`
id: template_%d
name: "Template %d"
xp_table: %s
`, i, i, table)
			fname := filepath.Join(dir, fmt.Sprintf("template_%d.yaml", i))
			if err := os.WriteFile(fname, []byte(content), 0644); err != nil {
				rt.Fatal(err)
			}
		}
		templates, err := ruleset.LoadTemplates(dir)
		if err != nil {
			rt.Fatal(err)
		}
		for _, tpl := range templates {
			for j := 1; j < len(tpl.XPTable); j++ {
				if tpl.XPTable[j] <= tpl.XPTable[j-1] {
					rt.Fatalf("template %s table not increasing at %d", tpl.ID, j)
				}
			}
		}
	})
}

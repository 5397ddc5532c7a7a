// Package ruleset loads table-specific rule content from YAML: sheet
// templates that seed new characters with an XP table, base speed, grimoire
// capacity, and a starting purse.
package ruleset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rwpulley/charkeep/internal/game/sheet"
)

// ErrBadXPTable rejects templates whose XP thresholds are not strictly
// increasing from zero.
var ErrBadXPTable = errors.New("xp table must start at 0 and strictly increase")

// StartingWallet is a template purse, in coins per denomination.
type StartingWallet struct {
	Platinum int `yaml:"platinum"`
	Gold     int `yaml:"gold"`
	Electrum int `yaml:"electrum"`
	Silver   int `yaml:"silver"`
	Copper   int `yaml:"copper"`
}

// Template defines a sheet template for character creation.
//
// Precondition: ID, Name, and XPTable must be non-zero after loading.
type Template struct {
	ID               string         `yaml:"id"`
	Name             string         `yaml:"name"`
	Description      string         `yaml:"description"`
	BaseSpeed        int            `yaml:"base_speed"`
	BaseAC           int            `yaml:"base_ac"`
	GrimoireCapacity int            `yaml:"grimoire_capacity"`
	XPTable          []int          `yaml:"xp_table"`
	StartingWallet   StartingWallet `yaml:"starting_wallet"`
}

// Validate checks the template invariants.
//
// Postcondition: a nil return means the XP table starts at 0 and strictly
// increases.
func (t *Template) Validate() error {
	if t.ID == "" {
		return errors.New("template ID must be non-empty")
	}
	if t.Name == "" {
		return errors.New("template name must be non-empty")
	}
	if len(t.XPTable) == 0 || t.XPTable[0] != 0 {
		return fmt.Errorf("%w: template %q", ErrBadXPTable, t.ID)
	}
	for i := 1; i < len(t.XPTable); i++ {
		if t.XPTable[i] <= t.XPTable[i-1] {
			return fmt.Errorf("%w: template %q entry %d", ErrBadXPTable, t.ID, i)
		}
	}
	return nil
}

// Apply seeds a freshly created character with the template's defaults.
//
// Postcondition: c is unchanged; the returned character carries the
// template's XP table, base speed, base AC, and starting wallet.
func (t *Template) Apply(c sheet.Character) sheet.Character {
	out := c.Clone()
	out.XPTable = append([]int(nil), t.XPTable...)
	if t.BaseSpeed > 0 {
		out.Speed = t.BaseSpeed
	}
	if t.BaseAC > 0 {
		out.ACBase = t.BaseAC
	}
	out.Wallet = sheet.Wallet{
		Platinum: t.StartingWallet.Platinum,
		Gold:     t.StartingWallet.Gold,
		Electrum: t.StartingWallet.Electrum,
		Silver:   t.StartingWallet.Silver,
		Copper:   t.StartingWallet.Copper,
	}
	return sheet.Normalize(out)
}

// Capacity returns the grimoire capacity new grimoires get under this
// template, falling back to the stock default.
func (t *Template) Capacity() int {
	if t.GrimoireCapacity > 0 {
		return t.GrimoireCapacity
	}
	return sheet.DefaultGrimoireCapacity
}

// LoadTemplates reads all .yaml files in dir and parses each as a Template.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed, validated templates (may be empty
// slice) or a non-nil error.
func LoadTemplates(dir string) ([]*Template, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	templates := make([]*Template, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var t Template
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parsing template file %s: %w", path, err)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("validating template file %s: %w", path, err)
		}
		templates = append(templates, &t)
	}
	return templates, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}

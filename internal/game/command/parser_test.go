package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestParse_Empty(t *testing.T) {
	result := Parse("")
	assert.Equal(t, "", result.Command)
	assert.Nil(t, result.Args)
}

func TestParse_SingleWord(t *testing.T) {
	result := Parse("show")
	assert.Equal(t, "show", result.Command)
	assert.Nil(t, result.Args)
	assert.Equal(t, "", result.RawArgs)
}

func TestParse_LowercasesCommandOnly(t *testing.T) {
	result := Parse("OPEN Bryn")
	assert.Equal(t, "open", result.Command)
	assert.Equal(t, "Bryn", result.RawArgs, "argument casing is the player's")
}

func TestParse_WithArgs(t *testing.T) {
	result := Parse("set str 16")
	assert.Equal(t, "set", result.Command)
	assert.Equal(t, []string{"str", "16"}, result.Args)
	assert.Equal(t, "str 16", result.RawArgs)
}

func TestParse_RawArgsKeepsInteriorSpacing(t *testing.T) {
	result := Parse("  open   Bryn   the   Bold  ")
	assert.Equal(t, "open", result.Command)
	assert.Equal(t, []string{"Bryn", "the", "Bold"}, result.Args)
	assert.Equal(t, "Bryn   the   Bold", result.RawArgs)
}

func TestParse_ShortAliasSurvives(t *testing.T) {
	result := Parse("inv")
	assert.Equal(t, "inv", result.Command, "alias resolution belongs to the registry, not the parser")
}

func TestParse_MultiWordItemName(t *testing.T) {
	result := Parse("store Wand of Embers fireball")
	assert.Equal(t, "store", result.Command)
	assert.Equal(t, []string{"Wand", "of", "Embers", "fireball"}, result.Args)
	assert.Equal(t, "Wand of Embers fireball", result.RawArgs)
}

func TestPropertyParseAlwaysLowercasesCommand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[A-Za-z]{1,20}`).Draw(t, "word")
		result := Parse(word)
		for _, c := range result.Command {
			if c >= 'A' && c <= 'Z' {
				t.Fatalf("Parse(%q) left uppercase in command %q", word, result.Command)
			}
		}
	})
}

func TestPropertyParseNonEmptyInputHasCommand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[a-z]{1,10}`).Draw(t, "word")
		if result := Parse(word); result.Command == "" {
			t.Fatalf("non-empty input %q produced empty command", word)
		}
	})
}

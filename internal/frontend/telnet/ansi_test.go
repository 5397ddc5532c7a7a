package telnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestColorize(t *testing.T) {
	result := Colorize(Red, "HP 3/16")
	assert.Equal(t, "\033[31mHP 3/16\033[0m", result)
}

func TestColorf(t *testing.T) {
	result := Colorf(Green, "AC %d", 14)
	assert.Equal(t, "\033[32mAC 14\033[0m", result)
}

func TestStripANSI(t *testing.T) {
	input := "\033[31mencumbered\033[0m speed 20 \033[1m\033[32mAC 14\033[0m"
	assert.Equal(t, "encumbered speed 20 AC 14", StripANSI(input))
}

func TestStripANSI_NoEscapes(t *testing.T) {
	input := "STR 16 (+2)"
	assert.Equal(t, input, StripANSI(input))
}

func TestStripANSI_EmptyString(t *testing.T) {
	assert.Equal(t, "", StripANSI(""))
}

// Property: StripANSI undoes Colorize for any ASCII text and color.
func TestPropertyStripANSIInversesColorize(t *testing.T) {
	colors := []string{Red, Green, Blue, Yellow, Cyan, Magenta, White, Bold, Dim}
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z0-9 ]{0,50}`).Draw(t, "text")
		colorIdx := rapid.IntRange(0, len(colors)-1).Draw(t, "color")
		stripped := StripANSI(Colorize(colors[colorIdx], text))
		assert.Equal(t, text, stripped, "stripping a colorized line must yield the original")
	})
}

// Property: no ESC byte survives StripANSI.
func TestPropertyStripANSINoEscapeInOutput(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z0-9 ]{0,30}`).Draw(t, "text")
		stripped := StripANSI(Bold + Red + text + Reset)
		for _, c := range stripped {
			assert.NotEqual(t, '\033', c, "output must not contain ESC")
		}
	})
}

// Property: stripping never grows the string.
func TestPropertyStripANSIOutputShorterOrEqual(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		assert.LessOrEqual(t, len(StripANSI(text)), len(text))
	})
}

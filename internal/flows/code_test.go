package flows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeSlotsPasteFillsAllAndFocusesLast(t *testing.T) {
	var c CodeSlots

	next, focus := c.PasteFrom(0, "123456")

	assert.Equal(t, CodeSlots{"1", "2", "3", "4", "5", "6"}, next)
	assert.Equal(t, 5, focus)
	assert.True(t, next.Complete())
	assert.Equal(t, "123456", next.String())
	assert.Equal(t, CodeSlots{}, c, "receiver must not change")
}

func TestCodeSlotsPastePartialFocusesFirstEmpty(t *testing.T) {
	var c CodeSlots

	next, focus := c.PasteFrom(1, "12-3")

	assert.Equal(t, CodeSlots{"", "1", "2", "3", "", ""}, next)
	assert.Equal(t, 0, focus)
}

func TestCodeSlotsPasteDiscardsOverflow(t *testing.T) {
	var c CodeSlots

	next, focus := c.PasteFrom(4, "9876")

	assert.Equal(t, CodeSlots{"", "", "", "", "9", "8"}, next)
	assert.Equal(t, 0, focus)
}

func TestCodeSlotsSetDigit(t *testing.T) {
	tests := []struct {
		name      string
		start     CodeSlots
		index     int
		text      string
		want      CodeSlots
		wantFocus int
	}{
		{name: "digit advances", index: 0, text: "7", want: CodeSlots{"7"}, wantFocus: 1},
		{name: "last slot keeps focus", index: 5, text: "3", want: CodeSlots{"", "", "", "", "", "3"}, wantFocus: 5},
		{name: "non digit ignored", index: 2, text: "x", want: CodeSlots{}, wantFocus: 2},
		{name: "empty clears", start: CodeSlots{"1", "2"}, index: 1, text: "", want: CodeSlots{"1"}, wantFocus: 1},
		{name: "multi char pastes", index: 0, text: "4242", want: CodeSlots{"4", "2", "4", "2"}, wantFocus: 4},
		{name: "index clamped", index: 42, text: "1", want: CodeSlots{"", "", "", "", "", "1"}, wantFocus: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, focus := tt.start.SetDigit(tt.index, tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFocus, focus)
		})
	}
}

func TestCodeSlotsErase(t *testing.T) {
	c := CodeSlots{"1", "2", "", "", "", ""}

	next, focus := c.Erase(2)
	assert.Equal(t, c, next, "empty slot is not cleared")
	assert.Equal(t, 1, focus)

	next, focus = c.Erase(1)
	assert.Equal(t, CodeSlots{"1"}, next)
	assert.Equal(t, 1, focus)

	_, focus = CodeSlots{}.Erase(0)
	assert.Equal(t, 0, focus)
}

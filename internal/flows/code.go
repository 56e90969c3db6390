package flows

import "strings"

// CodeLength is the number of digits of an emailed verification code.
const CodeLength = 6

// CodeSlots holds one digit per slot. Empty slots hold "".
//
// All methods are pure: they return the next slots and the index that should
// receive focus, and never modify the receiver.
type CodeSlots [CodeLength]string

// SetDigit writes text into slot i. A single digit fills the slot and moves
// focus to i+1 (the last slot keeps focus). Empty text clears the slot.
// Non-digit input is ignored. Multi-character text is treated as a paste.
func (c CodeSlots) SetDigit(i int, text string) (CodeSlots, int) {
	i = clampSlot(i)
	switch {
	case text == "":
		c[i] = ""
		return c, i
	case len(text) > 1:
		return c.PasteFrom(i, text)
	case !isDigit(text[0]):
		return c, i
	}

	c[i] = text
	if i < CodeLength-1 {
		return c, i + 1
	}
	return c, i
}

// PasteFrom distributes the digits of text left to right starting at slot i.
// Non-digit characters are dropped; digits past the last slot are discarded.
// Focus goes to the first still-empty slot, or the last slot when all are
// filled.
func (c CodeSlots) PasteFrom(i int, text string) (CodeSlots, int) {
	i = clampSlot(i)
	for k := 0; k < len(text) && i < CodeLength; k++ {
		if !isDigit(text[k]) {
			continue
		}
		c[i] = text[k : k+1]
		i++
	}
	return c, c.firstEmpty()
}

// Erase handles backspace on slot i: a filled slot is cleared and keeps
// focus; an empty slot moves focus to i-1.
func (c CodeSlots) Erase(i int) (CodeSlots, int) {
	i = clampSlot(i)
	if c[i] != "" {
		c[i] = ""
		return c, i
	}
	if i > 0 {
		return c, i - 1
	}
	return c, 0
}

// Complete reports whether every slot holds a digit.
func (c CodeSlots) Complete() bool {
	for _, d := range c {
		if d == "" {
			return false
		}
	}
	return true
}

// String joins the slots. Empty slots contribute nothing.
func (c CodeSlots) String() string {
	var b strings.Builder
	b.Grow(CodeLength)
	for _, d := range c {
		b.WriteString(d)
	}
	return b.String()
}

func (c CodeSlots) firstEmpty() int {
	for i, d := range c {
		if d == "" {
			return i
		}
	}
	return CodeLength - 1
}

func clampSlot(i int) int {
	if i < 0 {
		return 0
	}
	if i >= CodeLength {
		return CodeLength - 1
	}
	return i
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

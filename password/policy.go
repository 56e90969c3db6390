package password

import "unicode"

// MinPolicyLength is the minimum length of a new-account password.
const MinPolicyLength = 8

// Strength reports which policy checks a candidate password passes.
// Special characters are tracked for display but not required.
type Strength struct {
	Length     int
	MinLength  bool
	HasUpper   bool
	HasLower   bool
	HasDigit   bool
	HasSpecial bool
}

// Evaluate inspects candidate rune by rune.
func Evaluate(candidate string) Strength {
	var s Strength
	for _, r := range candidate {
		s.Length++
		switch {
		case unicode.IsUpper(r):
			s.HasUpper = true
		case unicode.IsLower(r):
			s.HasLower = true
		case unicode.IsDigit(r):
			s.HasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			s.HasSpecial = true
		}
	}
	s.MinLength = s.Length >= MinPolicyLength
	return s
}

// Satisfied reports whether the minimum policy holds: length, upper case,
// lower case and a digit.
func (s Strength) Satisfied() bool {
	return s.MinLength && s.HasUpper && s.HasLower && s.HasDigit
}

// Package enigma holds the static puzzle data of the four enigmas and the
// checks run against player submissions.
package enigma

// DefaultShift is the Caesar shift used by the first enigma's cipher.
const DefaultShift = 1

// Decode shifts every ASCII letter back by shift, keeping its case.
// Anything else passes through untouched.
func Decode(text string, shift int) string {
	return rotate(text, -shift)
}

// Encode is the inverse of Decode.
func Encode(text string, shift int) string {
	return rotate(text, shift)
}

func rotate(text string, shift int) string {
	shift = ((shift % 26) + 26) % 26
	out := []rune(text)
	for i, r := range out {
		switch {
		case r >= 'A' && r <= 'Z':
			out[i] = 'A' + (r-'A'+rune(shift))%26
		case r >= 'a' && r <= 'z':
			out[i] = 'a' + (r-'a'+rune(shift))%26
		}
	}
	return string(out)
}

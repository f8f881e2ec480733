// Package phonetic implements the phonetic encodings used for blocking and
// name comparison: Soundex (coarse, fixed-length) and Metaphone (finer,
// consonant-skeleton), plus a double-metaphone variant that yields an
// alternate code for ambiguous pronunciations.
package phonetic

import (
	"strings"
	"unicode"
)

// Soundex calculates the 4-character Soundex encoding of a string.
func Soundex(str string) string {
	if len(str) == 0 {
		return ""
	}

	str = strings.ToUpper(str)

	result := string(str[0])
	prevCode := soundexCode(rune(str[0]))

	for i := 1; i < len(str) && len(result) < 4; i++ {
		char := rune(str[i])
		if !unicode.IsLetter(char) {
			continue
		}

		code := soundexCode(char)
		if code != "0" && code != prevCode {
			result += code
		}
		prevCode = code
	}

	for len(result) < 4 {
		result += "0"
	}

	return result
}

func soundexCode(char rune) string {
	switch char {
	case 'B', 'F', 'P', 'V':
		return "1"
	case 'C', 'G', 'J', 'K', 'Q', 'S', 'X', 'Z':
		return "2"
	case 'D', 'T':
		return "3"
	case 'L':
		return "4"
	case 'M', 'N':
		return "5"
	case 'R':
		return "6"
	default:
		return "0"
	}
}

// Metaphone calculates a simplified Metaphone encoding, capped at 6 codes.
func Metaphone(str string) string {
	str = lettersUpper(str)
	if len(str) == 0 {
		return ""
	}

	var metaphone strings.Builder
	prevCode := byte(0)

	for i := 0; i < len(str) && metaphone.Len() < 6; i++ {
		code := metaphoneCode(str[i], i, str)
		if code != 0 && code != prevCode {
			metaphone.WriteByte(code)
			prevCode = code
		}
	}

	return metaphone.String()
}

// DoubleMetaphone returns a primary and an alternate encoding. The alternate
// is empty when the word has no ambiguous consonants; callers emit one key
// per distinct code.
func DoubleMetaphone(str string) (string, string) {
	str = lettersUpper(str)
	if len(str) == 0 {
		return "", ""
	}

	var primary, alternate strings.Builder
	prevPrimary, prevAlternate := byte(0), byte(0)
	ambiguous := false

	for i := 0; i < len(str) && primary.Len() < 6; i++ {
		p := metaphoneCode(str[i], i, str)
		a := alternateCode(str[i], i, str)
		if a == 0 {
			a = p
		} else if a != p {
			ambiguous = true
		}

		if p != 0 && p != prevPrimary {
			primary.WriteByte(p)
			prevPrimary = p
		}
		if a != 0 && a != prevAlternate {
			alternate.WriteByte(a)
			prevAlternate = a
		}
	}

	if !ambiguous || primary.String() == alternate.String() {
		return primary.String(), ""
	}
	return primary.String(), alternate.String()
}

func lettersUpper(str string) string {
	str = strings.ToUpper(str)
	var result strings.Builder
	for _, char := range str {
		if unicode.IsLetter(char) {
			result.WriteRune(char)
		}
	}
	return result.String()
}

func metaphoneCode(char byte, pos int, word string) byte {
	switch char {
	case 'A', 'E', 'I', 'O', 'U':
		if pos == 0 {
			return char
		}
		return 0
	case 'B':
		return 'B'
	case 'C':
		if pos+1 < len(word) && (word[pos+1] == 'I' || word[pos+1] == 'E' || word[pos+1] == 'Y') {
			return 'S'
		}
		return 'K'
	case 'D':
		return 'T'
	case 'F':
		return 'F'
	case 'G':
		return 'J'
	case 'H':
		return 0 // usually silent
	case 'J':
		return 'J'
	case 'K':
		return 'K'
	case 'L':
		return 'L'
	case 'M':
		return 'M'
	case 'N':
		return 'N'
	case 'P':
		if pos+1 < len(word) && word[pos+1] == 'H' {
			return 'F'
		}
		return 'P'
	case 'Q':
		return 'K'
	case 'R':
		return 'R'
	case 'S':
		return 'S'
	case 'T':
		return 'T'
	case 'V':
		return 'F'
	case 'W':
		return 0
	case 'X':
		return 'S'
	case 'Y':
		return 0
	case 'Z':
		return 'S'
	default:
		return 0
	}
}

// alternateCode returns the alternate pronunciation code for consonants that
// read differently across languages, or 0 when the letter is unambiguous.
func alternateCode(char byte, pos int, word string) byte {
	switch char {
	case 'C':
		// "Cesar" vs "Celtic": soft C can still be hard
		if pos+1 < len(word) && (word[pos+1] == 'I' || word[pos+1] == 'E' || word[pos+1] == 'Y') {
			return 'K'
		}
		return 0
	case 'G':
		// hard G ("Gerhard") vs soft ("George")
		return 'K'
	case 'J':
		// Spanish J ("Jose") reads as H, which the skeleton drops
		if pos == 0 {
			return 'H'
		}
		return 0
	case 'W':
		// "Wagner": V-like onset
		if pos == 0 {
			return 'F'
		}
		return 0
	case 'X':
		if pos == 0 {
			// "Xavier"
			return 'S'
		}
		return 'K'
	case 'Z':
		// "Zhang"
		return 'J'
	default:
		return 0
	}
}

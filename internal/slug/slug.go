// Package slug turns arbitrary text into lowercase, hyphenated, URL-safe tokens
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Separator joins the words of a slug
const Separator = "-"

// letters NFD cannot decompose into ASCII base + combining mark
var ligatures = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "AE", "œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O", "đ", "d", "Đ", "D", "ł", "l", "Ł", "L",
	"þ", "th", "Þ", "TH", "ð", "d", "Ð", "D",
	"&", " and ", "@", " at ",
)

// lowercase Cyrillic and Greek letters, looked up after marks are stripped
var translit = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "i", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "iu", 'я': "ia",
	'є': "ie", 'і': "i", 'ї': "i", 'ґ': "g",

	'α': "a", 'β': "v", 'γ': "g", 'δ': "d", 'ε': "e", 'ζ': "z", 'η': "i",
	'θ': "th", 'ι': "i", 'κ': "k", 'λ': "l", 'μ': "m", 'ν': "n", 'ξ': "x",
	'ο': "o", 'π': "p", 'ρ': "r", 'σ': "s", 'ς': "s", 'τ': "t", 'υ': "y",
	'φ': "f", 'χ': "ch", 'ψ': "ps", 'ω': "o",
}

// Make returns the slug of s: accents stripped, lowercased, every run of
// non-alphanumeric characters collapsed into one Separator, no leading or
// trailing separator. Cyrillic and Greek are transliterated to Latin.
// Make is deterministic and may return "" when s holds no letters or digits
// that survive transliteration, as with CJK text.
func Make(s string) string {
	s = ligatures.Replace(s)

	// decompose, drop combining marks, recompose
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}

	var sb strings.Builder
	sb.Grow(len(s))
	pending := false
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pending && sb.Len() > 0 {
				sb.WriteString(Separator)
			}
			pending = false
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		if latin, ok := translit[unicode.ToLower(r)]; ok {
			// hard and soft signs vanish without splitting the word
			if latin != "" {
				if pending && sb.Len() > 0 {
					sb.WriteString(Separator)
				}
				pending = false
				sb.WriteString(latin)
			}
			continue
		}
		pending = true
	}
	return sb.String()
}

// MakeOr is Make with a fallback for inputs that produce an empty slug
func MakeOr(s, fallback string) string {
	if out := Make(s); out != "" {
		return out
	}
	return fallback
}

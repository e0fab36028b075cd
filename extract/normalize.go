package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// PageSeparator separates the pages of an extracted document.
const PageSeparator = "\f"

// DefaultMaxMergeLength bounds how many single Hangul syllables are joined
// back into one word.
const DefaultMaxMergeLength = 8

// Normalizer repairs common OCR artifacts.
type Normalizer struct {
	// MaxMergeLength is the longest word rebuilt from space-separated
	// syllables. Values below 2 disable merging.
	MaxMergeLength int
}

// Normalize applies the default Normalizer to text.
func Normalize(text string) string {
	return Normalizer{MaxMergeLength: DefaultMaxMergeLength}.Normalize(text)
}

// Normalize returns text with whitespace collapsed, split thousands groups
// rejoined, letters misread inside numbers corrected, and runs of single
// Hangul syllables merged. Paragraph breaks and page separators are kept.
func (n Normalizer) Normalize(text string) string {
	pages := strings.Split(text, PageSeparator)
	for i, page := range pages {
		pages[i] = n.normalizePage(page)
	}
	return strings.Join(pages, PageSeparator)
}

func (n Normalizer) normalizePage(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			continue
		}
		if blank > 0 && len(out) > 0 {
			out = append(out, "")
		}
		blank = 0

		line = repairThousands(line)
		line = repairDigits(line)
		line = mergeSyllables(line, n.MaxMergeLength)
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// splitThousands matches a digit, a comma, whitespace, and a three-character
// group that may still contain misread digits.
var splitThousands = regexp.MustCompile(`(\d) ?, ([\dOolIS|B]{3})([^\dOolIS|B]|$)`)

func repairThousands(line string) string {
	for {
		fixed := splitThousands.ReplaceAllString(line, "$1,$2$3")
		if fixed == line {
			return line
		}
		line = fixed
	}
}

var digitLookalikes = map[rune]rune{
	'O': '0', 'o': '0',
	'l': '1', 'I': '1', '|': '1',
	'S': '5',
	'B': '8',
}

func isNumericSeparator(r rune) bool {
	return r == ',' || r == '.'
}

func isLatin(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsLetter(r)
}

// repairDigits rewrites lookalike letters inside numeric runs. A run starts
// at a real digit, continues over digits, separators and lookalikes, and is
// not glued to Latin letters on either side. Codes such as "B2B" or "S3"
// begin with a letter and are left alone.
func repairDigits(line string) string {
	rs := []rune(line)
	changed := false
	for i := 0; i < len(rs); {
		if !unicode.IsDigit(rs[i]) {
			i++
			continue
		}

		start := i
		for i < len(rs) {
			_, lookalike := digitLookalikes[rs[i]]
			if !unicode.IsDigit(rs[i]) && !lookalike && !isNumericSeparator(rs[i]) {
				break
			}
			i++
		}
		end := i

		if end-start < 2 {
			continue
		}
		if start > 0 && isLatin(rs[start-1]) {
			continue
		}
		if end < len(rs) && isLatin(rs[end]) {
			continue
		}
		for j := start; j < end; j++ {
			if d, ok := digitLookalikes[rs[j]]; ok {
				rs[j] = d
				changed = true
			}
		}
	}
	if !changed {
		return line
	}
	return string(rs)
}

func isSingleSyllable(word string) bool {
	rs := []rune(word)
	return len(rs) == 1 && unicode.Is(unicode.Hangul, rs[0])
}

// mergeSyllables joins runs of space-separated single Hangul syllables into
// words of at most maxLen syllables.
func mergeSyllables(line string, maxLen int) string {
	if maxLen < 2 {
		return line
	}
	words := strings.Split(line, " ")
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		if !isSingleSyllable(words[i]) {
			out = append(out, words[i])
			i++
			continue
		}
		j := i
		for j < len(words) && isSingleSyllable(words[j]) {
			j++
		}
		for k := i; k < j; k += maxLen {
			end := k + maxLen
			if end > j {
				end = j
			}
			out = append(out, strings.Join(words[k:end], ""))
		}
		i = j
	}
	return strings.Join(out, " ")
}

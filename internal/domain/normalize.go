package domain

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NameRule is one rewrite step of the district-name normalization.
type NameRule struct {
	Name  string
	Apply func(string) string
}

// DefaultNameRules returns the rewrite table for Berlin district-area names.
func DefaultNameRules() []NameRule {
	return []NameRule{
		RemoveWords(
			"Südliche", "Nördliche",
			"Nordwest", "Nordost", "Südwest", "Südost",
			"Nord", "Süd", "Ost", "West",
			"FK", "Zentrum", "Mitte",
			"North", "South", "East", "Center", "Centre",
		),
		ReplaceWord("MV", "Märkisches Viertel"),
		ReplaceWord("Neuköllner", "Neukölln"),
		KeepAfter(" - "),
		KeepBefore("/"),
		KeepBefore(","),
		TrimSuffix("-"),
	}
}

// RemoveWords deletes whole-word occurrences of words, ignoring case.
func RemoveWords(words ...string) NameRule {
	re := wordAlternation(words, true)
	return NameRule{
		Name: "remove " + strings.Join(words, "|"),
		Apply: func(s string) string {
			return replaceWholeWords(s, re, "")
		},
	}
}

// ReplaceWord substitutes whole-word occurrences of from with to. Case-sensitive.
func ReplaceWord(from, to string) NameRule {
	re := wordAlternation([]string{from}, false)
	return NameRule{
		Name: "replace " + from + " → " + to,
		Apply: func(s string) string {
			return replaceWholeWords(s, re, to)
		},
	}
}

// KeepAfter keeps the text following the first occurrence of sep.
func KeepAfter(sep string) NameRule {
	return NameRule{
		Name: "keep after " + sep,
		Apply: func(s string) string {
			if _, after, ok := strings.Cut(s, sep); ok {
				return after
			}
			return s
		},
	}
}

// KeepBefore keeps the text preceding the first occurrence of sep.
func KeepBefore(sep string) NameRule {
	return NameRule{
		Name: "keep before " + sep,
		Apply: func(s string) string {
			before, _, _ := strings.Cut(s, sep)
			return before
		},
	}
}

// TrimSuffix strips a single trailing suffix.
func TrimSuffix(suffix string) NameRule {
	return NameRule{
		Name: "trim suffix " + suffix,
		Apply: func(s string) string {
			return strings.TrimSuffix(s, suffix)
		},
	}
}

// Normalizer rewrites raw district names into canonical names.
type Normalizer struct {
	rules []NameRule
}

// NewNormalizer creates a Normalizer applying rules in order.
func NewNormalizer(rules ...NameRule) *Normalizer {
	return &Normalizer{rules: slices.Clone(rules)}
}

// DefaultNormalizer creates a Normalizer with DefaultNameRules.
func DefaultNormalizer() *Normalizer {
	return NewNormalizer(DefaultNameRules()...)
}

// Rules returns the ordered rule list.
func (n *Normalizer) Rules() []NameRule {
	return slices.Clone(n.rules)
}

// Normalize applies the rule list until the name stops changing. Whitespace is
// trimmed and collapsed after every rule. It never fails; an empty result is valid.
func (n *Normalizer) Normalize(raw string) string {
	s := tidySpaces(raw)
	// Bounded by the input so a rule set that never settles still returns.
	for range len(s) + len(n.rules) + 1 {
		next := n.pass(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func (n *Normalizer) pass(s string) string {
	for _, r := range n.rules {
		s = tidySpaces(r.Apply(s))
	}
	return s
}

var defaultNormalizer = DefaultNormalizer()

// NormalizeName normalizes with the default rules.
func NormalizeName(raw string) string {
	return defaultNormalizer.Normalize(raw)
}

func tidySpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// wordAlternation compiles words into one alternation, longest first so that
// "Nordwest" wins over "Nord" at the same position.
func wordAlternation(words []string, foldCase bool) *regexp.Regexp {
	sorted := slices.Clone(words)
	slices.SortStableFunc(sorted, func(a, b string) int {
		return cmp.Compare(utf8.RuneCountInString(b), utf8.RuneCountInString(a))
	})
	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(w)
	}
	expr := "(?:" + strings.Join(quoted, "|") + ")"
	if foldCase {
		expr = "(?i)" + expr
	}
	return regexp.MustCompile(expr)
}

// replaceWholeWords replaces matches of re that are delimited by non-word
// runes. RE2's \b only knows ASCII, which breaks on umlauts.
func replaceWholeWords(s string, re *regexp.Regexp, repl string) string {
	var b strings.Builder
	last, pos := 0, 0
	for pos < len(s) {
		loc := re.FindStringIndex(s[pos:])
		if loc == nil || loc[0] == loc[1] {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if isWholeWord(s, start, end) {
			b.WriteString(s[last:start])
			b.WriteString(repl)
			last, pos = end, end
			continue
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		pos = start + size
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

func isWholeWord(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

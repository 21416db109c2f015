// Package textstat computes the linguistic measurements the readability
// analyzer scores against. All counts are computed once per text; callers
// keep the Stats value and reuse it instead of re-tokenizing.
package textstat

import (
	"math"
	"regexp"
	"strings"
)

// Stats holds the shared measurements for one body of text.
type Stats struct {
	Sentences  int
	Words      int
	Syllables  int
	UniqueWord int
	Paragraphs int
	// AvgParagraphWords is words per paragraph, 0 when there are none.
	AvgParagraphWords float64
}

var sentenceSplit = regexp.MustCompile(`[.!?]+(\s+|$)`)

// punctTrim strips leading/trailing punctuation from a token before
// counting it as a word.
var punctTrim = regexp.MustCompile(`^[^\pL\pN]+|[^\pL\pN]+$`)

// Analyze tokenizes the text once and returns the shared counts.
// Paragraphs are the newline-separated blocks of the input.
func Analyze(text string) Stats {
	st := Stats{}
	st.Sentences = countSentences(text)

	seen := make(map[string]struct{})
	paragraphs := strings.Split(text, "\n")
	for _, para := range paragraphs {
		words := 0
		for _, tok := range strings.Fields(para) {
			w := punctTrim.ReplaceAllString(tok, "")
			if w == "" {
				continue
			}
			words++
			st.Syllables += CountSyllables(w)
			seen[stem(strings.ToLower(w))] = struct{}{}
		}
		if words > 0 {
			st.Paragraphs++
			st.Words += words
		}
	}
	st.UniqueWord = len(seen)
	if st.Paragraphs > 0 {
		st.AvgParagraphWords = float64(st.Words) / float64(st.Paragraphs)
	}
	return st
}

func countSentences(text string) int {
	n := len(sentenceSplit.FindAllString(text, -1))
	if n == 0 && strings.TrimSpace(text) != "" {
		// A fragment with no terminal punctuation still reads as one sentence.
		return 1
	}
	return n
}

// FleschReadingEase applies the classic formula. Returns 0 when the text has
// no sentences or words.
func (s Stats) FleschReadingEase() float64 {
	if s.Sentences == 0 || s.Words == 0 {
		return 0
	}
	score := 206.835 -
		1.015*(float64(s.Words)/float64(s.Sentences)) -
		84.6*(float64(s.Syllables)/float64(s.Words))
	return math.Round(score*10) / 10
}

// AvgSentenceLength is words per sentence.
func (s Stats) AvgSentenceLength() float64 {
	if s.Sentences == 0 {
		return 0
	}
	return float64(s.Words) / float64(s.Sentences)
}

// VocabularyDiversity is the unique-stem ratio over total words.
func (s Stats) VocabularyDiversity() float64 {
	if s.Words == 0 {
		return 0
	}
	return float64(s.UniqueWord) / float64(s.Words)
}

// CountSyllables estimates syllables as vowel groups with a floor of one,
// discounting a trailing silent e.
func CountSyllables(word string) int {
	w := strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range w {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

// stem is a light suffix stripper used only for diversity estimation.
func stem(w string) string {
	for _, suf := range []string{"ingly", "edly", "ing", "ed", "es", "s", "ly"} {
		if strings.HasSuffix(w, suf) && len(w)-len(suf) >= 3 {
			return w[:len(w)-len(suf)]
		}
	}
	return w
}

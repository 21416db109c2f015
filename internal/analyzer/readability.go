package analyzer

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"

	"github.com/geoaudit/geoaudit/internal/report"
	"github.com/geoaudit/geoaudit/internal/textstat"
)

// minReadableWords is the guard below which linguistic ratios are not
// computed; the section returns a single explanatory card instead.
const minReadableWords = 100

type readabilityRawData struct {
	Words            int     `json:"words"`
	Sentences        int     `json:"sentences"`
	Syllables        int     `json:"syllables"`
	FleschScore      float64 `json:"fleschScore"`
	DetectedLanguage string  `json:"detectedLanguage,omitempty"`
}

// Readability scores the linguistic accessibility of the body text. All
// counts come from one textstat pass; the cards only map them to points.
// The boilerplate-stripped article text is preferred when extraction found
// one, so menus and footers do not skew the metrics.
func Readability(in Input) (*report.Section, []report.GlobalPenalty, error) {
	text := in.Doc.ArticleText()
	if text == "" {
		text = in.Doc.BodyText()
	}
	stats := textstat.Analyze(text)

	if stats.Words < minReadableWords {
		sec, err := report.BuildSection(report.SectionReadability, "Readability",
			[]report.DrawerSpec{shortContentDrawer(stats)})
		if err != nil {
			return nil, nil, err
		}
		return sec, nil, nil
	}

	linguistic := report.DrawerSpec{
		ID:          "linguistic-precision",
		Name:        "Linguistic Precision",
		Description: "Reading-ease measurement of the body text.",
		Cards:       []report.CardSpec{fleschCard(stats, text)},
	}
	complexity := report.DrawerSpec{
		ID:          "text-complexity",
		Name:        "Text Complexity",
		Description: "Sentence length and vocabulary variety.",
		Cards: []report.CardSpec{
			sentenceComplexityCard(stats),
			vocabularyCard(stats),
		},
	}
	organization := report.DrawerSpec{
		ID:          "content-organization",
		Name:        "Content Organization",
		Description: "Paragraph structure and content density.",
		Cards: []report.CardSpec{
			paragraphCard(stats),
			contentDensityCard(stats, in),
		},
	}

	sec, err := report.BuildSection(report.SectionReadability, "Readability",
		[]report.DrawerSpec{linguistic, complexity, organization})
	if err != nil {
		return nil, nil, err
	}
	return sec, nil, nil
}

func shortContentDrawer(stats textstat.Stats) report.DrawerSpec {
	return report.DrawerSpec{
		ID:          "content-volume",
		Name:        "Content Volume",
		Description: "The text is too short for meaningful linguistic analysis.",
		Cards: []report.CardSpec{{
			ID:          "short-content",
			Name:        "Insufficient Content",
			Explanation: "Linguistic metrics are unreliable below a minimal text volume, so none were computed.",
			Score:       0,
			MaxScore:    100,
			Recommendations: []report.Recommendation{{
				Problem:  fmt.Sprintf("The page body contains only %d words.", stats.Words),
				Solution: "Add substantive text content; LLMs cannot cite what is not written.",
				Impact:   9,
			}},
			SuccessMessage: "The page has enough text for analysis.",
			RawData:        readabilityRawData{Words: stats.Words, Sentences: stats.Sentences},
		}},
	}
}

func fleschCard(stats textstat.Stats, text string) report.CardSpec {
	card := report.CardSpec{
		ID:             "flesch-reading-ease",
		Name:           "Flesch Reading Ease",
		Explanation:    "Plain language is extracted and quoted more reliably than dense prose.",
		MaxScore:       40,
		SuccessMessage: "The text is easy to read.",
	}
	flesch := stats.FleschReadingEase()
	raw := readabilityRawData{
		Words:       stats.Words,
		Sentences:   stats.Sentences,
		Syllables:   stats.Syllables,
		FleschScore: flesch,
	}
	if lang := detectLanguage(text); lang != "" {
		raw.DetectedLanguage = lang
	}
	card.RawData = raw

	switch {
	case flesch >= 60:
		card.Score = 40
	case flesch >= 50:
		card.Score = 25
		card.Recommendations = []report.Recommendation{{
			Problem:  fmt.Sprintf("The Flesch reading ease is %.1f (fairly difficult).", flesch),
			Solution: "Shorten sentences and prefer common words to lift the score above 60.",
			Impact:   3,
		}}
	default:
		card.Score = 10
		card.Recommendations = []report.Recommendation{{
			Problem:  fmt.Sprintf("The Flesch reading ease is %.1f (difficult).", flesch),
			Solution: "Rewrite dense passages in shorter sentences with simpler vocabulary.",
			Impact:   5,
		}}
	}
	if raw.DetectedLanguage != "" && raw.DetectedLanguage != "English" {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("The text appears to be %s; the reading-ease formula is calibrated for English.", raw.DetectedLanguage),
			Solution: "Treat the reading-ease score as indicative only for non-English content.",
			Impact:   0,
		})
	}
	return card
}

func sentenceComplexityCard(stats textstat.Stats) report.CardSpec {
	card := report.CardSpec{
		ID:             "sentence-complexity",
		Name:           "Sentence Complexity",
		Explanation:    "Very long sentences are hard to chunk and quote accurately.",
		MaxScore:       15,
		SuccessMessage: "Sentence length is comfortable.",
	}
	avg := stats.AvgSentenceLength()
	card.RawData = map[string]float64{"avgSentenceLength": math.Round(avg*10) / 10}
	switch {
	case avg <= 25:
		card.Score = 15
	case avg <= 30:
		card.Score = 8
		card.Recommendations = []report.Recommendation{{
			Problem:  fmt.Sprintf("Sentences average %.1f words (above 25).", avg),
			Solution: "Split long sentences; aim for an average below 25 words.",
			Impact:   3,
		}}
	default:
		card.Score = 3
		card.Recommendations = []report.Recommendation{{
			Problem:  fmt.Sprintf("Sentences average %.1f words (well above 25).", avg),
			Solution: "Break up long sentences into one idea each.",
			Impact:   4,
		}}
	}
	return card
}

func vocabularyCard(stats textstat.Stats) report.CardSpec {
	card := report.CardSpec{
		ID:             "vocabulary-diversity",
		Name:           "Vocabulary Diversity",
		Explanation:    "Varied vocabulary signals substantive content rather than filler.",
		MaxScore:       15,
		SuccessMessage: "The vocabulary is suitably varied.",
	}
	div := stats.VocabularyDiversity()
	card.RawData = map[string]float64{"diversity": math.Round(div*100) / 100}
	switch {
	case div > 0.4:
		card.Score = 15
	case div > 0.3:
		card.Score = 8
		card.Recommendations = []report.Recommendation{{
			Problem:  fmt.Sprintf("The unique-word ratio is %.2f (target above 0.40).", div),
			Solution: "Reduce repeated boilerplate phrases in the body text.",
			Impact:   2,
		}}
	default:
		card.Score = 4
		card.Recommendations = []report.Recommendation{{
			Problem:  fmt.Sprintf("The unique-word ratio is %.2f, indicating repetitive text.", div),
			Solution: "Rewrite repetitive sections; each paragraph should add new information.",
			Impact:   3,
		}}
	}
	return card
}

func paragraphCard(stats textstat.Stats) report.CardSpec {
	card := report.CardSpec{
		ID:             "paragraph-structure",
		Name:           "Paragraph Structure",
		Explanation:    "Short, focused paragraphs map cleanly onto answer snippets.",
		MaxScore:       15,
		SuccessMessage: "Paragraphs are well sized.",
	}
	card.RawData = map[string]any{
		"paragraphs":        stats.Paragraphs,
		"avgParagraphWords": math.Round(stats.AvgParagraphWords*10) / 10,
	}
	if stats.Paragraphs >= 2 {
		card.Score += 7
	} else {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "The body text reads as a single block.",
			Solution: "Split the content into focused paragraphs.",
			Impact:   3,
		})
	}
	if stats.AvgParagraphWords > 0 && stats.AvgParagraphWords <= 150 {
		card.Score += 8
	} else {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("Paragraphs average %.0f words.", stats.AvgParagraphWords),
			Solution: "Keep paragraphs under roughly 150 words so each covers one idea.",
			Impact:   2,
		})
	}
	return card
}

func contentDensityCard(stats textstat.Stats, in Input) report.CardSpec {
	card := report.CardSpec{
		ID:             "content-density",
		Name:           "Content Density",
		Explanation:    "A healthy text share of the HTML payload indicates real content.",
		MaxScore:       15,
		SuccessMessage: "The page is dense with actual content.",
	}
	ratio := 0.0
	if in.Doc.RawLength() > 0 {
		ratio = float64(len(in.Doc.BodyText())) / float64(in.Doc.RawLength()) * 100
	}
	card.RawData = map[string]float64{"textHtmlRatio": math.Round(ratio*10) / 10}

	switch {
	case ratio >= 15:
		card.Score += 10
	case ratio >= 8:
		card.Score += 5
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("Text makes up %.1f%% of the HTML (target 15%%).", ratio),
			Solution: "Trim markup and inline script weight relative to visible text.",
			Impact:   2,
		})
	default:
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("Text makes up only %.1f%% of the HTML.", ratio),
			Solution: "The page is dominated by markup and scripts; increase the share of static text.",
			Impact:   4,
		})
	}
	if stats.Words >= 300 {
		card.Score += 5
	} else {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("The body holds %d words; comprehensive pages run 300 or more.", stats.Words),
			Solution: "Expand the content to cover the topic fully.",
			Impact:   3,
		})
	}
	return card
}

var (
	languageDetectorOnce sync.Once
	languageDetector     lingua.LanguageDetector
)

// detectLanguage samples the text and names its probable language. The
// detector is built once; model loading is expensive.
func detectLanguage(text string) string {
	sample := text
	if len(sample) > 2000 {
		sample = sample[:2000]
	}
	if strings.TrimSpace(sample) == "" {
		return ""
	}
	languageDetectorOnce.Do(func() {
		languageDetector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.English, lingua.German, lingua.French, lingua.Spanish,
				lingua.Italian, lingua.Portuguese, lingua.Dutch, lingua.Finnish,
			).
			Build()
	})
	if lang, ok := languageDetector.DetectLanguageOf(sample); ok {
		return lang.String()
	}
	return ""
}

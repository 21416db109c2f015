package analyzer

import (
	"reflect"
	"strings"
	"testing"

	"github.com/geoaudit/geoaudit/internal/report"
	"github.com/geoaudit/geoaudit/internal/textstat"
)

// readablePage wraps n short English sentences in paragraphs.
func readablePage(sentences int) string {
	var b strings.Builder
	b.WriteString(`<html><body><main><h1>Plain facts</h1>`)
	for i := 0; i < sentences; i++ {
		b.WriteString("<p>The small team ships one fix each day and the users like it.</p>")
	}
	b.WriteString(`</main></body></html>`)
	return b.String()
}

func readabilitySection(t *testing.T, html string) *report.Section {
	t.Helper()
	sec, penalties, err := Readability(Input{URL: "https://example.test/", Doc: mustDoc(t, html)})
	if err != nil {
		t.Fatal(err)
	}
	if penalties != nil {
		t.Fatalf("readability must not emit penalties, got %+v", penalties)
	}
	return sec
}

func TestReadabilityShortContentGuard(t *testing.T) {
	sec := readabilitySection(t, `<html><body><main><p>`+wordyBody(50)+`</p></main></body></html>`)
	if len(sec.Drawers) != 1 || len(sec.Drawers[0].Cards) != 1 {
		t.Fatalf("guard section shape = %d drawers", len(sec.Drawers))
	}
	card := sec.Drawers[0].Cards[0]
	if card.ID != "short-content" || card.Score != 0 || card.MaxScore != 100 {
		t.Fatalf("guard card = %+v", card)
	}
	if sec.TotalScore != 0 || sec.MaxScore != 100 {
		t.Fatalf("guard section totals = %d/%d", sec.TotalScore, sec.MaxScore)
	}
	if len(card.Recommendations) != 1 || !strings.Contains(card.Recommendations[0].Problem, "50 words") {
		t.Fatalf("guard rec = %+v", card.Recommendations)
	}
}

func TestReadabilityFullAnalysisShape(t *testing.T) {
	sec := readabilitySection(t, readablePage(12))
	if len(sec.Drawers) != 3 {
		t.Fatalf("drawers = %d, want 3", len(sec.Drawers))
	}
	cards := 0
	for _, d := range sec.Drawers {
		cards += len(d.Cards)
	}
	if cards != 5 {
		t.Fatalf("cards = %d, want 5", cards)
	}
	if sec.MaxScore != 100 {
		t.Fatalf("maxScore = %d", sec.MaxScore)
	}
	if err := report.Validate(sec); err != nil {
		t.Fatal(err)
	}
	// Short common words read easily.
	if card := findCard(t, sec, "flesch-reading-ease"); card.Score != 40 {
		t.Fatalf("flesch card = %d, want 40", card.Score)
	}
}

func TestReadabilityIsIdempotent(t *testing.T) {
	in := Input{URL: "https://example.test/", Doc: mustDoc(t, readablePage(12))}
	a, _, err := Readability(in)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := Readability(in)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("repeated analysis of the same input diverged")
	}
}

func TestFleschCardTiers(t *testing.T) {
	easy := textstat.Analyze("The cat sat here. The dog ran off. We like short words a lot here.")
	if card := fleschCard(easy, ""); card.Score != 40 {
		t.Fatalf("easy text = %d, want 40", card.Score)
	}

	// Long polysyllabic sentences score poorly.
	hard := textstat.Analyze(strings.Repeat("Organizational transformation initiatives necessitate comprehensive institutional reconfiguration throughout multidimensional administrative hierarchies continuously ", 3) + ".")
	card := fleschCard(hard, "")
	if card.Score != 10 {
		t.Fatalf("hard text = %d, want 10", card.Score)
	}
	if len(card.Recommendations) != 1 {
		t.Fatalf("hard text recs = %+v", card.Recommendations)
	}
}

func TestFleschCardNonEnglishNote(t *testing.T) {
	german := "Die schnelle Entwicklung moderner Technologien verändert unsere Gesellschaft grundlegend und nachhaltig. " +
		"Viele Menschen nutzen täglich digitale Dienste für Arbeit und Freizeit. " +
		"Die Bedeutung von Datenschutz und Sicherheit wächst dabei stetig weiter."
	card := fleschCard(textstat.Analyze(german), german)
	found := false
	for _, r := range card.Recommendations {
		if strings.Contains(r.Problem, "calibrated for English") {
			found = true
			if r.Impact != 0 {
				t.Fatalf("language note impact = %d, want 0 (informational)", r.Impact)
			}
		}
	}
	if !found {
		t.Fatalf("non-English note missing: %+v", card.Recommendations)
	}
}

func TestSentenceComplexityCardTiers(t *testing.T) {
	cases := []struct {
		words, sentences int
		want             int
	}{
		{100, 5, 15}, // avg 20
		{112, 4, 8},  // avg 28
		{140, 4, 3},  // avg 35
	}
	for _, tc := range cases {
		st := textstat.Stats{Words: tc.words, Sentences: tc.sentences}
		if card := sentenceComplexityCard(st); card.Score != tc.want {
			t.Errorf("avg %d/%d = %d, want %d", tc.words, tc.sentences, card.Score, tc.want)
		}
	}
}

func TestVocabularyCardTiers(t *testing.T) {
	cases := []struct {
		unique, words int
		want          int
	}{
		{50, 100, 15}, // 0.50
		{35, 100, 8},  // 0.35
		{20, 100, 4},  // 0.20
	}
	for _, tc := range cases {
		st := textstat.Stats{Words: tc.words, UniqueWord: tc.unique}
		if card := vocabularyCard(st); card.Score != tc.want {
			t.Errorf("diversity %d/%d = %d, want %d", tc.unique, tc.words, card.Score, tc.want)
		}
	}
}

func TestParagraphCardTiers(t *testing.T) {
	good := textstat.Stats{Paragraphs: 4, AvgParagraphWords: 80}
	if card := paragraphCard(good); card.Score != 15 {
		t.Fatalf("good paragraphs = %d, want 15", card.Score)
	}

	wall := textstat.Stats{Paragraphs: 1, AvgParagraphWords: 600}
	card := paragraphCard(wall)
	if card.Score != 0 {
		t.Fatalf("wall of text = %d, want 0", card.Score)
	}
	if len(card.Recommendations) != 2 {
		t.Fatalf("wall recs = %+v", card.Recommendations)
	}

	single := textstat.Stats{Paragraphs: 1, AvgParagraphWords: 90}
	if card := paragraphCard(single); card.Score != 8 {
		t.Fatalf("single short paragraph = %d, want 8", card.Score)
	}
}

func TestContentDensityCard(t *testing.T) {
	dense := Input{Doc: mustDoc(t, `<html><body><main><p>`+wordyBody(320)+`</p></main></body></html>`)}
	card := contentDensityCard(textstat.Stats{Words: 320}, dense)
	if card.Score != 15 {
		t.Fatalf("dense page = %d, want 15", card.Score)
	}

	sparse := Input{Doc: mustDoc(t, `<html><body><main><p>`+wordyBody(120)+`</p></main><script>`+
		strings.Repeat("var filler = 'xxxxxxxxxxxxxxxx';\n", 400)+`</script></body></html>`)}
	card = contentDensityCard(textstat.Stats{Words: 120}, sparse)
	if card.Score != 0 {
		t.Fatalf("sparse page = %d, want 0", card.Score)
	}
	if len(card.Recommendations) != 2 {
		t.Fatalf("sparse recs = %+v", card.Recommendations)
	}
}

func TestDetectLanguage(t *testing.T) {
	if got := detectLanguage("The quick brown fox jumps over the lazy dog and keeps on running through the field."); got != "English" {
		t.Fatalf("detectLanguage = %q, want English", got)
	}
	if got := detectLanguage("   "); got != "" {
		t.Fatalf("blank text = %q, want empty", got)
	}
}

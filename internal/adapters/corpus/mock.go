package corpus

import (
	"context"
	"strings"

	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

// Mock is the null-object CorpusSearch selected when DATABASE_URL is
// unset: a small built-in seed of verses commonly cited in the
// water/creation discovery domain, searched by naive keyword overlap.
// Per SPEC_FULL.md §9, "adapter missing" is this static type, not a
// nil-check scattered through quran_rag.
type Mock struct {
	seed []seedVerse
}

type seedVerse struct {
	record   state.VerseRecord
	keywords []string
}

// NewMock builds the built-in seed corpus.
func NewMock() *Mock {
	return &Mock{seed: defaultSeed()}
}

func defaultSeed() []seedVerse {
	return []seedVerse{
		{
			record: state.VerseRecord{
				SurahNumber: 21, VerseNumber: 30, VerseKey: "21:30",
				TextUthmani: "وَجَعَلْنَا مِنَ الْمَاءِ كُلَّ شَيْءٍ حَيٍّ",
				TextSimple:  "وجعلنا من الماء كل شيء حي",
			},
			keywords: []string{"ماء", "water", "حي", "خلق", "life"},
		},
		{
			record: state.VerseRecord{
				SurahNumber: 23, VerseNumber: 14, VerseKey: "23:14",
				TextUthmani: "ثُمَّ خَلَقْنَا النُّطْفَةَ عَلَقَةً فَخَلَقْنَا الْعَلَقَةَ مُضْغَةً",
				TextSimple:  "ثم خلقنا النطفة علقة فخلقنا العلقة مضغة",
			},
			keywords: []string{"جنين", "رحم", "خلق", "biology", "نطفة"},
		},
		{
			record: state.VerseRecord{
				SurahNumber: 86, VerseNumber: 6, VerseKey: "86:6",
				TextUthmani: "خُلِقَ مِنْ مَاءٍ دَافِقٍ",
				TextSimple:  "خلق من ماء دافق",
			},
			keywords: []string{"ماء", "water", "خلق"},
		},
		{
			record: state.VerseRecord{
				SurahNumber: 13, VerseNumber: 11, VerseKey: "13:11",
				TextUthmani: "إِنَّ اللَّهَ لَا يُغَيِّرُ مَا بِقَوْمٍ حَتَّىٰ يُغَيِّرُوا مَا بِأَنْفُسِهِمْ",
				TextSimple:  "إن الله لا يغير ما بقوم حتى يغيروا ما بأنفسهم",
			},
			keywords: []string{"نفس", "psychology", "تغيير", "society"},
		},
	}
}

func (m *Mock) SearchByVector(ctx context.Context, vec []float64, topK int, threshold float64) ([]state.VerseRecord, error) {
	// The mock has no real embeddings; fall back to returning the seed
	// corpus in declaration order, capped at topK.
	return m.capped(m.seed, topK), nil
}

func (m *Mock) SearchByText(ctx context.Context, query string, topK int) ([]state.VerseRecord, error) {
	q := strings.ToLower(query)
	var matched []seedVerse
	for _, v := range m.seed {
		for _, kw := range v.keywords {
			if strings.Contains(q, strings.ToLower(kw)) {
				matched = append(matched, v)
				break
			}
		}
	}
	if len(matched) == 0 {
		// No keyword signal: behave like a broad query and return
		// everything, capped, so downstream stages always have
		// something to work with in the mocked path.
		matched = m.seed
	}
	return m.capped(matched, topK), nil
}

func (m *Mock) capped(verses []seedVerse, topK int) []state.VerseRecord {
	if topK <= 0 || topK > len(verses) {
		topK = len(verses)
	}
	out := make([]state.VerseRecord, 0, topK)
	for _, v := range verses[:topK] {
		out = append(out, v.record)
	}
	return out
}

func (m *Mock) FetchExegesisFor(ctx context.Context, verseKeys []string) (map[string][]state.TafseerEntry, error) {
	out := make(map[string][]state.TafseerEntry, len(verseKeys))
	for _, key := range verseKeys {
		out[key] = []state.TafseerEntry{
			{Slug: "ibn-kathir", Name: "ابن كثير", Text: "تفسير مختصر (بيانات تجريبية)."},
			{Slug: "saadi", Name: "السعدي", Text: "تفسير مختصر (بيانات تجريبية)."},
		}
	}
	return out, nil
}

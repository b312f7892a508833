package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/corpus"
	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/embeddings"
	"github.com/AiSchool-Admin/quran-miracles/internal/dag"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

const ragTopK = 10

// QuranRAG builds the quran_rag stage: vector similarity search when an
// Embeddings adapter is configured, falling back to text search
// otherwise, followed by an exegesis lookup for the returned verses.
// This is the stage the bounded loop-back re-enters on a low quality
// score.
func QuranRAG(corpusSearch corpus.CorpusSearch, embedder embeddings.Embeddings) dag.Stage {
	return dag.StageFunc{
		StageName: dag.StageQuranRAG,
		Fn: func(ctx context.Context, snapshot state.State) (state.Update, error) {
			verses, source, err := retrieve(ctx, corpusSearch, embedder, snapshot.Query)
			if err != nil {
				return state.Update{}, err
			}

			keys := make([]string, len(verses))
			for i, v := range verses {
				keys[i] = v.VerseKey
			}
			exegesis, err := corpusSearch.FetchExegesisFor(ctx, keys)
			if err != nil {
				return state.Update{}, err
			}
			for i := range verses {
				verses[i].Tafseers = exegesis[verses[i].VerseKey]
			}

			summary := summariseVerses(verses)

			return state.Update{
				Verses:         &verses,
				TafseerContext: state.StrPtr(summary),
				StreamingAppend: []state.ProgressRecord{{
					Stage:  dag.StageQuranRAG,
					Status: "done",
					Fields: map[string]interface{}{"verses_count": len(verses), "source": source},
				}},
			}, nil
		},
	}
}

// retrieve performs vector search when embedder is configured, falling
// back to text search otherwise or on an embedding failure. It also
// reports which source ∈ {database, llm, mock} served the request, per
// SPEC_FULL.md §4.1's quran_rag progress record contract.
func retrieve(ctx context.Context, corpusSearch corpus.CorpusSearch, embedder embeddings.Embeddings, query string) ([]state.VerseRecord, string, error) {
	source := retrievalSource(corpusSearch)
	if embedder == nil {
		verses, err := corpusSearch.SearchByText(ctx, query, ragTopK)
		return verses, source, err
	}
	vec, err := embedder.Embed(ctx, query)
	if err != nil {
		verses, err := corpusSearch.SearchByText(ctx, query, ragTopK)
		return verses, source, err
	}
	verses, err := corpusSearch.SearchByVector(ctx, vec, ragTopK, 0)
	return verses, source, err
}

// retrievalSource classifies the CorpusSearch implementation backing this
// run: the built-in seed corpus reports "mock", anything else reports
// "database". No CorpusSearch implementation in this tree is LLM-backed,
// but the "llm" literal is reserved by the contract for a future adapter.
func retrievalSource(corpusSearch corpus.CorpusSearch) string {
	if _, ok := corpusSearch.(*corpus.Mock); ok {
		return "mock"
	}
	return "database"
}

func summariseVerses(verses []state.VerseRecord) string {
	var b strings.Builder
	for i, v := range verses {
		if i > 0 {
			b.WriteString(" \n")
		}
		fmt.Fprintf(&b, "%s: %s", v.VerseKey, v.TextSimple)
	}
	return b.String()
}

package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/AiSchool-Admin/quran-miracles/internal/apperrors"
	"github.com/AiSchool-Admin/quran-miracles/internal/logging"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

// Postgres is the production CorpusSearch adapter, grounded on the
// original corpus's pgvector similarity query (verses.embedding_precise
// <=> $1::vector) and its joined tafseer lookup. It is written against
// the driver-agnostic database/sql interface: operators deploying against
// a real Postgres instance register a driver with a blank import
// (e.g. `_ "github.com/lib/pq"`) in cmd/discoveryd/main.go — see
// DESIGN.md for why no concrete driver is vendored in this tree.
type Postgres struct {
	db     *sql.DB
	logger logging.Logger
}

// NewPostgres opens a connection pool against databaseURL. The "postgres"
// driver name must have been registered by the caller's import set.
func NewPostgres(databaseURL string, logger logging.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "corpus.postgres", err)
	}
	return &Postgres{db: db, logger: logger}, nil
}

func (p *Postgres) SearchByVector(ctx context.Context, vec []float64, topK int, threshold float64) ([]state.VerseRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT surah_number, verse_number, text_uthmani, text_simple,
		       1 - (embedding_precise <=> $1) AS similarity
		FROM verses
		WHERE embedding_precise IS NOT NULL
		  AND 1 - (embedding_precise <=> $1) >= $2
		ORDER BY embedding_precise <=> $1
		LIMIT $3`, vectorLiteral(vec), threshold, topK)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "corpus.postgres.search_by_vector", err)
	}
	defer rows.Close()
	return scanVerses(rows)
}

func (p *Postgres) SearchByText(ctx context.Context, query string, topK int) ([]state.VerseRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT surah_number, verse_number, text_uthmani, text_simple, 0 AS similarity
		FROM verses
		WHERE text_simple ILIKE '%' || $1 || '%' OR text_uthmani ILIKE '%' || $1 || '%'
		LIMIT $2`, query, topK)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "corpus.postgres.search_by_text", err)
	}
	defer rows.Close()
	return scanVerses(rows)
}

func scanVerses(rows *sql.Rows) ([]state.VerseRecord, error) {
	var out []state.VerseRecord
	for rows.Next() {
		var v state.VerseRecord
		var similarity float64
		if err := rows.Scan(&v.SurahNumber, &v.VerseNumber, &v.TextUthmani, &v.TextSimple, &similarity); err != nil {
			return nil, apperrors.Wrap(apperrors.KindTransient, "corpus.postgres.scan", err)
		}
		v.VerseKey = fmt.Sprintf("%d:%d", v.SurahNumber, v.VerseNumber)
		v.Similarity = &similarity
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *Postgres) FetchExegesisFor(ctx context.Context, verseKeys []string) (map[string][]state.TafseerEntry, error) {
	out := make(map[string][]state.TafseerEntry, len(verseKeys))
	for _, key := range verseKeys {
		surah, verse, ok := splitVerseKey(key)
		if !ok {
			continue
		}
		rows, err := p.db.QueryContext(ctx, `
			SELECT tb.slug, tb.name_ar, t.text
			FROM tafseers t
			JOIN tafseer_books tb ON tb.id = t.book_id
			JOIN verses v ON v.id = t.verse_id
			WHERE v.surah_number = $1 AND v.verse_number = $2
			ORDER BY tb.priority_order`, surah, verse)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindTransient, "corpus.postgres.fetch_exegesis", err)
		}
		var entries []state.TafseerEntry
		for rows.Next() {
			var e state.TafseerEntry
			if err := rows.Scan(&e.Slug, &e.Name, &e.Text); err != nil {
				rows.Close()
				return nil, apperrors.Wrap(apperrors.KindTransient, "corpus.postgres.fetch_exegesis.scan", err)
			}
			entries = append(entries, e)
		}
		rows.Close()
		out[key] = entries
	}
	return out, nil
}

func splitVerseKey(key string) (int, int, bool) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	var surah, verse int
	if _, err := fmt.Sscanf(parts[0], "%d", &surah); err != nil {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &verse); err != nil {
		return 0, 0, false
	}
	return surah, verse, true
}

func vectorLiteral(vec []float64) string {
	parts := make([]string, len(vec))
	for i, f := range vec {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

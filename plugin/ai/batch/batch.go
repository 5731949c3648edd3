// Package batch embeds many texts at once over a bounded worker pool.
package batch

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"slices"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/olivesarenice/telegram-rag/plugin/ai"
)

// DefaultWorkers bounds concurrent embedding calls.
const DefaultWorkers = 8

// Vectorize embeds every text and returns the vectors in input order.
// A text that cannot be embedded yields a nil vector. It blocks until all
// texts are processed or ctx is cancelled.
func Vectorize(ctx context.Context, vectorizer ai.Vectorizer, texts []string, workers int) [][]float32 {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	vectors := make([][]float32, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			vectors[i] = vectorizer.Vectorize(ctx, text)
			return nil
		})
	}
	_ = g.Wait()
	return vectors
}

// Row is one line of vectorize output.
type Row struct {
	Row    int       `json:"row"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// ReadColumn reads the named column of a CSV with a header row.
func ReadColumn(r io.Reader, column string) ([]string, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read csv header")
	}
	idx := slices.Index(header, column)
	if idx < 0 {
		return nil, errors.Errorf("column %q not found in %v", column, header)
	}

	var texts []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read csv row %d", len(texts)+1)
		}
		texts = append(texts, record[idx])
	}
	return texts, nil
}

// Run embeds the column of in and writes one JSON line per row to out.
func Run(ctx context.Context, vectorizer ai.Vectorizer, in io.Reader, column string, out io.Writer, workers int) error {
	texts, err := ReadColumn(in, column)
	if err != nil {
		return err
	}

	vectors := Vectorize(ctx, vectorizer, texts, workers)
	if err := ctx.Err(); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	missing := 0
	for i, text := range texts {
		i, text := i, text
		if vectors[i] == nil {
			missing++
		}
		if err := enc.Encode(Row{Row: i, Text: text, Vector: vectors[i]}); err != nil {
			return errors.Wrap(err, "failed to write row")
		}
	}

	slog.Info("batch vectorized", "rows", len(texts), "unembedded", missing)
	return nil
}

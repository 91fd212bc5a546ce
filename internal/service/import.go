package service

import (
	"context"
	"fmt"

	"github.com/jask/moneyql/internal/csvimport"
	"github.com/jask/moneyql/internal/database"
	"github.com/jask/moneyql/internal/logger"
	"github.com/jask/moneyql/internal/statement"
)

// importFile classifies the file, parses every row and inserts the batch.
// A single bad row rejects the whole file.
func (e *Executor) importFile(ctx context.Context, s *statement.Import, dry bool) (Result, error) {
	log := logger.FromContext(ctx)

	raw, err := csvimport.ReadFile(s.Path)
	if err != nil {
		return Result{}, &database.IOError{Op: "read import", Path: s.Path, Err: err}
	}
	layout, err := csvimport.Classify(raw, e.SampleRows)
	if err != nil {
		return Result{}, fmt.Errorf("import %s: %w", s.Path, err)
	}
	log.Debug().Str("path", s.Path).Stringer("layout", layout).Msg("classified import file")

	parsed, err := csvimport.ParseRows(raw, layout, csvimport.Options{Inverse: s.Inverse})
	if err != nil {
		return Result{}, fmt.Errorf("import %s: %w", s.Path, err)
	}
	rows := make([]database.NewTransaction, len(parsed))
	for i, r := range parsed {
		rows[i] = database.NewTransaction{
			Date:        r.Date,
			Amount:      r.Amount,
			Description: r.Description,
			Inverted:    r.Inverted,
		}
	}

	if dry {
		return Result{Transactions: preview(s.Account, rows), Affected: len(rows), DryRun: true, Path: s.Path}, nil
	}
	inserted, err := e.Store.Insert(ctx, s.Account, rows, database.InsertOptions{ImportSource: s.Path})
	if err != nil {
		return Result{}, err
	}
	log.Info().Str("account", s.Account).Str("path", s.Path).Int("rows", len(inserted)).Msg("import committed")
	return Result{Transactions: inserted, Affected: len(inserted), Path: s.Path}, nil
}

package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/jask/moneyql/internal/database"
	"github.com/jask/moneyql/internal/statement"
)

// ExportHeader is the first row of every exported file. Re-importing an
// export recognises the date, amount and description columns by name.
var ExportHeader = []string{"id", "account", "date", "amount", "description", "labels"}

const (
	exportDayLayout = "2006-01-02"
	exportSheet     = "Transactions"
)

func (e *Executor) export(s *statement.Export, dry bool) (Result, error) {
	if err := e.checkAccount(s.Account); err != nil {
		return Result{}, err
	}
	txns := e.Store.Find(database.Query{Account: s.Account})
	res := Result{Transactions: txns, Affected: len(txns), Path: s.Path, DryRun: dry}
	if dry {
		return res, nil
	}
	if err := Export(s.Path, txns); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Export writes txns to path, as a workbook when path ends in .xlsx and as
// CSV otherwise. The destination is replaced atomically.
func Export(path string, txns []database.Transaction) error {
	write := writeCSV
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		write = writeWorkbook
	}
	if err := replaceFile(path, func(w io.Writer) error { return write(w, txns) }); err != nil {
		return &database.IOError{Op: "export", Path: path, Err: err}
	}
	return nil
}

func exportRecord(t database.Transaction) []string {
	return []string{
		strconv.FormatInt(t.ID, 10),
		t.Account,
		t.Date.Format(exportDayLayout),
		t.Amount.StringFixed(max(2, -t.Amount.Exponent())),
		t.Description,
		strings.Join(t.Labels, ", "),
	}
}

func writeCSV(w io.Writer, txns []database.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, t := range txns {
		if err := cw.Write(exportRecord(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeWorkbook(w io.Writer, txns []database.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return err
	}
	put := func(rowNum int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		vals := make([]any, len(cells))
		for i, c := range cells {
			vals[i] = c
		}
		return f.SetSheetRow(exportSheet, cell, &vals)
	}
	if err := put(1, ExportHeader); err != nil {
		return err
	}
	for i, t := range txns {
		if err := put(i+2, exportRecord(t)); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// replaceFile writes through a temporary sibling and renames it over path.
func replaceFile(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()
	if err = write(f); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Package history exports recorded comparisons as an Excel workbook.
package history

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/audit-cli/internal/model"
)

// SheetName is the worksheet holding the comparison rows.
const SheetName = "Comparaciones"

// Columns is the header row of the workbook.
var Columns = []string{
	"Fecha",
	"Sesión",
	"Análisis IA",
	"Análisis del auditor",
	"Resumen",
	"Efectividad",
	"Impacto",
	"Probabilidad",
	"Riesgo",
	"Nivel",
}

// WriteXLSX writes records to a new workbook at path, one row per record
// after the header.
func WriteXLSX(path string, records []model.ComparisonRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "history: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range Columns {
		header.AddCell().SetString(c)
	}

	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.CreatedAt.UTC().Format(time.RFC3339))
		row.AddCell().SetString(r.SessionID)
		row.AddCell().SetString(r.AIAnalysis)
		row.AddCell().SetString(r.UserAnalysis)
		row.AddCell().SetString(r.Result.Summary)
		row.AddCell().SetString(r.Result.Effectiveness)
		row.AddCell().SetFloat(r.Result.Impact)
		row.AddCell().SetFloat(r.Result.Probability)
		row.AddCell().SetFloat(r.Result.Risk)
		row.AddCell().SetString(r.Result.Level)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "history: save %s", path)
	}
	return nil
}

// ReadXLSX reads the comparison rows of a workbook written by WriteXLSX,
// skipping the header.
func ReadXLSX(path string) ([]model.ComparisonRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "history: open file")
	}
	sheet, ok := f.Sheet[SheetName]
	if !ok {
		return nil, eris.Errorf("history: sheet %q not found", SheetName)
	}

	var out []model.ComparisonRecord
	for i, row := range sheet.Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) < len(Columns) {
			return nil, eris.Errorf("history: row %d has %d cells, want %d", i+1, len(row.Cells), len(Columns))
		}
		rec, err := parseRow(row.Cells)
		if err != nil {
			return nil, eris.Wrapf(err, "history: row %d", i+1)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(cells []*xlsx.Cell) (model.ComparisonRecord, error) {
	var rec model.ComparisonRecord
	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339, cells[0].String()); err != nil {
		return rec, eris.Wrap(err, "parse date")
	}
	rec.SessionID = cells[1].String()
	rec.AIAnalysis = cells[2].String()
	rec.UserAnalysis = cells[3].String()
	rec.Result.Summary = cells[4].String()
	rec.Result.Effectiveness = cells[5].String()
	if rec.Result.Impact, err = cells[6].Float(); err != nil {
		return rec, eris.Wrap(err, "parse impact")
	}
	if rec.Result.Probability, err = cells[7].Float(); err != nil {
		return rec, eris.Wrap(err, "parse probability")
	}
	if rec.Result.Risk, err = cells[8].Float(); err != nil {
		return rec, eris.Wrap(err, "parse risk")
	}
	rec.Result.Level = cells[9].String()
	return rec, nil
}

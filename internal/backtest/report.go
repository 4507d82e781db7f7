package backtest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Report formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

const sheetName = "backtest"

var reportHeader = []string{
	"item_name", "code", "period", "fact", "predicted", "error",
	"actual_order", "predicted_order", "safety_stock",
}

// ParseFormat normalizes a format name; empty means CSV.
func ParseFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", format)
	}
}

// Encode renders rows in the given format.
func Encode(rows []domain.BacktestRow, format string) ([]byte, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return encodeXLSX(rows)
	}
	return encodeCSV(rows)
}

func encodeCSV(rows []domain.BacktestRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(reportHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write(rowStrings(row)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed writing csv report: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeXLSX(rows []domain.BacktestRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(reportHeader))
	for i, h := range reportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			row.ItemName, row.Code, row.Period, row.Fact, row.Predicted, row.Error,
			row.ActualOrder, row.PredictedOrder, row.SafetyStock,
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed writing xlsx report: %w", err)
	}
	return buf.Bytes(), nil
}

func rowStrings(row domain.BacktestRow) []string {
	return []string{
		row.ItemName,
		row.Code,
		row.Period,
		strconv.Itoa(row.Fact),
		strconv.Itoa(row.Predicted),
		strconv.Itoa(row.Error),
		strconv.Itoa(row.ActualOrder),
		strconv.Itoa(row.PredictedOrder),
		strconv.Itoa(row.SafetyStock),
	}
}

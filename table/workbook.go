package table

import (
	"bytes"
	"io"

	"github.com/extrame/xls"
)

// recordReader yields one record per call and io.EOF at the end, as
// encoding/csv does.
type recordReader interface {
	Read() ([]string, error)
}

type sliceReader struct {
	records [][]string
	next    int
}

func (s *sliceReader) Read() ([]string, error) {
	if s.next >= len(s.records) {
		return nil, io.EOF
	}
	s.next++
	return s.records[s.next-1], nil
}

// workbookRecords reads the first sheet of a legacy Excel workbook. Missing
// rows are skipped.
func workbookRecords(raw []byte) ([][]string, error) {
	spreadsheet, err := xls.OpenReader(bytes.NewReader(raw), "utf-8")
	if err != nil {
		return nil, err
	}

	if spreadsheet.NumSheets() < 1 {
		return nil, ErrEmpty
	}
	sheet := spreadsheet.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmpty
	}

	out := make([][]string, 0, int(sheet.MaxRow)+1)
	for rowID := 0; rowID <= int(sheet.MaxRow); rowID++ {
		row := sheet.Row(rowID)
		if row == nil {
			continue
		}

		record := make([]string, 0, row.LastCol()+1)
		for colID := 0; colID <= row.LastCol(); colID++ {
			record = append(record, row.Col(colID))
		}
		out = append(out, record)
	}

	return out, nil
}

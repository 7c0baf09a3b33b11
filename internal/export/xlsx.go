package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html/atom"

	"github.com/joseph-ayodele/handscribe/internal/common"
	"github.com/joseph-ayodele/handscribe/internal/htmltext"
)

const maxColWidth = 60

// TablesXLSX copies every <table> in content into its own sheet ("Table 1",
// "Table 2", ...). It returns the workbook bytes and the number of tables.
// Content without tables is an export error.
func TablesXLSX(content string) ([]byte, int, error) {
	body, err := htmltext.Parse(content)
	if err != nil {
		return nil, 0, common.NewKindError(common.KindExport, "Could not read the extracted tables.", err)
	}
	tables := htmltext.FindAll(body, atom.Table)
	if len(tables) == 0 {
		return nil, 0, common.NewKindError(common.KindExport, "The extracted text contains no tables.", nil)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, 0, fmt.Errorf("xlsx style: %w", err)
	}

	for i, table := range tables {
		sheet := fmt.Sprintf("Table %d", i+1)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, 0, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, 0, fmt.Errorf("new sheet: %w", err)
		}

		widths := map[int]int{}
		for r, tr := range htmltext.Rows(table) {
			for i, c := range htmltext.Cells(tr) {
				col := i + 1
				cell, _ := excelize.CoordinatesToCellName(col, r+1)
				text := htmltext.NodeText(c)
				_ = f.SetCellValue(sheet, cell, text)
				if c.DataAtom == atom.Th {
					_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
				}
				widths[col] = max(widths[col], len([]rune(text)))
			}
		}

		// Widen columns to their content
		for col, w := range widths {
			name, _ := excelize.ColumnNumberToName(col)
			_ = f.SetColWidth(sheet, name, name, float64(min(max(w+2, 10), maxColWidth)))
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), len(tables), nil
}

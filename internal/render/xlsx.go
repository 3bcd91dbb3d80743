package render

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const statementSheet = "Statement"

// tableStartRow is the header row of the transaction table.
const tableStartRow = 5

// XLSXRenderer writes the statement into a single worksheet.
type XLSXRenderer struct{}

func (XLSXRenderer) Format() string { return "xlsx" }
func (XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

var columnWidths = []struct {
	col   string
	width float64
}{
	{"A", 22},
	{"B", 10},
	{"C", 14},
	{"D", 36},
}

func (XLSXRenderer) Render(v View) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(statementSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	set := func(cell string, value any) {
		if err == nil {
			err = f.SetCellValue(statementSheet, cell, value)
		}
	}

	set("A1", v.Title())
	set("A2", v.PeriodLine())
	set("A3", v.DueLine())

	headers := []string{"Date", "Type", "Amount", "Description"}
	for i, h := range headers {
		set(fmt.Sprintf("%c%d", 'A'+i, tableStartRow), h)
	}
	for idx, l := range v.Lines {
		row := tableStartRow + 1 + idx
		set(fmt.Sprintf("A%d", row), l.Date)
		set(fmt.Sprintf("B%d", row), l.Kind)
		set(fmt.Sprintf("C%d", row), l.Amount)
		set(fmt.Sprintf("D%d", row), l.Description)
	}
	set(fmt.Sprintf("A%d", tableStartRow+len(v.Lines)+2), v.Footer)
	if err != nil {
		return nil, fmt.Errorf("write cells: %w", err)
	}

	for _, c := range columnWidths {
		if err = f.SetColWidth(statementSheet, c.col, c.col, c.width); err != nil {
			return nil, fmt.Errorf("set width of column %s: %w", c.col, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

package reports

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExcelExporter is a report that can be laid out as one header row plus data rows.
type ExcelExporter interface {
	SheetName() string
	Headings() []string
	CellRows() [][]interface{}
}

func (s *CashFlowSummary) SheetName() string { return "CashFlowSummary" }

func (s *CashFlowSummary) Headings() []string {
	return []string{"HandoverType", "Status", "Count", "ExpectedTotal", "ActualTotal", "DifferenceTotal"}
}

func (s *CashFlowSummary) CellRows() [][]interface{} {
	rows := make([][]interface{}, 0, len(s.Rows)+1)
	for _, r := range s.Rows {
		rows = append(rows, []interface{}{
			string(r.HandoverType), string(r.Status), r.Count,
			moneyCell(r.ExpectedTotal), moneyCell(r.ActualTotal), moneyCell(r.DifferenceTotal),
		})
	}
	rows = append(rows, []interface{}{"disputes", "", s.DisputeCount, "", "", ""})
	rows = append(rows, []interface{}{"pending", "", s.PendingCount, "", "", ""})
	return rows
}

func (r *BankDepositReport) SheetName() string { return "BankDeposits" }

func (r *BankDepositReport) Headings() []string {
	return []string{"Date", "Bank", "Reference", "Amount", "RunningTotal", "HandoverId"}
}

func (r *BankDepositReport) CellRows() [][]interface{} {
	rows := make([][]interface{}, 0, len(r.Items)+1)
	for _, d := range r.Items {
		amount := d.ExpectedAmount
		if d.ActualAmount != nil {
			amount = *d.ActualAmount
		}
		rows = append(rows, []interface{}{
			d.HandoverDate.Format("2006-01-02"),
			deref(d.BankName), deref(d.DepositReference),
			moneyCell(amount), moneyCell(d.RunningTotal), d.ID,
		})
	}
	rows = append(rows, []interface{}{"Total", "", "", moneyCell(r.Total), "", ""})
	return rows
}

// ExportExcel renders a report into xlsx bytes.
func ExportExcel(report ExcelExporter) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := report.SheetName()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for i, h := range report.Headings() {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}

	for r, values := range report.CellRows() {
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func moneyCell(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

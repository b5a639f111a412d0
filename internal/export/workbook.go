// Package export renders the ledger as an Excel workbook.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"expensetracker/internal/core"
	"expensetracker/internal/summary"
)

const (
	ExpensesSheet   = "Expenses"
	CategoriesSheet = "Categories"

	moneyFormat = "0.00"
)

// Workbook builds a workbook with one sheet listing every record and the
// balance, and one sheet with the category totals.
// On error the partially built workbook is closed and nil is returned.
func Workbook(records []core.Expense, totals summary.Totals, balance float64) (_ *excelize.File, err error) {
	xlsx := excelize.NewFile()
	defer func() {
		if err != nil {
			_ = xlsx.Close()
		}
	}()

	_ = xlsx.SetAppProps(&excelize.AppProperties{
		Application: "expensetracker",
	})

	first := xlsx.GetSheetName(xlsx.GetActiveSheetIndex())
	if err := xlsx.SetSheetName(first, ExpensesSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := xlsx.NewSheet(CategoriesSheet); err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}

	header, err := xlsx.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	money, err := xlsx.NewStyle(&excelize.Style{CustomNumFmt: strPtr(moneyFormat)})
	if err != nil {
		return nil, err
	}

	if err := writeExpenses(xlsx, records, balance, header, money); err != nil {
		return nil, err
	}
	if err := writeCategories(xlsx, totals, header, money); err != nil {
		return nil, err
	}
	return xlsx, nil
}

func writeExpenses(xlsx *excelize.File, records []core.Expense, balance float64, header, money int) error {
	sheet := ExpensesSheet
	_ = xlsx.SetColWidth(sheet, "A", "B", 20)
	_ = xlsx.SetColWidth(sheet, "C", "C", 14)

	if err := xlsx.SetSheetRow(sheet, "A1", &[]any{"Date", "Category", "Amount"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	_ = xlsx.SetCellStyle(sheet, "A1", "C1", header)

	row := 2
	for _, e := range records {
		if err := xlsx.SetSheetRow(sheet, cell('A', row), &[]any{e.Date, e.Category, e.Amount}); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		row++
	}
	if row > 2 {
		_ = xlsx.SetCellStyle(sheet, "C2", cell('C', row-1), money)
	}

	row++
	_ = xlsx.SetCellValue(sheet, cell('B', row), "Balance")
	_ = xlsx.SetCellValue(sheet, cell('C', row), balance)
	_ = xlsx.SetCellStyle(sheet, cell('B', row), cell('B', row), header)
	_ = xlsx.SetCellStyle(sheet, cell('C', row), cell('C', row), money)
	return nil
}

func writeCategories(xlsx *excelize.File, totals summary.Totals, header, money int) error {
	sheet := CategoriesSheet
	_ = xlsx.SetColWidth(sheet, "A", "A", 20)
	_ = xlsx.SetColWidth(sheet, "B", "B", 14)

	if err := xlsx.SetSheetRow(sheet, "A1", &[]any{"Category", "Total"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	_ = xlsx.SetCellStyle(sheet, "A1", "B1", header)

	for i, ct := range totals {
		row := i + 2
		if err := xlsx.SetSheetRow(sheet, cell('A', row), &[]any{ct.Category, ct.Total}); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		_ = xlsx.SetCellStyle(sheet, cell('B', row), cell('B', row), money)
	}
	return nil
}

// WriteFile saves the workbook for the given ledger contents to path.
func WriteFile(path string, records []core.Expense, totals summary.Totals, balance float64) error {
	xlsx, err := Workbook(records, totals, balance)
	if err != nil {
		return err
	}
	defer xlsx.Close()
	if err := xlsx.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func cell(col rune, row int) string {
	return fmt.Sprintf("%c%d", col, row)
}

func strPtr(s string) *string {
	return &s
}

// Package export renders the invoice register: an xlsx journal of
// invoices for accounting hand-off. Document rendering for clients
// (PDF, HTML) is out of scope and handled by external collaborators.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/atelierweb/billing-core/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(invoices []model.Invoice, year int) ([]byte, error) {
	file := excelize.NewFile()

	sheet := "Invoice register"
	file.SetSheetName("Sheet1", sheet)

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	title := "Invoice register"
	if year != 0 {
		title = fmt.Sprintf("Invoice register %d", year)
	}
	set("A1", title)
	set("A2", "Generated")
	set("B2", time.Now().UTC().Format("2006-01-02"))
	set("A3", "Invoices")
	set("B3", len(invoices))

	tableRow := 5
	headers := []string{
		"Number",
		"Issue date",
		"Due date",
		"Client",
		"Status",
		"Total HT",
		"TVA",
		"Total TTC",
		"Discount",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	totalHT := model.ZeroMoney
	totalTVA := model.ZeroMoney
	totalTTC := model.ZeroMoney

	for i, invoice := range invoices {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), invoice.Number)
		set(fmt.Sprintf("B%d", row), formatDate(invoice.IssueDate))
		set(fmt.Sprintf("C%d", row), formatDate(invoice.DueDate))
		set(fmt.Sprintf("D%d", row), clientName(invoice.Client))
		set(fmt.Sprintf("E%d", row), string(invoice.Status))
		set(fmt.Sprintf("F%d", row), invoice.TotalHT.String())
		set(fmt.Sprintf("G%d", row), invoice.TotalTVA.String())
		set(fmt.Sprintf("H%d", row), invoice.TotalTTC.String())
		set(fmt.Sprintf("I%d", row), invoice.Discount.String())

		totalHT = totalHT.Add(invoice.TotalHT)
		totalTVA = totalTVA.Add(invoice.TotalTVA)
		totalTTC = totalTTC.Add(invoice.TotalTTC)
	}

	sumRow := tableRow + len(invoices) + 2
	set(fmt.Sprintf("A%d", sumRow), "Total")
	set(fmt.Sprintf("F%d", sumRow), totalHT.String())
	set(fmt.Sprintf("G%d", sumRow), totalTVA.String())
	set(fmt.Sprintf("H%d", sumRow), totalTTC.String())

	_ = file.SetColWidth(sheet, "A", "A", 18)
	_ = file.SetColWidth(sheet, "B", "C", 12)
	_ = file.SetColWidth(sheet, "D", "D", 32)
	_ = file.SetColWidth(sheet, "E", "E", 10)
	_ = file.SetColWidth(sheet, "F", "I", 14)

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func FileName(year int) string {
	if year == 0 {
		return "invoice-register.xlsx"
	}
	return fmt.Sprintf("invoice-register-%d.xlsx", year)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func clientName(client *model.Client) string {
	if client == nil {
		return ""
	}
	return client.FullName
}

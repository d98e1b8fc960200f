// Package export 把战备快照写成 xlsx，供打印与归档
package export

import (
	"fmt"
	"sort"
	"strings"

	"guardiao/db"

	"github.com/xuri/excelize/v2"
)

const sheet = "Pronto"

var headers = []string{"Categoria", "Material", "Existente", "Em reserva", "Cautelado", "Destinos"}

// Header 报告抬头；快照当场生成时 Number 为 0
type Header struct {
	Number int
	Date   string
	Seal   string
}

// Readiness 生成一份工作簿；调用方负责 Close
func Readiness(h Header, snap *db.Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	title := "Pronto de armamento"
	if h.Number > 0 {
		title = fmt.Sprintf("Pronto de armamento nº %d", h.Number)
	}
	f.SetCellValue(sheet, "A1", title)
	f.SetCellValue(sheet, "A2", "Data: "+h.Date)
	if h.Seal != "" {
		f.SetCellValue(sheet, "D2", "Lacre: "+h.Seal)
	}

	const headerRow = 4
	for i, name := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s%d", col, headerRow)
		f.SetCellValue(sheet, cell, name)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	row := headerRow + 1
	var existing, reserve, loaned int
	for _, c := range snap.Categories {
		category := c.Category
		if category == "" {
			category = "Sem categoria"
		}
		for _, m := range c.Materials {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), category)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), m.Name)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), m.TotalExisting)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), m.TotalInReserve)
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), m.TotalLoaned)
			f.SetCellValue(sheet, fmt.Sprintf("F%d", row), destinations(m.Destinations))
			existing += m.TotalExisting
			reserve += m.TotalInReserve
			loaned += m.TotalLoaned
			row++
		}
	}

	// 底部汇总行
	summaryStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("C%d", row), existing)
	f.SetCellValue(sheet, fmt.Sprintf("D%d", row), reserve)
	f.SetCellValue(sheet, fmt.Sprintf("E%d", row), loaned)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row), summaryStyle)

	if len(snap.Cases) > 0 {
		row += 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Caixa")
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), "Responsável")
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), "Lacre")
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("C%d", row), boldStyle)
		for _, cs := range snap.Cases {
			row++
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), cs.Description)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), cs.Responsible)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), cs.Seal)
		}
	}

	colWidths := []float64{18, 28, 10, 12, 10, 40}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
	return f, nil
}

// destinations 按目的地名排序，"Guarita: 2; Portão: 1"
func destinations(d map[string]int) string {
	names := make([]string, 0, len(d))
	for k := range d {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s: %d", n, d[n]))
	}
	return strings.Join(parts, "; ")
}

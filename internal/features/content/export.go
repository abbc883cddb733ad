package content

import (
	"context"
	"fmt"
	"time"

	"estate-cms/internal/permissions"

	"github.com/xuri/excelize/v2"
)

// ExportToExcel renders the filtered items of one collection into an xlsx
// workbook. Returns the file bytes and a download filename.
func (s *ContentServiceImpl) ExportToExcel(ctx context.Context, collection permissions.Collection, filters ListItemFilters) ([]byte, string, error) {
	items, _, err := s.ListItems(ctx, collection, filters, 1, 200)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := string(collection)
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	columns := []string{"Title", "Slug", "Status", "Created By", "Created At", "Updated At", "Published At"}
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for row, item := range items {
		publishedAt := ""
		if item.PublishedAt != nil {
			publishedAt = item.PublishedAt.Format(time.RFC3339)
		}
		values := []interface{}{
			item.Title,
			item.Slug,
			string(item.Status),
			item.CreatedBy,
			item.CreatedAt.Format(time.RFC3339),
			item.UpdatedAt.Format(time.RFC3339),
			publishedAt,
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	f.SetActiveSheet(index)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("%s-%s.xlsx", collection, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportToExcel renders the filtered audit trail into an xlsx workbook.
// Returns the file bytes and a download filename.
func (s *AuditServiceImpl) ExportToExcel(ctx context.Context, filters ListFilters) ([]byte, string, error) {
	logs, _, err := s.ListLogs(ctx, filters, 1, 500)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Audit Trail"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	columns := []string{"Timestamp", "Action", "Success", "Level", "Actor", "Target", "Resource", "IP", "Error"}
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for row, entry := range logs {
		values := []interface{}{
			entry.Timestamp.Format(time.RFC3339),
			string(entry.Action),
			entry.Success,
			string(entry.Level),
			entry.UserEmail,
			entry.TargetUserEmail,
			entry.Resource,
			entry.IP,
			entry.ErrorMessage,
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

	filename := fmt.Sprintf("audit-trail-%s.xlsx", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

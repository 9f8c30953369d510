package widget

import (
	"fmt"

	"github.com/file-loader/backend/internal/models"
)

// Project derives the file list from slot state: one row per slot holding a
// file, in slot order. It is rebuilt in full on every call.
func Project(slotList []*models.Slot) []models.FileRow {
	rows := make([]models.FileRow, 0, len(slotList))
	for _, s := range slotList {
		if s.File == nil {
			continue
		}
		row := models.FileRow{
			SlotIndex:     s.Index,
			FileName:      s.File.Name,
			FormattedSize: FormatSize(s.File.Size),
		}
		if s.Category != nil {
			row.CategoryName = s.Category.Name
		}
		rows = append(rows, row)
	}
	return rows
}

// FormatSize renders a byte count as bytes, KB or MB.
func FormatSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%dbytes", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1fKB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1fMB", float64(n)/(1024*1024))
	}
}

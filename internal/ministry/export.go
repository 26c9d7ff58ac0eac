package ministry

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// BuildWorkbook renders rollups into a two-sheet spreadsheet for ministry
// reporting offices.
func BuildWorkbook(stats []Stats, courseStats []CourseStats) (*excelize.File, error) {
	f := excelize.NewFile()

	const ministrySheet = "Ministries"
	if err := f.SetSheetName("Sheet1", ministrySheet); err != nil {
		return nil, err
	}
	header := []any{"Ministry", "Learners", "Active (30d)", "Completed Enrollments", "Avg Quiz Score", "Overdue"}
	if err := writeRow(f, ministrySheet, 1, header); err != nil {
		return nil, err
	}
	for i, s := range stats {
		row := []any{s.Ministry, s.Learners, s.ActiveLearners, s.CompletedEnrollments, s.AverageQuizScore, s.OverdueEnrollments}
		if err := writeRow(f, ministrySheet, i+2, row); err != nil {
			return nil, err
		}
	}

	const courseSheet = "Courses"
	if _, err := f.NewSheet(courseSheet); err != nil {
		return nil, err
	}
	header = []any{"Ministry", "Course", "Enrolled", "Completed", "Completion Rate", "Avg Score", "Overdue"}
	if err := writeRow(f, courseSheet, 1, header); err != nil {
		return nil, err
	}
	for i, cs := range courseStats {
		row := []any{cs.Ministry, cs.CourseID, cs.Enrolled, cs.Completed, cs.CompletionRate, cs.AverageScore, cs.OverdueCount}
		if err := writeRow(f, courseSheet, i+2, row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	return f.SetSheetRow(sheet, cell, &values)
}

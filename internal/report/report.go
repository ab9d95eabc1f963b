// Package report exports the curriculum and one learner's progression as an
// Excel workbook.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-progress/internal/curriculum"
	"github.com/p-n-ai/pai-progress/internal/progression"
)

// Sheet names, in workbook order.
const (
	SheetDisciplines = "Disciplines"
	SheetSkills      = "Skills"
	SheetTiers       = "Tiers"
)

// Content is the read side of curriculum.Store used by the export.
type Content interface {
	DisciplineSummaries() []curriculum.DisciplineSummary
	SkillsOfDiscipline(id string) []curriculum.Skill
}

var headers = map[string][]any{
	SheetDisciplines: {"ID", "Code", "Name", "Skills", "Completed", "Available", "Locked", "Progress %"},
	SheetSkills:      {"Skill ID", "Discipline", "Name", "Difficulty", "Estimated Time", "Prerequisites", "Status"},
	SheetTiers:       {"Discipline", "Tier", "Position", "Skill ID", "Prerequisites", "Status", "XP Weight", "Synthetic"},
}

// WriteWorkbook writes an .xlsx with one row per discipline, per skill and
// per tier node. Statuses are computed against completed; pass an empty set
// for a content-only export.
func WriteWorkbook(w io.Writer, content Content, completed progression.Set) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetDisciplines); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetSkills, SheetTiers} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	rows := map[string]int{}
	appendRow := func(sheet string, values []any) error {
		rows[sheet]++
		cell, err := excelize.CoordinatesToCellName(1, rows[sheet])
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, rows[sheet], err)
		}
		return nil
	}

	for _, sheet := range []string{SheetDisciplines, SheetSkills, SheetTiers} {
		if err := appendRow(sheet, headers[sheet]); err != nil {
			return err
		}
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return fmt.Errorf("style %s header: %w", sheet, err)
		}
	}

	for _, d := range content.DisciplineSummaries() {
		skills := content.SkillsOfDiscipline(d.ID)
		tree := progression.BuildTree(skills, completed)

		if err := appendRow(SheetDisciplines, []any{
			d.ID, d.Code, d.Name, d.TotalSkills,
			tree.Stats.Completed, tree.Stats.Available, tree.Stats.Locked,
			tree.Stats.Percent,
		}); err != nil {
			return err
		}

		for i, s := range skills {
			node := tree.Nodes[i]
			if err := appendRow(SheetSkills, []any{
				s.ID, d.ID, s.Name, string(s.Difficulty), s.EstimatedTime,
				strings.Join(s.Prerequisites, ", "), string(node.Status),
			}); err != nil {
				return err
			}
			if err := appendRow(SheetTiers, []any{
				d.ID, node.Tier, node.Position, node.SkillID,
				strings.Join(node.Prerequisites, ", "), string(node.Status),
				node.XPWeight, tree.Synthetic,
			}); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(SheetSkills, "C", "C", 40); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

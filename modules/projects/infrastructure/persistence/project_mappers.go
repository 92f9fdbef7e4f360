package persistence

import (
	"github.com/kwatuha/imes-sub010/modules/projects/domain/entities/project"
)

// projectArgs returns the thirteen payload columns shared by insert and update.
func projectArgs(p *project.Project) []any {
	return []any{
		p.Name,
		nullText(p.RefNum),
		nullText(p.Description),
		nullText(p.Status),
		p.CostOfProject,
		p.PaidOut,
		p.Contracted,
		p.StartDate,
		p.EndDate,
		nullText(p.Directorate),
		p.SectionID,
		p.DepartmentID,
		p.FinYearID,
	}
}

func nullText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

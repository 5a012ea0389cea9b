package summary

import (
	"strings"

	"weekhours/internal/model"
)

// Linker assigns meeting titles to projects. Explicit mappings win; other
// titles are matched against project names and keywords and the result is
// remembered in the mapping.
type Linker struct {
	projects []model.Project
	mapping  map[string]string
	changed  bool
}

// NewLinker wraps mapping, which is updated in place by Assign.
func NewLinker(projects []model.Project, mapping map[string]string) *Linker {
	if mapping == nil {
		mapping = map[string]string{}
	}
	return &Linker{projects: projects, mapping: mapping}
}

// Assign returns the project for title, or "" when nothing matches.
func (l *Linker) Assign(title string) string {
	if p := l.mapping[title]; p != "" {
		return p
	}
	lower := strings.ToLower(title)
	for _, p := range l.projects {
		if matchesProject(lower, p) {
			l.mapping[title] = p.Name
			l.changed = true
			return p.Name
		}
	}
	return ""
}

func matchesProject(lowerTitle string, p model.Project) bool {
	candidates := append([]string{p.Name}, p.Keywords...)
	for _, kw := range candidates {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lowerTitle, kw) {
			return true
		}
	}
	return false
}

// Annotate fills Row.Project for every row.
func (l *Linker) Annotate(rows []Row) []Row {
	for i := range rows {
		rows[i].Project = l.Assign(rows[i].Title)
	}
	return rows
}

// Changed reports whether Assign recorded any new mapping.
func (l *Linker) Changed() bool {
	return l.changed
}

// Mapping returns the (possibly updated) title to project map.
func (l *Linker) Mapping() map[string]string {
	return l.mapping
}

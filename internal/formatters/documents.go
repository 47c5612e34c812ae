package formatters

import (
	"fmt"
	"strings"
	"time"

	"careerkit/internal/resume"
	"careerkit/internal/types"
)

// style holds the few differences between plain text and markdown output
type style struct {
	markdown bool
}

func (s style) title(b *strings.Builder, text string) {
	if s.markdown {
		b.WriteString("# " + text + "\n\n")
		return
	}
	b.WriteString("=== " + strings.ToUpper(text) + " ===\n\n")
}

func (s style) heading(b *strings.Builder, text string) {
	if s.markdown {
		b.WriteString("## " + text + "\n\n")
		return
	}
	b.WriteString(text + ":\n")
}

func (s style) field(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	if s.markdown {
		b.WriteString(fmt.Sprintf("**%s:** %s\n\n", name, value))
		return
	}
	b.WriteString(fmt.Sprintf("%s: %s\n", name, value))
}

func (s style) bullets(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	s.heading(b, title)
	for _, item := range items {
		b.WriteString(fmt.Sprintf("- %s\n", item))
	}
	b.WriteString("\n")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// ResumeFormatter prints a resume with its sections in display order
type ResumeFormatter struct {
	markdown bool
}

func (rf *ResumeFormatter) Format(data any) (string, error) {
	r, err := deref[types.Resume](data)
	if err != nil {
		return "", err
	}

	s := style{markdown: rf.markdown}
	var output strings.Builder
	s.title(&output, r.Title)
	s.field(&output, "ID", r.ID)
	s.field(&output, "Updated", formatTime(r.UpdatedAt))
	if r.Summary != "" {
		if !s.markdown {
			output.WriteString("\n")
		}
		output.WriteString(r.Summary)
		output.WriteString("\n\n")
	}

	for _, sec := range resume.Sort(r.Sections) {
		if !s.markdown {
			output.WriteString("\n")
		}
		s.heading(&output, sec.Title)
		output.WriteString(sec.Content)
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (rf *ResumeFormatter) SupportedType() string {
	return "Resume"
}

// PortfolioFormatter prints a portfolio and its projects
type PortfolioFormatter struct {
	markdown bool
}

func (pf *PortfolioFormatter) Format(data any) (string, error) {
	p, err := deref[types.Portfolio](data)
	if err != nil {
		return "", err
	}

	s := style{markdown: pf.markdown}
	var output strings.Builder
	s.title(&output, p.Title)
	s.field(&output, "ID", p.ID)
	if p.Description != "" {
		output.WriteString(p.Description)
		output.WriteString("\n\n")
	}

	for i, proj := range p.Projects {
		if s.markdown {
			output.WriteString(fmt.Sprintf("### %d. %s\n\n", i+1, proj.Name))
		} else {
			output.WriteString(fmt.Sprintf("%d. %s\n", i+1, proj.Name))
		}
		s.field(&output, "Repository", proj.Repository)
		s.field(&output, "Skills", strings.Join(proj.Skills, ", "))
		if proj.Description != "" {
			output.WriteString(proj.Description)
			output.WriteString("\n")
		}
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (pf *PortfolioFormatter) SupportedType() string {
	return "Portfolio"
}

// JobFormatter prints a job description record
type JobFormatter struct {
	markdown bool
}

func (jf *JobFormatter) Format(data any) (string, error) {
	j, err := deref[types.JobDescription](data)
	if err != nil {
		return "", err
	}

	s := style{markdown: jf.markdown}
	var output strings.Builder
	title := j.Title
	if j.Company != "" {
		title += " at " + j.Company
	}
	s.title(&output, title)
	s.field(&output, "ID", j.ID)
	s.field(&output, "Location", j.Location)
	s.field(&output, "URL", j.URL)
	output.WriteString("\n")
	if j.Description != "" {
		output.WriteString(j.Description)
		output.WriteString("\n\n")
	}
	s.bullets(&output, "Responsibilities", j.Responsibilities)
	s.bullets(&output, "Requirements", j.Requirements)
	s.bullets(&output, "Skills", j.Skills)

	return strings.TrimRight(output.String(), "\n") + "\n", nil
}

func (jf *JobFormatter) SupportedType() string {
	return "JobDescription"
}

// ListFormatter prints one line per stored document
type ListFormatter struct {
	markdown bool
}

func (lf *ListFormatter) Format(data any) (string, error) {
	type row struct{ id, title, detail string }
	var rows []row

	switch docs := data.(type) {
	case []types.Resume:
		for _, d := range docs {
			rows = append(rows, row{d.ID, d.Title, fmt.Sprintf("%d sections", len(d.Sections))})
		}
	case []types.Portfolio:
		for _, d := range docs {
			rows = append(rows, row{d.ID, d.Title, fmt.Sprintf("%d projects", len(d.Projects))})
		}
	case []types.JobDescription:
		for _, d := range docs {
			rows = append(rows, row{d.ID, d.Title, d.Company})
		}
	default:
		return "", fmt.Errorf("expected a document list, got %T", data)
	}

	if len(rows) == 0 {
		return "No documents found.\n", nil
	}

	var output strings.Builder
	if lf.markdown {
		output.WriteString("| ID | Title | Details |\n|---|---|---|\n")
		for _, r := range rows {
			output.WriteString(fmt.Sprintf("| %s | %s | %s |\n", r.id, r.title, r.detail))
		}
		return output.String(), nil
	}

	width := len("ID")
	for _, r := range rows {
		width = max(width, len(r.id))
	}
	for _, r := range rows {
		output.WriteString(fmt.Sprintf("%-*s  %s", width, r.id, r.title))
		if r.detail != "" {
			output.WriteString("  (" + r.detail + ")")
		}
		output.WriteString("\n")
	}
	return output.String(), nil
}

func (lf *ListFormatter) SupportedType() string {
	return "DocumentList"
}

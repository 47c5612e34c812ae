package formatters

import (
	"fmt"
	"strings"
	"time"

	"careerkit/internal/store"
	"careerkit/internal/types"
	"careerkit/internal/utils"
)

// checkbox renders a selection mark the way the picker does
func checkbox(mark string) string {
	switch mark {
	case types.MarkSelected:
		return "[x]"
	case types.MarkPartial:
		return "[-]"
	default:
		return "[ ]"
	}
}

// ListingTextFormatter prints a repository tree with selection marks
type ListingTextFormatter struct{}

func (lf *ListingTextFormatter) Format(data any) (string, error) {
	listing, err := deref[types.FileListing](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("=== %s", listing.Repository))
	if listing.Branch != "" {
		output.WriteString(fmt.Sprintf(" (%s)", listing.Branch))
	}
	output.WriteString(" ===\n\n")

	for _, e := range listing.Entries {
		output.WriteString(strings.Repeat("  ", e.Depth))
		output.WriteString(checkbox(e.Mark))
		output.WriteString(" ")
		output.WriteString(e.Name)
		if e.Directory {
			output.WriteString("/")
		} else {
			output.WriteString(fmt.Sprintf("  (%s)", utils.FormatFileSize(e.Size)))
		}
		output.WriteString("\n")
	}

	if len(listing.Orphans) > 0 {
		output.WriteString("\nEntries without a parent directory:\n")
		for _, p := range listing.Orphans {
			output.WriteString(fmt.Sprintf("- %s\n", p))
		}
	}

	output.WriteString(fmt.Sprintf("\nSelected: %d files, %s\n", listing.SelectedFiles, utils.FormatFileSize(listing.SelectedSize)))
	return output.String(), nil
}

func (lf *ListingTextFormatter) SupportedType() string {
	return "FileListing"
}

// ListingMarkdownFormatter prints a repository tree as a markdown task list
type ListingMarkdownFormatter struct{}

func (lmf *ListingMarkdownFormatter) Format(data any) (string, error) {
	listing, err := deref[types.FileListing](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("# %s\n\n", listing.Repository))
	if listing.Branch != "" {
		output.WriteString(fmt.Sprintf("**Branch:** %s\n\n", listing.Branch))
	}

	for _, e := range listing.Entries {
		box := "[ ]"
		if e.Mark == types.MarkSelected {
			box = "[x]"
		}
		name := "`" + e.Name + "`"
		if e.Directory {
			name = "**" + e.Name + "/**"
		}
		output.WriteString(fmt.Sprintf("%s- %s %s\n", strings.Repeat("  ", e.Depth), box, name))
	}

	output.WriteString(fmt.Sprintf("\n**Selected:** %d files, %s\n", listing.SelectedFiles, utils.FormatFileSize(listing.SelectedSize)))
	return output.String(), nil
}

func (lmf *ListingMarkdownFormatter) SupportedType() string {
	return "FileListing"
}

// TaskTextFormatter summarizes a save-files task
type TaskTextFormatter struct {
	markdown bool
}

func (tf *TaskTextFormatter) Format(data any) (string, error) {
	st, err := deref[types.SaveTaskStatus](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	heading, item := "=== SAVE TASK ===\n\n", "%s:\n"
	if tf.markdown {
		heading, item = "# Save Task\n\n", "## %s\n\n"
	}
	output.WriteString(heading)

	state := "in progress"
	switch {
	case st.Error != "":
		state = "failed: " + st.Error
	case st.Completed:
		state = "completed"
	}
	output.WriteString(fmt.Sprintf("Status: %s\n", state))
	output.WriteString(fmt.Sprintf("Progress: %d/%d files (%.0f%%)\n", st.CompletedFiles, st.TotalFiles, st.Progress))
	if st.SavedPath != "" {
		output.WriteString(fmt.Sprintf("Saved to: %s\n", st.SavedPath))
	}

	writeList := func(title string, paths []string) {
		if len(paths) == 0 {
			return
		}
		output.WriteString("\n")
		output.WriteString(fmt.Sprintf(item, title))
		for _, p := range paths {
			output.WriteString(fmt.Sprintf("- %s\n", p))
		}
	}
	writeList("Saved files", st.SavedFiles)
	writeList("Failed files", st.FailedFiles)

	return output.String(), nil
}

func (tf *TaskTextFormatter) SupportedType() string {
	return "SaveTaskStatus"
}

// SelectionsFormatter lists the selections kept in the local store
type SelectionsFormatter struct {
	markdown bool
}

func (sf *SelectionsFormatter) Format(data any) (string, error) {
	sels, ok := data.([]store.Selection)
	if !ok {
		return "", fmt.Errorf("expected []store.Selection, got %T", data)
	}
	if len(sels) == 0 {
		return "No saved selections.\n", nil
	}

	var output strings.Builder
	if sf.markdown {
		output.WriteString("| Repository | Branch | Paths | Saved |\n|---|---|---|---|\n")
		for _, s := range sels {
			output.WriteString(fmt.Sprintf("| %s | %s | %d | %s |\n",
				s.Repository, s.Branch, len(s.Paths), s.SavedAt.Format(time.DateTime)))
		}
		return output.String(), nil
	}

	for _, s := range sels {
		output.WriteString(fmt.Sprintf("%s (%s)  %d paths, saved %s\n",
			s.Repository, s.Branch, len(s.Paths), s.SavedAt.Format(time.DateTime)))
	}
	return output.String(), nil
}

func (sf *SelectionsFormatter) SupportedType() string {
	return "SelectionList"
}

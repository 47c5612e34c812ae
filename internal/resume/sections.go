// Package resume orders the sections of a resume document.
package resume

import (
	"cmp"
	"fmt"
	"slices"

	"careerkit/internal/errors"
	"careerkit/internal/types"
)

// Sort returns the sections ordered by their Order field. Ties keep their
// original relative order.
func Sort(sections []types.Section) []types.Section {
	out := slices.Clone(sections)
	slices.SortStableFunc(out, func(a, b types.Section) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return out
}

// Move returns a copy of sections with the section at index from placed at
// index to, renumbering Order 0..n-1. The input slice is not modified.
func Move(sections []types.Section, from, to int) ([]types.Section, error) {
	n := len(sections)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("cannot move section %d to %d: resume has %d sections", from, to, n), nil)
	}

	out := slices.Clone(sections)
	moved := out[from]
	out = slices.Delete(out, from, from+1)
	out = slices.Insert(out, to, moved)
	renumber(out)
	return out, nil
}

// MoveByID moves the section with the given id to index to
func MoveByID(sections []types.Section, id string, to int) ([]types.Section, error) {
	from := slices.IndexFunc(sections, func(s types.Section) bool { return s.ID == id })
	if from < 0 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("section %q not found", id), nil)
	}
	return Move(sections, from, to)
}

func renumber(sections []types.Section) {
	for i := range sections {
		sections[i].Order = i
	}
}

// Package fix applies autocorrect edits carried by diagnostics to files on
// disk (`garnet check --autocorrect`).
package fix

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"garnet/internal/core"
	"garnet/internal/diag"
	"garnet/internal/source"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// Files resolves file IDs; core.FileView implements it.
type Files interface {
	Get(id source.FileID) *core.File
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	Title     string
	Code      diag.Code
	Message   string
	Path      string
	EditCount int
}

// SkippedFix captures a skipped fix with a reason.
type SkippedFix struct {
	Title  string
	Path   string
	Reason string
}

// FileChange summarises modifications performed on a file.
type FileChange struct {
	Path      string
	EditCount int
}

// ApplyResult aggregates applied fixes, skipped ones, and file changes.
type ApplyResult struct {
	Applied     []AppliedFix
	Skipped     []SkippedFix
	FileChanges []FileChange
}

type candidate struct {
	diag  diag.Diagnostic
	fix   diag.Fix
	order int
}

// Apply applies every fix of ds in canonical diagnostic order. A fix whose
// edits overlap an already applied one, or that targets a virtual or payload
// file, is skipped as a whole. Changed files are rewritten in place.
func Apply(files Files, ds []diag.Diagnostic) (*ApplyResult, error) {
	result := &ApplyResult{}
	if files == nil {
		return result, fmt.Errorf("fix: no files")
	}
	candidates := gatherCandidates(ds)
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}
	sortCandidates(candidates)

	applied, skipped, changes, err := applyCandidates(files, candidates)
	result.Applied, result.Skipped, result.FileChanges = applied, skipped, changes
	if err != nil {
		return result, err
	}
	if len(result.Applied) == 0 {
		return result, ErrNoFixes
	}
	return result, nil
}

func gatherCandidates(ds []diag.Diagnostic) []candidate {
	var cands []candidate
	order := 0
	for _, d := range ds {
		for _, f := range d.Fixes {
			if len(f.Edits) == 0 {
				continue
			}
			cands = append(cands, candidate{diag: d, fix: f, order: order})
			order++
		}
	}
	return cands
}

// sortCandidates orders by file, span start, span end, then insertion order.
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := candidates[i].diag, candidates[j].diag
		if di.Primary.File != dj.Primary.File {
			return di.Primary.File < dj.Primary.File
		}
		if di.Primary.Start != dj.Primary.Start {
			return di.Primary.Start < dj.Primary.Start
		}
		if di.Primary.End != dj.Primary.End {
			return di.Primary.End < dj.Primary.End
		}
		return candidates[i].order < candidates[j].order
	})
}

func applyCandidates(files Files, selected []candidate) ([]AppliedFix, []SkippedFix, []FileChange, error) {
	buffers := make(map[source.FileID][]byte)
	appliedEdits := make(map[source.FileID][]diag.FixEdit)
	fileEditCount := make(map[source.FileID]int)

	var applied []AppliedFix
	var skipped []SkippedFix

	for _, cand := range selected {
		buckets := groupEditsByFile(cand.fix.Edits)
		staged := make(map[source.FileID][]byte)
		stagedApplied := make(map[source.FileID][]diag.FixEdit)
		totalEdits := 0
		var skipReason string

		// детерминированный порядок файлов внутри одного fix
		ids := make([]source.FileID, 0, len(buckets))
		for id := range buckets {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, fileID := range ids {
			edits := buckets[fileID]
			file := files.Get(fileID)
			switch {
			case file == nil || !file.Loaded():
				skipReason = "target file is not loaded"
			case file.Flags()&source.FileVirtual != 0:
				skipReason = "target file is virtual"
			case file.IsPayload():
				skipReason = "target file is part of the payload"
			case conflictsWithExisting(appliedEdits[fileID], edits):
				skipReason = "conflicts with previously applied edits in " + file.Path()
			}
			if skipReason != "" {
				break
			}

			base := buffers[fileID]
			if base == nil {
				base = file.Content()
			}
			working := append([]byte(nil), base...)

			// с конца файла, чтобы смещения оставшихся правок не съезжали
			sort.SliceStable(edits, func(i, j int) bool {
				if edits[i].Span.Start == edits[j].Span.Start {
					return edits[i].Span.End > edits[j].Span.End
				}
				return edits[i].Span.Start > edits[j].Span.Start
			})

			existing := append([]diag.FixEdit(nil), appliedEdits[fileID]...)
			for _, edit := range edits {
				start := int(edit.Span.Start) + cumulativeDelta(existing, int(edit.Span.Start))
				end := int(edit.Span.End) + cumulativeDelta(existing, int(edit.Span.End))
				if start < 0 || end < start || end > len(working) {
					skipReason = "edit span out of range"
					break
				}
				suffix := append([]byte(nil), working[end:]...)
				working = append(append(working[:start], edit.NewText...), suffix...)
			}
			if skipReason != "" {
				break
			}
			for _, edit := range edits {
				existing = insertEditSorted(existing, edit)
			}
			staged[fileID] = working
			stagedApplied[fileID] = existing
			totalEdits += len(edits)
		}

		if skipReason != "" {
			skipped = append(skipped, SkippedFix{
				Title:  cand.fix.Title,
				Path:   pathOf(files, cand.diag.Primary.File),
				Reason: skipReason,
			})
			continue
		}
		for fileID, buf := range staged {
			buffers[fileID] = buf
			appliedEdits[fileID] = stagedApplied[fileID]
			fileEditCount[fileID] += len(buckets[fileID])
		}
		applied = append(applied, AppliedFix{
			Title:     cand.fix.Title,
			Code:      cand.diag.Code,
			Message:   cand.diag.Message,
			Path:      pathOf(files, cand.diag.Primary.File),
			EditCount: totalEdits,
		})
	}

	if len(applied) == 0 {
		return applied, skipped, nil, nil
	}

	dirty := make([]source.FileID, 0, len(buffers))
	for id := range buffers {
		dirty = append(dirty, id)
	}
	sort.Slice(dirty, func(i, j int) bool { return dirty[i] < dirty[j] })

	changes := make([]FileChange, 0, len(dirty))
	for _, fileID := range dirty {
		path := files.Get(fileID).Path()
		mode := os.FileMode(0o644)
		if info, err := os.Stat(path); err == nil {
			mode = info.Mode()
		}
		if err := os.WriteFile(path, buffers[fileID], mode); err != nil {
			return applied, skipped, changes, fmt.Errorf("write %s: %w", path, err)
		}
		changes = append(changes, FileChange{Path: path, EditCount: fileEditCount[fileID]})
	}
	return applied, skipped, changes, nil
}

func conflictsWithExisting(existing, edits []diag.FixEdit) bool {
	for _, prev := range existing {
		for _, cand := range edits {
			if spansConflict(prev, cand) {
				return true
			}
		}
	}
	return false
}

// spansConflict: вставка конфликтует с заменой, если попадает в [start, end).
func spansConflict(a, b diag.FixEdit) bool {
	return a.Span.Overlaps(b.Span)
}

func groupEditsByFile(edits []diag.FixEdit) map[source.FileID][]diag.FixEdit {
	buckets := make(map[source.FileID][]diag.FixEdit)
	for _, edit := range edits {
		buckets[edit.Span.File] = append(buckets[edit.Span.File], edit)
	}
	return buckets
}

// cumulativeDelta is the size change of already applied edits that end at
// or before pos.
func cumulativeDelta(edits []diag.FixEdit, pos int) int {
	delta := 0
	for _, e := range edits {
		eStart := int(e.Span.Start)
		if eStart > pos {
			break
		}
		eEnd := int(e.Span.End)
		if eEnd <= pos {
			delta += len(e.NewText) - (eEnd - eStart)
		}
	}
	return delta
}

func insertEditSorted(edits []diag.FixEdit, edit diag.FixEdit) []diag.FixEdit {
	insertIdx := sort.Search(len(edits), func(i int) bool {
		if edits[i].Span.Start == edit.Span.Start {
			return edits[i].Span.End >= edit.Span.End
		}
		return edits[i].Span.Start > edit.Span.Start
	})
	edits = append(edits, diag.FixEdit{})
	copy(edits[insertIdx+1:], edits[insertIdx:])
	edits[insertIdx] = edit
	return edits
}

func pathOf(files Files, id source.FileID) string {
	if f := files.Get(id); f != nil {
		return f.Path()
	}
	return ""
}

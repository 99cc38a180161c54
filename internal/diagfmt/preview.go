package diagfmt

import (
	"bytes"
	"fmt"
	"strings"

	"garnet/internal/diag"
)

type fixEditPreview struct {
	before []string
	after  []string
}

// buildFixEditPreview returns the whole lines touched by edit, before and
// after applying it.
func buildFixEditPreview(files Files, edit diag.FixEdit) (fixEditPreview, error) {
	if files == nil {
		return fixEditPreview{}, fmt.Errorf("no files")
	}
	f := files.Get(edit.Span.File)
	if f == nil || !f.Loaded() {
		return fixEditPreview{}, fmt.Errorf("file %d not loaded", edit.Span.File)
	}
	content := f.Content()
	start, end := int(edit.Span.Start), int(edit.Span.End)
	if start > len(content) || end > len(content) || end < start {
		return fixEditPreview{}, fmt.Errorf("edit span %d..%d out of range", start, end)
	}

	blockStart := bytes.LastIndexByte(content[:start], '\n') + 1
	blockEnd := len(content)
	// правка, заканчивающаяся переводом строки, захватывает только свою строку
	from := end
	if end > start && content[end-1] == '\n' {
		from = end - 1
	}
	if nl := bytes.IndexByte(content[from:], '\n'); nl >= 0 {
		blockEnd = from + nl + 1
	}

	original := content[blockStart:blockEnd]
	after := make([]byte, 0, len(original)+len(edit.NewText))
	after = append(after, content[blockStart:start]...)
	after = append(after, edit.NewText...)
	after = append(after, content[end:blockEnd]...)

	return fixEditPreview{
		before: splitPreviewLines(original),
		after:  splitPreviewLines(after),
	}, nil
}

func splitPreviewLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	return strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
}

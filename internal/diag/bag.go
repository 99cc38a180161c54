package diag

import "garnet/internal/source"

// Bag collects diagnostics of one producer (typically one file in one phase).
// It is not safe for concurrent use; every worker owns its bags.
// A nil *Bag is empty and ignores Add.
type Bag struct {
	items   []Diagnostic
	limit   int // 0 = без лимита
	dropped int
}

func NewBag(limit int) *Bag {
	return &Bag{limit: max(limit, 0)}
}

// Add stores d unless the limit is reached; rejected diagnostics are counted.
func (b *Bag) Add(d Diagnostic) bool {
	if b == nil {
		return false
	}
	if b.limit > 0 && len(b.items) >= b.limit {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// Dropped сколько диагностик отброшено лимитом.
func (b *Bag) Dropped() int {
	if b == nil {
		return 0
	}
	return b.dropped
}

// Items returns the backing slice; callers copy before modifying it.
func (b *Bag) Items() []Diagnostic {
	if b == nil {
		return nil
	}
	return b.items
}

func (b *Bag) Sort() { SortDiagnostics(b.items) }

type dedupKey struct {
	code    Code
	primary source.Span
	msg     string
}

// Dedup drops repeats of the same code and message at the same span, keeping the first.
func (b *Bag) Dedup() {
	seen := make(map[dedupKey]struct{}, len(b.items))
	kept := b.items[:0]
	for _, d := range b.items {
		k := dedupKey{d.Code, d.Primary, d.Message}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, d)
	}
	clear(b.items[len(kept):])
	b.items = kept
}

// Package diag defines the diagnostic model shared by all pipeline phases.
//
// Diagnostic is the central record: severity, a numeric Code with a stable
// ID (PAR1001, RES5001, ...), a message, the primary span, optional notes
// and optional autocorrect fixes.
//
// Every Code carries the minimum strictness level (see source.StrictLevel)
// at which it is reported. Filtering by that level, by allow/deny lists and by
// silence mode happens in core.ErrorQueue, not here.
//
// Bag is a per-producer collection; phases running in parallel keep one bag
// per file and hand it to the driver, which merges them in input order.
// Diagnostics are values: Errorf and friends build one, WithNote and WithFix
// return modified copies, so a partially built diagnostic can be shared.
//
// Rendering lives in internal/diagfmt.
package diag

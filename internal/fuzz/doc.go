// Package fuzztests houses Go fuzz harnesses for the front of the garnet
// pipeline (content normalization, sigil detection, Ruby parsing). Its goal
// is to smoke test robustness and guard against panics or hangs on arbitrary
// inputs.
//
// Назначение: прогонять произвольные байты через source.Normalize,
// source.ParseSigil и rubyts-парсер.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
//
// Зависимости: internal/source, internal/frontend/rubyts, internal/ast.

package fuzztests

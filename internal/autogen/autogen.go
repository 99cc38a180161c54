// Package autogen extracts per-file definition and reference records used by
// code generators: a class list, a parent -> subclasses map, a readable dump
// and a msgpack encoding. It reads frozen global state only.
package autogen

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"garnet/internal/ast"
	"garnet/internal/core"
	"garnet/internal/source"
)

// FormatVersion is written into every msgpack record.
const FormatVersion = 1

// Def is one class or module definition site.
type Def struct {
	Name   string   `msgpack:"name"`
	Kind   string   `msgpack:"kind"`
	Parent string   `msgpack:"parent,omitempty"`
	Mixins []string `msgpack:"mixins,omitempty"`
	Line   uint32   `msgpack:"line"`
}

// Ref is one constant reference.
type Ref struct {
	Name     string `msgpack:"name"`
	Resolved string `msgpack:"resolved"`
	Line     uint32 `msgpack:"line"`
}

// ParsedFile holds the records of one source file.
type ParsedFile struct {
	Path string `msgpack:"path"`
	Defs []Def  `msgpack:"defs"`
	Refs []Ref  `msgpack:"refs"`
}

// Generate collects the records of f. Constants must already be resolved.
func Generate(view core.View, f *ast.File) *ParsedFile {
	g := &generator{view: view, file: view.Files.Get(f.File)}
	if g.file != nil {
		g.out.Path = g.file.Path()
	}
	g.nodes(f.Nodes)
	return &g.out
}

type generator struct {
	view core.View
	file *core.File
	out  ParsedFile
}

func (g *generator) line(sp source.Span) uint32 {
	if g.file == nil {
		return 0
	}
	return g.file.Position(sp.Start).Line
}

func (g *generator) name(ref core.SymbolRef) string {
	if !ref.IsValid() {
		return ""
	}
	return g.view.Symbols.FullName(ref)
}

func (g *generator) nodes(nodes []ast.Node) {
	for _, node := range nodes {
		switch n := node.(type) {
		case *ast.ClassDef:
			if n.Kind != ast.ScopeSingleton && n.Symbol.IsValid() {
				g.def(n)
			}
			g.nodes(n.Body)
		case *ast.MethodDef:
			g.nodes(n.Body)
		case *ast.ConstAssign:
			g.nodes(n.Value)
		case *ast.ConstRef:
			g.ref(&n.Path)
		case *ast.Mixin:
			g.ref(&n.Target)
		case *ast.Send:
			if n.Receiver != nil {
				g.ref(n.Receiver)
			}
			g.nodes(n.Block)
		}
	}
}

func (g *generator) def(n *ast.ClassDef) {
	sym := g.view.Symbols.Get(n.Symbol)
	d := Def{Name: g.name(n.Symbol), Kind: sym.Kind.String(), Line: g.line(n.Span)}
	if n.Superclass != nil {
		g.ref(n.Superclass)
		d.Parent = g.name(n.Superclass.Symbol)
	}
	for _, m := range sym.Mixins {
		d.Mixins = append(d.Mixins, g.name(m))
	}
	g.out.Defs = append(g.out.Defs, d)
}

func (g *generator) ref(p *ast.ConstPath) {
	resolved := g.name(p.Symbol)
	if p.Symbol == core.StubModule {
		resolved = ""
	}
	g.out.Refs = append(g.out.Refs, Ref{Name: p.String(), Resolved: resolved, Line: g.line(p.Span)})
}

// String renders the records in a stable, line-oriented form.
func (pf *ParsedFile) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# ParsedFile: %s\n", pf.Path)
	b.WriteString("definitions:\n")
	for i, d := range pf.Defs {
		fmt.Fprintf(&b, "[def id=%d]\n type=%s\n name=%s\n", i, d.Kind, d.Name)
		if d.Parent != "" {
			fmt.Fprintf(&b, " parent=%s\n", d.Parent)
		}
		if len(d.Mixins) > 0 {
			fmt.Fprintf(&b, " mixins=%s\n", strings.Join(d.Mixins, ","))
		}
		fmt.Fprintf(&b, " line=%d\n", d.Line)
	}
	b.WriteString("references:\n")
	for i, r := range pf.Refs {
		resolved := r.Resolved
		if resolved == "" {
			resolved = "<unresolved>"
		}
		fmt.Fprintf(&b, "[ref id=%d]\n name=%s\n resolved=%s\n line=%d\n", i, r.Name, resolved, r.Line)
	}
	return b.String()
}

type envelope struct {
	Version int    `msgpack:"version"`
	Path    string `msgpack:"path"`
	Defs    []Def  `msgpack:"defs"`
	Refs    []Ref  `msgpack:"refs"`
}

// Msgpack encodes the records with the format version.
func (pf *ParsedFile) Msgpack() ([]byte, error) {
	b, err := msgpack.Marshal(envelope{Version: FormatVersion, Path: pf.Path, Defs: pf.Defs, Refs: pf.Refs})
	if err != nil {
		return nil, fmt.Errorf("autogen msgpack %s: %w", pf.Path, err)
	}
	return b, nil
}

// Classlist returns the names of classes and modules defined in the file.
func (pf *ParsedFile) Classlist() []string {
	out := make([]string, 0, len(pf.Defs))
	for _, d := range pf.Defs {
		out = append(out, d.Name)
	}
	return out
}

// SubclassOptions select which parents are reported and which files are
// skipped.
type SubclassOptions struct {
	Parents        []string // пусто = все родители
	IgnoreAbsolute []string // префиксы пути
	IgnoreRelative []string // подпути, совпадают на границе каталога
}

// Ignored reports whether path matches one of the ignore patterns.
func (o SubclassOptions) Ignored(path string) bool {
	path = "/" + strings.TrimPrefix(source.NormalizePath(path), "/")
	for _, p := range o.IgnoreAbsolute {
		if strings.HasPrefix(path, "/"+strings.TrimPrefix(p, "/")) {
			return true
		}
	}
	for _, p := range o.IgnoreRelative {
		if strings.Contains(path, "/"+strings.TrimPrefix(p, "/")) {
			return true
		}
	}
	return false
}

// Subclasses maps each selected parent (superclass or mixin) to the
// definitions that name it.
func (pf *ParsedFile) Subclasses(opts SubclassOptions) map[string][]string {
	if opts.Ignored(pf.Path) {
		return nil
	}
	want := func(parent string) bool {
		return parent != "" && (len(opts.Parents) == 0 || slices.Contains(opts.Parents, parent))
	}
	out := make(map[string][]string)
	for _, d := range pf.Defs {
		if want(d.Parent) {
			out[d.Parent] = append(out[d.Parent], d.Name)
		}
		for _, m := range d.Mixins {
			if want(m) {
				out[m] = append(out[m], d.Name)
			}
		}
	}
	return out
}

// MergeClasslist joins per-file class lists, sorted and without duplicates.
func MergeClasslist(lists ...[]string) []string {
	var all []string
	for _, l := range lists {
		all = append(all, l...)
	}
	sort.Strings(all)
	return slices.Compact(all)
}

// MergeSubclasses unions per-file maps. Children of a parent come out sorted
// and unique.
func MergeSubclasses(maps ...map[string][]string) map[string][]string {
	out := make(map[string][]string)
	for _, m := range maps {
		for parent, children := range m {
			if parent == "" {
				continue
			}
			out[parent] = append(out[parent], children...)
		}
	}
	for parent, children := range out {
		sort.Strings(children)
		out[parent] = slices.Compact(children)
	}
	return out
}

// FormatSubclasses prints a merged map: each parent on its own line, sorted,
// followed by its children indented by one space.
func FormatSubclasses(m map[string][]string) string {
	parents := make([]string, 0, len(m))
	for p := range m {
		parents = append(parents, p)
	}
	sort.Strings(parents)
	var b strings.Builder
	for _, p := range parents {
		b.WriteString(p)
		b.WriteByte('\n')
		for _, c := range m[p] {
			b.WriteByte(' ')
			b.WriteString(c)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

package core

import (
	"fmt"
	"slices"
	"strings"

	"fortio.org/safecast"

	"garnet/internal/source"
)

// SymbolRef is a handle into the symbol arena. Relationships between symbols
// (owner, superclass, mixins, members) are stored as refs, so raw declaration
// cycles are harmless until resolve reports them.
type SymbolRef uint32

// Well-known symbols, allocated in this order by every fresh GlobalState.
const (
	NoSymbol SymbolRef = iota
	Root
	BasicObject
	Object
	Module
	Class
	Kernel
	StubModule
	firstFreeSymbol
)

// IsValid reports whether the ref points at an allocated symbol.
func (r SymbolRef) IsValid() bool { return r != NoSymbol }

// SymbolKind classifies a symbol.
type SymbolKind uint8

const (
	KindClass SymbolKind = iota + 1
	KindModule
	KindMethod
	KindConstant
)

func (k SymbolKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindModule:
		return "module"
	case KindMethod:
		return "method"
	case KindConstant:
		return "constant"
	}
	return "unknown"
}

// IsScope reports whether symbols of this kind can own members.
func (k SymbolKind) IsScope() bool { return k == KindClass || k == KindModule }

// SymbolFlags carries boolean attributes.
type SymbolFlags uint8

const (
	// FlagSingleton marks the singleton class of a class or module.
	FlagSingleton SymbolFlags = 1 << iota
	// FlagPayload marks symbols that belong to the baseline state.
	FlagPayload
	// FlagSynthesized marks methods created by DSL rewriting.
	FlagSynthesized
	// FlagSuperclassSet records that a superclass was declared explicitly.
	FlagSuperclassSet
	// FlagPlaceholder marks namespaces entered only as a prefix (`class A::B`
	// before any `module A`).
	FlagPlaceholder
)

// Arity describes the positional parameters of a method.
type Arity struct {
	Required int  `msgpack:"req"`
	Optional int  `msgpack:"opt"`
	Rest     bool `msgpack:"rest"`
	Keywords bool `msgpack:"kw"` // принимает key: value аргументы
}

// Accepts reports whether a call with n positional arguments fits.
func (a Arity) Accepts(n int) bool {
	if n < a.Required {
		return false
	}
	return a.Rest || n <= a.Required+a.Optional
}

func (a Arity) String() string {
	switch {
	case a.Rest:
		return fmt.Sprintf("%d+", a.Required)
	case a.Optional > 0:
		return fmt.Sprintf("%d..%d", a.Required, a.Required+a.Optional)
	}
	return fmt.Sprintf("%d", a.Required)
}

// Symbol is the stored record of a program entity.
type Symbol struct {
	Name       NameRef               `msgpack:"name"`
	Kind       SymbolKind            `msgpack:"kind"`
	Flags      SymbolFlags           `msgpack:"flags"`
	Owner      SymbolRef             `msgpack:"owner"`
	Locs       []source.Span         `msgpack:"locs"`
	Superclass SymbolRef             `msgpack:"super"`
	Mixins     []SymbolRef           `msgpack:"mixins"`  // include, in source order
	Extends    []SymbolRef           `msgpack:"extends"` // extend, in source order
	Members    map[NameRef]SymbolRef `msgpack:"members"`
	Singleton  SymbolRef             `msgpack:"singleton"`
	Attached   SymbolRef             `msgpack:"attached"` // for singleton classes
	Ancestors  []SymbolRef           `msgpack:"ancestors"`
	Arity      Arity                 `msgpack:"arity"`
}

// Loc returns the first definition site.
func (s *Symbol) Loc() source.Span {
	if len(s.Locs) == 0 {
		return source.Span{}
	}
	return s.Locs[0]
}

type symbolTable struct {
	data []Symbol // index 0 reserved for NoSymbol
}

func (t *symbolTable) alloc(sym Symbol) SymbolRef {
	n, err := safecast.Conv[uint32](len(t.data))
	if err != nil {
		panic(fmt.Errorf("symbol arena overflow: %w", err))
	}
	t.data = append(t.data, sym)
	return SymbolRef(n)
}

func (t *symbolTable) get(ref SymbolRef) *Symbol {
	if !ref.IsValid() || int(ref) >= len(t.data) {
		return nil
	}
	return &t.data[ref]
}

// SymbolView is a read-only handle to the symbol table. Safe for concurrent
// use while the table is frozen.
type SymbolView struct {
	t     *symbolTable
	names NameView
}

// Len counts allocated symbols without the sentinel.
func (v SymbolView) Len() int { return len(v.t.data) - 1 }

// Exists reports whether ref is allocated.
func (v SymbolView) Exists(ref SymbolRef) bool { return v.t.get(ref) != nil }

// Get returns a copy of the symbol record. Slices and maps inside the copy are
// shared with the table and must not be modified.
func (v SymbolView) Get(ref SymbolRef) Symbol {
	s := v.t.get(ref)
	if s == nil {
		return Symbol{}
	}
	return *s
}

// Kind returns the kind of ref, 0 for invalid refs.
func (v SymbolView) Kind(ref SymbolRef) SymbolKind {
	if s := v.t.get(ref); s != nil {
		return s.Kind
	}
	return 0
}

// Owner returns the lexical owner of ref.
func (v SymbolView) Owner(ref SymbolRef) SymbolRef {
	if s := v.t.get(ref); s != nil {
		return s.Owner
	}
	return NoSymbol
}

// Member looks up a direct member by name.
func (v SymbolView) Member(owner SymbolRef, name NameRef) (SymbolRef, bool) {
	s := v.t.get(owner)
	if s == nil || s.Members == nil {
		return NoSymbol, false
	}
	ref, ok := s.Members[name]
	return ref, ok
}

// Ancestors returns the linearized ancestor chain (self first). Before
// resolve has run it contains just the symbol itself.
func (v SymbolView) Ancestors(ref SymbolRef) []SymbolRef {
	s := v.t.get(ref)
	if s == nil {
		return nil
	}
	if len(s.Ancestors) == 0 {
		return []SymbolRef{ref}
	}
	return s.Ancestors
}

// IsSubclassOf reports whether parent appears among the ancestors of ref.
func (v SymbolView) IsSubclassOf(ref, parent SymbolRef) bool {
	return slices.Contains(v.Ancestors(ref), parent)
}

// LookupMethod finds an instance method of cls through its ancestors.
func (v SymbolView) LookupMethod(cls SymbolRef, name NameRef) (SymbolRef, bool) {
	for _, anc := range v.Ancestors(cls) {
		if m, ok := v.Member(anc, name); ok && v.Kind(m) == KindMethod {
			return m, true
		}
	}
	return NoSymbol, false
}

// LookupSingletonMethod finds a method callable on the class object cls:
// singleton methods of cls and its ancestors, methods of extended modules,
// then instance methods of Class (or Module for modules).
func (v SymbolView) LookupSingletonMethod(cls SymbolRef, name NameRef) (SymbolRef, bool) {
	for _, anc := range v.Ancestors(cls) {
		s := v.t.get(anc)
		if s == nil {
			continue
		}
		if s.Singleton.IsValid() {
			if m, ok := v.Member(s.Singleton, name); ok && v.Kind(m) == KindMethod {
				return m, true
			}
		}
		for _, ext := range s.Extends {
			if m, ok := v.LookupMethod(ext, name); ok {
				return m, true
			}
		}
	}
	meta := Class
	if v.Kind(cls) == KindModule {
		meta = Module
	}
	return v.LookupMethod(meta, name)
}

// SingletonOf returns the singleton class of cls if it was created.
func (v SymbolView) SingletonOf(cls SymbolRef) SymbolRef {
	if s := v.t.get(cls); s != nil {
		return s.Singleton
	}
	return NoSymbol
}

// FullName renders the constant path of ref, e.g. "A::B". Methods render as
// "A#m" (instance) or "A.m" (singleton).
func (v SymbolView) FullName(ref SymbolRef) string {
	s := v.t.get(ref)
	if s == nil {
		return "<none>"
	}
	switch {
	case ref == Root:
		return "<root>"
	case s.Flags&FlagSingleton != 0:
		return "<Class:" + v.FullName(s.Attached) + ">"
	case s.Kind == KindMethod:
		owner := v.t.get(s.Owner)
		if owner != nil && owner.Flags&FlagSingleton != 0 {
			return v.FullName(owner.Attached) + "." + v.names.Text(s.Name)
		}
		return v.FullName(s.Owner) + "#" + v.names.Text(s.Name)
	}
	parts := []string{v.names.Text(s.Name)}
	for owner := s.Owner; owner.IsValid() && owner != Root; {
		os := v.t.get(owner)
		if os == nil {
			break
		}
		parts = append(parts, v.names.Text(os.Name))
		owner = os.Owner
	}
	slices.Reverse(parts)
	return strings.Join(parts, "::")
}

// SymbolWriter is the freeze token of the symbol table.
type SymbolWriter struct {
	SymbolView
	tok *token
}

// UnfreezeSymbols opens the exclusive mutation window of the symbol table.
func (gs *GlobalState) UnfreezeSymbols() *SymbolWriter {
	return &SymbolWriter{SymbolView: gs.Symbols(), tok: gs.acquire(tableSymbols)}
}

// Freeze closes the window; further mutations panic.
func (w *SymbolWriter) Freeze() { w.tok.release() }

func (w *SymbolWriter) mut(ref SymbolRef, op string) *Symbol {
	w.tok.check(op)
	s := w.t.get(ref)
	if s == nil {
		panic(fmt.Sprintf("%s: invalid symbol ref %d", op, ref))
	}
	return s
}

func (w *SymbolWriter) enterMember(owner SymbolRef, name NameRef, sym Symbol) SymbolRef {
	sym.Owner = owner
	sym.Name = name
	ref := w.t.alloc(sym)
	o := w.t.get(owner)
	if o.Members == nil {
		o.Members = make(map[NameRef]SymbolRef)
	}
	o.Members[name] = ref
	return ref
}

// EnterScope returns the class or module `name` inside owner, creating it with
// the given kind if absent. An existing member of any kind is returned as is
// together with existed=true; callers report kind mismatches.
func (w *SymbolWriter) EnterScope(owner SymbolRef, name NameRef, kind SymbolKind, loc source.Span) (SymbolRef, bool) {
	w.mut(owner, "enter scope")
	if ref, ok := w.Member(owner, name); ok {
		s := w.t.get(ref)
		if loc != (source.Span{}) {
			s.Locs = append(s.Locs, loc)
		}
		return ref, true
	}
	sym := Symbol{Kind: kind}
	if loc != (source.Span{}) {
		sym.Locs = []source.Span{loc}
	}
	return w.enterMember(owner, name, sym), false
}

// EnterMethod defines method `name` on owner. When it already exists the old
// arity is returned so the caller can report incompatible redefinitions; the
// new arity replaces it.
func (w *SymbolWriter) EnterMethod(owner SymbolRef, name NameRef, arity Arity, loc source.Span) (ref SymbolRef, existed bool, prev Arity) {
	w.mut(owner, "enter method")
	if ref, ok := w.Member(owner, name); ok && w.Kind(ref) == KindMethod {
		s := w.t.get(ref)
		prev = s.Arity
		s.Arity = arity
		s.Locs = append(s.Locs, loc)
		return ref, true, prev
	}
	return w.enterMember(owner, name, Symbol{Kind: KindMethod, Arity: arity, Locs: []source.Span{loc}}), false, Arity{}
}

// EnterConstant defines a static constant `name` on owner.
func (w *SymbolWriter) EnterConstant(owner SymbolRef, name NameRef, loc source.Span) (SymbolRef, bool) {
	w.mut(owner, "enter constant")
	if ref, ok := w.Member(owner, name); ok {
		s := w.t.get(ref)
		s.Locs = append(s.Locs, loc)
		return ref, true
	}
	return w.enterMember(owner, name, Symbol{Kind: KindConstant, Locs: []source.Span{loc}}), false
}

// SingletonClass returns the singleton class of cls, creating it on first use.
func (w *SymbolWriter) SingletonClass(cls SymbolRef) SymbolRef {
	s := w.mut(cls, "singleton class")
	if s.Singleton.IsValid() {
		return s.Singleton
	}
	single := w.t.alloc(Symbol{
		Name:     s.Name,
		Kind:     KindClass,
		Flags:    FlagSingleton | (s.Flags & FlagPayload),
		Owner:    s.Owner,
		Attached: cls,
		Locs:     slices.Clone(s.Locs[:min(len(s.Locs), 1)]),
	})
	// alloc may have grown the arena; re-read the pointer
	w.t.get(cls).Singleton = single
	return single
}

// SetSuperclass records the superclass of cls.
func (w *SymbolWriter) SetSuperclass(cls, super SymbolRef) {
	s := w.mut(cls, "set superclass")
	s.Superclass = super
	s.Flags |= FlagSuperclassSet
}

// DefaultSuperclass sets the implicit superclass of cls when none was
// declared. It does not count as a declaration.
func (w *SymbolWriter) DefaultSuperclass(cls, super SymbolRef) {
	s := w.mut(cls, "default superclass")
	if s.Flags&FlagSuperclassSet == 0 {
		s.Superclass = super
	}
}

// AddMixin records `include mod` in cls. Duplicates are ignored.
func (w *SymbolWriter) AddMixin(cls, mod SymbolRef) {
	s := w.mut(cls, "add mixin")
	if !slices.Contains(s.Mixins, mod) {
		s.Mixins = append(s.Mixins, mod)
	}
}

// AddExtend records `extend mod` in cls. Duplicates are ignored.
func (w *SymbolWriter) AddExtend(cls, mod SymbolRef) {
	s := w.mut(cls, "add extend")
	if !slices.Contains(s.Extends, mod) {
		s.Extends = append(s.Extends, mod)
	}
}

// SetMixins replaces the include list of cls. Used to break cycles.
func (w *SymbolWriter) SetMixins(cls SymbolRef, mixins []SymbolRef) {
	w.mut(cls, "set mixins").Mixins = mixins
}

// SetAncestors stores the linearization computed by resolve.
func (w *SymbolWriter) SetAncestors(ref SymbolRef, ancestors []SymbolRef) {
	w.mut(ref, "set ancestors").Ancestors = ancestors
}

// SetFlags ORs flags into ref.
func (w *SymbolWriter) SetFlags(ref SymbolRef, flags SymbolFlags) {
	w.mut(ref, "set flags").Flags |= flags
}

// ClearFlags removes flags from ref.
func (w *SymbolWriter) ClearFlags(ref SymbolRef, flags SymbolFlags) {
	w.mut(ref, "clear flags").Flags &^= flags
}

// SetKind changes the kind of a symbol that was entered as a placeholder
// (e.g. an intermediate namespace of `class A::B`).
func (w *SymbolWriter) SetKind(ref SymbolRef, kind SymbolKind) {
	w.mut(ref, "set kind").Kind = kind
}

// EnterClass is EnterScope for classes.
func (w *SymbolWriter) EnterClass(owner SymbolRef, name NameRef, loc source.Span) (SymbolRef, bool) {
	return w.EnterScope(owner, name, KindClass, loc)
}

// EnterModule is EnterScope for modules.
func (w *SymbolWriter) EnterModule(owner SymbolRef, name NameRef, loc source.Span) (SymbolRef, bool) {
	return w.EnterScope(owner, name, KindModule, loc)
}

// SetArity overrides the arity of a method symbol.
func (w *SymbolWriter) SetArity(ref SymbolRef, arity Arity) {
	w.mut(ref, "set arity").Arity = arity
}

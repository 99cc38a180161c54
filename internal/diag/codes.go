package diag

import (
	"fmt"
	"strconv"

	"fortio.org/safecast"

	"garnet/internal/source"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Чтение и разбор файлов
	ParseError         Code = 1001
	ParseInvalidSigil  Code = 1002
	ParseReadFailed    Code = 1003
	ParseEmptyConstant Code = 1004

	// DSL-переписывание
	DSLPluginFailed   Code = 2001
	DSLBadArgument    Code = 2002
	DSLUnknownTrigger Code = 2003

	// Namer
	NameRedefinitionOfMethod   Code = 4001
	NameModuleKindRedefinition Code = 4002
	NameConstantReassignment   Code = 4003
	NameDynamicConstantScope   Code = 4004

	// Resolver
	ResolveStubConstant          Code = 5001
	ResolveCircularDependency    Code = 5002
	ResolveRedefinitionOfParents Code = 5003
	ResolveSuperclassNotClass    Code = 5004
	ResolveMixinNotModule        Code = 5005

	// Проверка вызовов
	InferUnknownMethod           Code = 7001
	InferArgumentCountMismatch   Code = 7002
	InferUnknownSingletonMethod  Code = 7003
	InferSuggestTyped            Code = 7022

	// Внутренние
	InternalError Code = 9001
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	ParseError:         "Syntax error",
	ParseInvalidSigil:  "Invalid typed sigil",
	ParseReadFailed:    "Failed to read source file",
	ParseEmptyConstant: "Empty constant path",

	DSLPluginFailed:   "DSL plugin failed",
	DSLBadArgument:    "Unsupported DSL argument",
	DSLUnknownTrigger: "DSL plugin script not found",

	NameRedefinitionOfMethod:   "Method redefined with a different signature",
	NameModuleKindRedefinition: "Class and module redefinition mismatch",
	NameConstantReassignment:   "Constant reassigned",
	NameDynamicConstantScope:   "Constant defined inside a method",

	ResolveStubConstant:          "Unable to resolve constant",
	ResolveCircularDependency:    "Circular superclass dependency",
	ResolveRedefinitionOfParents: "Parent class redefined",
	ResolveSuperclassNotClass:    "Superclass is not a class",
	ResolveMixinNotModule:        "Mixin is not a module",

	InferUnknownMethod:          "Method does not exist",
	InferArgumentCountMismatch:  "Wrong number of arguments",
	InferUnknownSingletonMethod: "Singleton method does not exist",
	InferSuggestTyped:           "File could use a stricter sigil",

	InternalError: "Internal error",
}

// levelOverride lists codes whose reporting level differs from their range default.
var levelOverride = map[Code]source.StrictLevel{
	InferSuggestTyped: source.StrictIgnore,
	ParseReadFailed:   source.StrictIgnore,
}

// ID returns the stable short identifier of the code, e.g. RES5001.
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("PAR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("DSL%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("NAM%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("INF%04d", ic)
	case ic >= 9000 && ic < 10000:
		return fmt.Sprintf("INT%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Level is the minimum effective strictness at which the code is reported.
func (c Code) Level() source.StrictLevel {
	if lvl, ok := levelOverride[c]; ok {
		return lvl
	}
	switch ic := int(c); {
	case ic >= 7000 && ic < 8000:
		return source.StrictTrue
	case ic >= 9000:
		return source.StrictIgnore
	}
	return source.StrictFalse
}

// ParseCode accepts either the numeric form ("5001") or the ID form ("RES5001").
func ParseCode(s string) (Code, error) {
	if n, err := strconv.Atoi(s); err == nil {
		v, convErr := safecast.Conv[uint16](n)
		if convErr != nil {
			return UnknownCode, fmt.Errorf("diagnostic code %q out of range: %w", s, convErr)
		}
		return Code(v), nil
	}
	for c := range codeDescription {
		if c.ID() == s {
			return c, nil
		}
	}
	return UnknownCode, fmt.Errorf("unknown diagnostic code %q", s)
}

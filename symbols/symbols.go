// Package symbols holds the shape graph built by inference: the Library of
// variables and types accumulated across parsed documents, and the
// per-parse references that keep cross-document cleanup honest.
package symbols

import "strings"

// VariableKind classifies what a variable is within its parent scope.
type VariableKind int

const (
	Default VariableKind = iota
	Field
	TableValue
	Function
	Method
)

// ValueKind tags the variant held by a ValueData.
type ValueKind int

const (
	InvalidValue ValueKind = iota
	NumberValue
	StringValue
	BooleanValue
	NilValue
	ReferenceValue
	VariableArgumentValue
)

// ValueData is the constant-folded value of an expression or the key of a
// table entry.
type ValueData struct {
	Kind      ValueKind
	Number    float64
	String    string
	Boolean   bool
	Reference *Variable
}

// NumberData returns a numeric ValueData.
func NumberData(n float64) ValueData { return ValueData{Kind: NumberValue, Number: n} }

// StringData returns a string ValueData.
func StringData(s string) ValueData { return ValueData{Kind: StringValue, String: s} }

// BooleanData returns a boolean ValueData.
func BooleanData(b bool) ValueData { return ValueData{Kind: BooleanValue, Boolean: b} }

// NilData returns the nil ValueData.
func NilData() ValueData { return ValueData{Kind: NilValue} }

// ReferenceData returns a ValueData referring to another variable.
func ReferenceData(v *Variable) ValueData { return ValueData{Kind: ReferenceValue, Reference: v} }

// Equals compares two values structurally. Nil and invalid values never
// compare equal, matching table-key semantics.
func (v ValueData) Equals(rhs ValueData) bool {
	switch v.Kind {
	case BooleanValue:
		return rhs.Kind == BooleanValue && v.Boolean == rhs.Boolean
	case NumberValue:
		return rhs.Kind == NumberValue && v.Number == rhs.Number
	case StringValue:
		return rhs.Kind == StringValue && v.String == rhs.String
	case ReferenceValue:
		return rhs.Kind == ReferenceValue && v.Reference == rhs.Reference
	default:
		return false
	}
}

// EqualsString reports whether the value is the given string.
func (v ValueData) EqualsString(s string) bool {
	return v.Kind == StringValue && v.String == s
}

// Symbol is anything identified by name: the common core of Variable and
// Type.
type Symbol struct {
	Name         string
	ResolvedType *Type
	Parent       *Symbol
	Members      []*Variable
	RefCount     uint

	owner          *Library
	hasClearedRefs bool
}

// Entry is implemented by Variable and Type; it exposes the embedded Symbol
// and the type-specific reference sweep.
type Entry interface {
	Base() *Symbol
	clean()
}

func (s *Symbol) Base() *Symbol { return s }

// GetResolvedType follows the resolved-type chain to its root. Roots point
// at themselves. Safe on a nil receiver.
func (s *Symbol) GetResolvedType() *Type {
	if s == nil {
		return nil
	}
	t := s.ResolvedType
	for t != nil {
		if t.ResolvedType == t {
			break
		}
		t = t.ResolvedType
	}
	return t
}

// GetResolvedType on a Type is safe on a nil receiver; absence propagates
// instead of failing.
func (t *Type) GetResolvedType() *Type {
	if t == nil {
		return nil
	}
	return t.Symbol.GetResolvedType()
}

// GetResolvedType on a Variable is safe on a nil receiver.
func (v *Variable) GetResolvedType() *Type {
	if v == nil {
		return nil
	}
	return v.Symbol.GetResolvedType()
}

func (s *Symbol) cleanCommon() {
	s.Parent = cleanSymbol(s.Parent)
	if s.ResolvedType != nil && s.ResolvedType.RefCount == 0 {
		s.ResolvedType = nil
	}
	s.Members = cleanMembers(s.Members)
}

func cleanSymbol(s *Symbol) *Symbol {
	if s != nil && s.RefCount == 0 {
		return nil
	}
	return s
}

func cleanType(t *Type) *Type {
	if t != nil && t.RefCount == 0 {
		return nil
	}
	return t
}

func cleanMembers(members []*Variable) []*Variable {
	kept := members[:0]
	for _, m := range members {
		if m != nil && m.RefCount > 0 {
			kept = append(kept, m)
		}
	}
	return kept
}

func cleanTypes(types []*Type) []*Type {
	kept := types[:0]
	for _, t := range types {
		if t != nil && t.RefCount > 0 {
			kept = append(kept, t)
		}
	}
	return kept
}

// Variable is a global, local or member variable. A table entry additionally
// carries the key it is stored under in its parent table.
type Variable struct {
	Symbol
	Kind        VariableKind
	Predictive  bool
	Value       ValueData
	ValueKind   VariableKind
	IsParameter bool

	// Table-entry payload.
	TableEntry      bool
	Index           ValueData
	IndexExpression bool
}

func (v *Variable) clean() {
	if v.hasClearedRefs {
		return
	}
	v.hasClearedRefs = true
	v.cleanCommon()

	if v.Value.Kind == ReferenceValue && v.Value.Reference != nil && v.Value.Reference.RefCount == 0 {
		v.Value.Reference = nil
	}
	if v.TableEntry && v.Index.Kind == ReferenceValue && v.Index.Reference != nil && v.Index.Reference.RefCount == 0 {
		v.Index.Reference = nil
	}
}

// Type is a resolved type: possibly a tuple (MultipleTypes), a union
// (PossibleTypes) or a callable with a ReturnType.
type Type struct {
	Symbol
	MultipleTypes []*Type
	PossibleTypes []*Type
	Predictive    bool
	ReturnType    *Type
}

func (t *Type) clean() {
	if t.hasClearedRefs {
		return
	}
	t.hasClearedRefs = true
	t.cleanCommon()

	t.ReturnType = cleanType(t.ReturnType)
	t.MultipleTypes = cleanTypes(t.MultipleTypes)
	t.PossibleTypes = cleanTypes(t.PossibleTypes)
}

// CopyType overwrites this type's content with newType's, preserving the
// receiver's identity so outstanding references stay valid. This is how a
// predictive type is upgraded in place once a concrete assignment arrives.
func (t *Type) CopyType(newType *Type) {
	if newType == nil || newType == t {
		return
	}

	t.Name = newType.Name
	t.MultipleTypes = newType.MultipleTypes
	t.PossibleTypes = newType.PossibleTypes
	t.ReturnType = newType.ReturnType

	t.Parent = newType.Parent
	t.Members = append(t.Members, newType.Members...)
}

// LibraryReference records every symbol one parse observed. Releasing it
// decrements those counts and sweeps the library.
type LibraryReference struct {
	library    *Library
	References map[Entry]uint
	released   bool
}

// Release decrements every reference this parse incremented and sweeps the
// library. Releasing twice is a no-op.
func (r *LibraryReference) Release() {
	if r == nil || r.released {
		return
	}
	r.released = true

	for entry, count := range r.References {
		sym := entry.Base()
		if sym.RefCount >= count {
			sym.RefCount -= count
		} else {
			sym.RefCount = 0
		}
	}

	r.library.Clean()
}

// Library owns every symbol created by inference. It carries the global
// table, the name-indexed globals, and the base type registry.
type Library struct {
	All  []Entry
	Temp []Entry

	GlobalTable   *Variable
	Globals       []*Variable
	GlobalsByName map[string]*Variable

	BaseTypes map[string]*Type

	// CurrentRef is the reference that records symbol observations during
	// the active parse. Nil outside of inference.
	CurrentRef *LibraryReference

	// baseRef pins the base types and the global table so no sweep can
	// collect them.
	baseRef *LibraryReference

	functionCounter int
}

var baseTypeNames = []string{
	"Nil", "Boolean", "Number", "String", "Function",
	"Userdata", "Thread", "Table", "VariableArgument",
}

// NewLibrary creates a library populated with the base types and the
// distinguished _G global table.
func NewLibrary() *Library {
	lib := &Library{
		GlobalsByName: make(map[string]*Variable),
		BaseTypes:     make(map[string]*Type),
	}
	lib.baseRef = lib.NewReference()
	lib.CurrentRef = lib.baseRef

	for _, name := range baseTypeNames {
		lib.CreateBaseType(name)
	}

	globalTableType := lib.CreateBlankType("Table")
	g := lib.CreateVariable("_G", false)
	g.ResolvedType = globalTableType
	lib.GlobalTable = g

	lib.CurrentRef = nil
	return lib
}

// NewReference creates an empty per-parse reference ticket.
func (lib *Library) NewReference() *LibraryReference {
	return &LibraryReference{
		library:    lib,
		References: make(map[Entry]uint),
	}
}

func (lib *Library) addReference(entry Entry) {
	if lib.CurrentRef == nil {
		return
	}
	entry.Base().RefCount++
	lib.CurrentRef.References[entry]++
}

// BaseType returns the registered base type, or nil when the name is not a
// base type.
func (lib *Library) BaseType(name string) *Type {
	return lib.BaseTypes[name]
}

// CreateBaseType registers a singleton base type.
func (lib *Library) CreateBaseType(name string) *Type {
	t := lib.CreateType(name)
	lib.BaseTypes[name] = t
	return t
}

// CreateType creates a rooted type symbol.
func (lib *Library) CreateType(name string) *Type {
	t := &Type{Symbol: Symbol{Name: name, owner: lib, hasClearedRefs: true}}
	t.ResolvedType = t
	lib.All = append(lib.All, t)
	lib.addReference(t)
	return t
}

// CreateBlankType creates an unrooted type in the temp set. Blank types are
// used for predictions, unions and constructor results.
func (lib *Library) CreateBlankType(name string) *Type {
	t := &Type{Symbol: Symbol{Name: name, owner: lib, hasClearedRefs: true}}
	t.ResolvedType = t
	lib.Temp = append(lib.Temp, t)
	lib.addReference(t)
	return t
}

// CreatePredictiveType creates a blank predictive type.
func (lib *Library) CreatePredictiveType() *Type {
	t := lib.CreateBlankType("Predictive")
	t.Predictive = true
	return t
}

// CreateVariable creates a variable. A global with the same name resolves to
// the existing symbol instead of creating a duplicate; new globals are added
// to the global table's members.
func (lib *Library) CreateVariable(name string, global bool) *Variable {
	if global {
		if existing, ok := lib.GlobalsByName[name]; ok {
			lib.addReference(existing)
			return existing
		}
	}

	v := &Variable{Symbol: Symbol{Name: name, owner: lib, hasClearedRefs: true}}
	v.Kind = Default
	lib.All = append(lib.All, v)

	if global {
		lib.Globals = append(lib.Globals, v)
		lib.GlobalsByName[name] = v
		if lib.GlobalTable != nil {
			resolved := lib.GlobalTable.GetResolvedType()
			if resolved != nil {
				resolved.Members = append(resolved.Members, v)
			}
		}
	}

	lib.addReference(v)
	return v
}

// CreateTableEntry creates an unrooted table-entry variable.
func (lib *Library) CreateTableEntry() *Variable {
	v := &Variable{Symbol: Symbol{Name: "TableVar", owner: lib, hasClearedRefs: true}}
	v.Kind = TableValue
	v.TableEntry = true
	lib.Temp = append(lib.Temp, v)
	lib.addReference(v)
	return v
}

// CreateMultipleType wraps several types into a tuple type. A single type is
// returned untouched.
func (lib *Library) CreateMultipleType(types []*Type) *Type {
	if len(types) == 1 {
		return types[0]
	}

	var sb strings.Builder
	sb.WriteString("MultipleType(")
	for i, t := range types {
		if i > 0 {
			sb.WriteString(", ")
		}
		if t != nil {
			sb.WriteString(t.Name)
		} else {
			sb.WriteString("(none)")
		}
	}
	sb.WriteString(")")

	multi := lib.CreateBlankType(sb.String())
	multi.MultipleTypes = append(multi.MultipleTypes, types...)
	return multi
}

// AddPossibleType widens baseType's union with newType. With exactly one
// branch the union collapses to that branch.
func (lib *Library) AddPossibleType(baseType, newType *Type) *Type {
	if newType == nil {
		return baseType
	}

	baseType.PossibleTypes = append(baseType.PossibleTypes, newType)

	if len(baseType.PossibleTypes) == 1 {
		baseType.ResolvedType = newType
		return baseType
	}
	baseType.ResolvedType = baseType

	var sb strings.Builder
	sb.WriteString("PossibleType(")
	for i, t := range baseType.PossibleTypes {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		sb.WriteString(t.Name)
	}
	sb.WriteString(")")
	baseType.Name = sb.String()

	return baseType
}

// CreateFunctionType wraps a return type into a callable type.
func (lib *Library) CreateFunctionType(returnType *Type) *Type {
	name := "Function() - "
	if resolved := returnType.GetResolvedType(); resolved != nil {
		name += resolved.Name
	}

	t := lib.CreateType(name)
	t.ReturnType = returnType
	return t
}

// NextFunctionID returns a fresh id for naming anonymous functions.
func (lib *Library) NextFunctionID() int {
	lib.functionCounter++
	return lib.functionCounter
}

// Clean sweeps the library: clears member references to dead symbols, then
// drops zero-refcount globals and owned symbols. Base types are pinned by
// the library's own reference and survive every sweep.
func (lib *Library) Clean() {
	for _, entry := range lib.All {
		entry.Base().hasClearedRefs = false
	}
	for _, entry := range lib.Temp {
		entry.Base().hasClearedRefs = false
	}

	for _, entry := range lib.All {
		entry.clean()
	}
	for _, entry := range lib.Temp {
		entry.clean()
	}

	keptGlobals := lib.Globals[:0]
	for _, g := range lib.Globals {
		if g.RefCount == 0 {
			delete(lib.GlobalsByName, g.Name)
			continue
		}
		keptGlobals = append(keptGlobals, g)
	}
	lib.Globals = keptGlobals

	lib.All = cleanEntries(lib.All)
	lib.Temp = cleanEntries(lib.Temp)
}

func cleanEntries(entries []Entry) []Entry {
	kept := entries[:0]
	for _, e := range entries {
		if e.Base().RefCount > 0 {
			kept = append(kept, e)
		}
	}
	return kept
}

// Package document implements the value tree stored by the server: a recursive
// tagged union (object, array, string, integer, float, boolean, null), its text
// parser and serializer, and dotted-path navigation into nested values.
//
// Values are not safe for concurrent use. The server guards the whole store
// with a single lock.
package document

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindObject
	KindArray
	KindString
	KindInteger
	KindFloat
	KindBoolean
)

// String returns the variant name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindObject:
		return "Object"
	case KindArray:
		return "Array"
	case KindString:
		return "String"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindBoolean:
		return "Boolean"
	case KindNull:
		return "Null"
	default:
		return "Unknown"
	}
}

// Value is a node of the document tree. Objects and arrays exclusively own
// their children, so a Value tree never contains cycles.
//
// The zero Value is Null.
type Value struct {
	kind    Kind
	object  map[string]*Value
	array   []*Value
	str     string
	integer int64
	float   float64
	boolean bool
}

// Null returns a new null value.
func Null() *Value {
	return &Value{kind: KindNull}
}

// Object returns an object value owning the given members. A nil map yields
// an empty object.
func Object(members map[string]*Value) *Value {
	if members == nil {
		members = make(map[string]*Value)
	}
	return &Value{kind: KindObject, object: members}
}

// Array returns an array value owning the given elements.
func Array(elems ...*Value) *Value {
	if elems == nil {
		elems = []*Value{}
	}
	return &Value{kind: KindArray, array: elems}
}

// String returns a string value. The text is stored as given; escape
// sequences are not interpreted.
func String(s string) *Value {
	return &Value{kind: KindString, str: s}
}

// Integer returns an integer value.
func Integer(i int64) *Value {
	return &Value{kind: KindInteger, integer: i}
}

// Float returns a floating point value.
func Float(f float64) *Value {
	return &Value{kind: KindFloat, float: f}
}

// Boolean returns a boolean value.
func Boolean(b bool) *Value {
	return &Value{kind: KindBoolean, boolean: b}
}

// Kind reports the variant of v.
func (v *Value) Kind() Kind {
	return v.kind
}

// Members returns the members of an object value, or nil for other kinds.
// The returned map is owned by v.
func (v *Value) Members() map[string]*Value {
	if v.kind != KindObject {
		return nil
	}
	return v.object
}

// Elements returns the elements of an array value, or nil for other kinds.
func (v *Value) Elements() []*Value {
	if v.kind != KindArray {
		return nil
	}
	return v.array
}

// Str returns the raw text of a string value.
func (v *Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// Int returns the integer held by v.
func (v *Value) Int() (int64, bool) {
	return v.integer, v.kind == KindInteger
}

// Float64 returns the float held by v.
func (v *Value) Float64() (float64, bool) {
	return v.float, v.kind == KindFloat
}

// Bool returns the boolean held by v.
func (v *Value) Bool() (bool, bool) {
	return v.boolean, v.kind == KindBoolean
}

// Equal reports whether v and other hold structurally equal trees.
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindObject:
		if len(v.object) != len(other.object) {
			return false
		}
		for k, child := range v.object {
			o, ok := other.object[k]
			if !ok || !child.Equal(o) {
				return false
			}
		}
		return true
	case KindArray:
		if len(v.array) != len(other.array) {
			return false
		}
		for i := range v.array {
			if !v.array[i].Equal(other.array[i]) {
				return false
			}
		}
		return true
	case KindString:
		return v.str == other.str
	case KindInteger:
		return v.integer == other.integer
	case KindFloat:
		return v.float == other.float
	case KindBoolean:
		return v.boolean == other.boolean
	default:
		return true
	}
}

// replace overwrites v in place with the contents of src. src must not be
// used afterwards, since its children are now owned by v.
func (v *Value) replace(src *Value) {
	*v = *src
}

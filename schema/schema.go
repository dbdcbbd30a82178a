/*
 * ledgergraph
 *
 * Package schema stores node-type definitions and validates attribute
 * sets on insert (component C, §4.C).
 */
package schema

import (
	"strings"

	"github.com/krotik/common/stringutil"
)

/*
Attribute is a single declared attribute of a node type.
*/
type Attribute struct {
	Name    string
	Indexed bool
}

/*
Predicate is a single (attribute = literal) constraint of an agent
predicate.
*/
type Predicate struct {
	Attribute string
	Value     string
}

/*
Type is a named node-type definition: an ordered attribute schema plus an
optional agent predicate (§3 "Node type definition").
*/
type Type struct {
	Name       string
	Attributes []Attribute
	Predicate  []Predicate
}

/*
AttrNames returns the declared attribute names in declaration order.
*/
func (t *Type) AttrNames() []string {
	names := make([]string, len(t.Attributes))
	for i, a := range t.Attributes {
		names[i] = a.Name
	}
	return names
}

/*
IndexedAttr returns the name of the indexed attribute of this type, or ""
if none is indexed.
*/
func (t *Type) IndexedAttr() string {
	for _, a := range t.Attributes {
		if a.Indexed {
			return a.Name
		}
	}
	return ""
}

/*
MatchesAgentPredicate reports whether the given attribute map satisfies
this type's agent predicate. A type with no predicate matches nothing -
it declares no eligible validators.
*/
func (t *Type) MatchesAgentPredicate(attrs map[string]string) bool {
	if len(t.Predicate) == 0 {
		return false
	}

	for _, p := range t.Predicate {
		if attrs[p.Attribute] != p.Value {
			return false
		}
	}

	return true
}

/*
Registry stores node-type definitions for the lifetime of the process
(§3 "Lifecycles"). It is not safe for concurrent use on its own - callers
hold the composite lock (§9).
*/
type Registry struct {
	types map[string]*Type
	order []string
}

/*
NewRegistry creates an empty schema registry.
*/
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

/*
Define registers a new node type. Fails with ErrDuplicateType if the type
name is already registered, ErrMultipleIndexed if more than one attribute
is flagged indexed, or ErrReservedAttribute if an attribute name begins
with '$'.
*/
func (r *Registry) Define(t *Type) error {
	if _, ok := r.types[t.Name]; ok {
		return &Error{Type: ErrDuplicateType, Detail: t.Name}
	}

	indexed := 0
	for _, a := range t.Attributes {
		if strings.HasPrefix(a.Name, "$") {
			return &Error{Type: ErrReservedAttribute, Detail: a.Name}
		}
		if !stringutil.IsAlphaNumeric(a.Name) {
			return &Error{Type: ErrReservedAttribute, Detail: a.Name}
		}
		if a.Indexed {
			indexed++
		}
	}

	if indexed > 1 {
		return &Error{Type: ErrMultipleIndexed, Detail: t.Name}
	}

	r.types[t.Name] = t
	r.order = append(r.order, t.Name)

	return nil
}

/*
Get returns the node type definition for name. Fails with ErrUnknownType
if the type is not registered.
*/
func (r *Registry) Get(name string) (*Type, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, &Error{Type: ErrUnknownType, Detail: name}
	}
	return t, nil
}

/*
Has reports whether a node type is registered.
*/
func (r *Registry) Has(name string) bool {
	_, ok := r.types[name]
	return ok
}

/*
ValidateAttrs checks that the given attribute map's key set equals the
declared attribute set of the given type. Fails with ErrSchemaMismatch
otherwise.
*/
func (r *Registry) ValidateAttrs(typeName string, attrs map[string]string) error {
	t, err := r.Get(typeName)
	if err != nil {
		return err
	}

	want := t.AttrNames()

	if len(want) != len(attrs) {
		return &Error{Type: ErrSchemaMismatch, Detail: typeName}
	}

	for _, name := range want {
		if _, ok := attrs[name]; !ok {
			return &Error{Type: ErrSchemaMismatch, Detail: typeName + "." + name}
		}
	}

	return nil
}

/*
Types returns the registered type names in declaration order.
*/
func (r *Registry) Types() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

/*
ValidatorTypes returns the node types that carry an agent predicate, i.e.
types whose instances may be validators (§3 "agent predicate").
*/
func (r *Registry) ValidatorTypes() []*Type {
	var out []*Type
	for _, name := range r.order {
		if t := r.types[name]; len(t.Predicate) > 0 {
			out = append(out, t)
		}
	}
	return out
}

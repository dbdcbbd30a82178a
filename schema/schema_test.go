package schema

import (
	"errors"
	"testing"
)

func TestDefineAndValidate(t *testing.T) {
	r := NewRegistry()

	err := r.Define(&Type{
		Name: "Playlist",
		Attributes: []Attribute{
			{Name: "name", Indexed: true},
			{Name: "description"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := r.ValidateAttrs("Playlist", map[string]string{
		"name": "Party mix", "description": "for the party",
	}); err != nil {
		t.Errorf("expected valid attrs, got %v", err)
	}

	err = r.ValidateAttrs("Playlist", map[string]string{"name": "x"})
	var se *Error
	if !errors.As(err, &se) || se.Type != ErrSchemaMismatch {
		t.Errorf("expected SchemaMismatch, got %v", err)
	}
}

func TestDefineDuplicate(t *testing.T) {
	r := NewRegistry()
	r.Define(&Type{Name: "T", Attributes: []Attribute{{Name: "a"}}})

	err := r.Define(&Type{Name: "T", Attributes: []Attribute{{Name: "a"}}})
	var se *Error
	if !errors.As(err, &se) || se.Type != ErrDuplicateType {
		t.Errorf("expected DuplicateType, got %v", err)
	}
}

func TestDefineMultipleIndexed(t *testing.T) {
	r := NewRegistry()

	err := r.Define(&Type{
		Name: "T",
		Attributes: []Attribute{
			{Name: "a", Indexed: true},
			{Name: "b", Indexed: true},
		},
	})

	var se *Error
	if !errors.As(err, &se) || se.Type != ErrMultipleIndexed {
		t.Errorf("expected MultipleIndexedAttributes, got %v", err)
	}
}

func TestDefineReservedAttribute(t *testing.T) {
	r := NewRegistry()

	err := r.Define(&Type{
		Name:       "T",
		Attributes: []Attribute{{Name: "$id"}},
	})

	var se *Error
	if !errors.As(err, &se) || se.Type != ErrReservedAttribute {
		t.Errorf("expected ReservedAttribute, got %v", err)
	}
}

func TestAgentPredicateMatch(t *testing.T) {
	typ := &Type{
		Name: "User",
		Predicate: []Predicate{
			{Attribute: "role", Value: "validator"},
		},
	}

	if !typ.MatchesAgentPredicate(map[string]string{"role": "validator"}) {
		t.Error("expected predicate to match")
	}
	if typ.MatchesAgentPredicate(map[string]string{"role": "member"}) {
		t.Error("expected predicate not to match")
	}
}

func TestDefineResultRow(t *testing.T) {
	row := DefineResultRow(&Type{
		Name: "Playlist",
		Attributes: []Attribute{
			{Name: "name", Indexed: true},
			{Name: "description"},
		},
	})

	if row["name"] != "*" || row["description"] != "*" {
		t.Errorf("unexpected row: %v", row)
	}
}

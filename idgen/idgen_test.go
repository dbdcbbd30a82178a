package idgen

import (
	"regexp"
	"testing"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9]{21}$`)

func TestNewIDShape(t *testing.T) {
	id, err := NewID()
	if err != nil {
		t.Fatal(err)
	}

	if !idPattern.MatchString(id) {
		t.Errorf("id %q does not match expected shape", id)
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		id, err := NewID()
		if err != nil {
			t.Fatal(err)
		}

		if seen[id] {
			t.Fatalf("duplicate id generated: %v", id)
		}

		seen[id] = true
	}
}

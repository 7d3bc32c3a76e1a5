package category

import (
	"reflect"
	"testing"
)

func TestMergePrecedenceAndOrder(t *testing.T) {
	got := Merge(
		[]string{"Repurpose", "Sales"},
		[]string{"Product", "Sales", "Engineering"},
		[]string{"Sales", "Other"},
	)
	want := []string{"Repurpose", "Sales", "Product", "Engineering", "Other"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %v, want %v", got, want)
	}
}

func TestMergeSkipsEmptyNames(t *testing.T) {
	got := Merge([]string{""}, nil, []string{"Other"})
	want := []string{"Other"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %v, want %v", got, want)
	}
}

func TestGuessMatchesKeyword(t *testing.T) {
	cats := []string{"Product", "Sales", "Health"}
	if got := Guess("call the sales prospect back", cats); got != "Sales" {
		t.Errorf("Guess = %s, want Sales", got)
	}
}

func TestGuessPrefersNonBuiltin(t *testing.T) {
	// No keyword match: the first non-builtin category is the best guess.
	cats := []string{"Development", "Repurpose", "Other"}
	if got := Guess("finish the quarterly report", cats); got != "Repurpose" {
		t.Errorf("Guess = %s, want Repurpose", got)
	}
}

func TestGuessFallsBackToOther(t *testing.T) {
	if got := Guess("anything", []string{"Health", "Other"}); got != "Other" {
		t.Errorf("Guess = %s, want Other", got)
	}
}

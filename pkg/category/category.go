package category

import "strings"

// Builtin is the fixed category list every user starts from. User-defined
// and generated categories layer on top of it.
var Builtin = []string{
	"Development",
	"Admin",
	"Health",
	"Learning",
	"Relationships",
	"Sales",
	"Operations",
	"Content",
	"Other",
}

// Fallback is the category list used when generation fails entirely.
var Fallback = []string{"Work", "Personal", "Meetings", "Development", "Other"}

// Merge combines category lists with precedence custom, then generated, then
// built-in, preserving order and dropping duplicates.
func Merge(custom, generated, builtin []string) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, list := range [][]string{custom, generated, builtin} {
		for _, c := range list {
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			merged = append(merged, c)
		}
	}
	return merged
}

// Guess picks the best category for a note without any provider call: the
// first category whose name appears in the note wins, otherwise the first
// non-builtin category (more likely to reflect the user's actual work), and
// as a last resort "Other". Pure, so the fallback path is testable without
// mocks.
func Guess(note string, categories []string) string {
	lower := strings.ToLower(note)
	for _, c := range categories {
		if strings.Contains(lower, strings.ToLower(c)) {
			return c
		}
	}

	builtin := make(map[string]bool, len(Builtin))
	for _, c := range Builtin {
		builtin[c] = true
	}
	for _, c := range categories {
		if !builtin[c] {
			return c
		}
	}
	return "Other"
}

// Package model contains domain models and the error taxonomy shared
// across layers.
package model

import "fmt"

// Leagues is the fixed CP tier enumeration cups draw from.
var Leagues = []int{500, 1500, 2500, 10000}

// Categories is the fixed set of ranking categories every cup carries,
// in the order ranking directories are laid out.
var Categories = []string{
	"attackers",
	"chargers",
	"closers",
	"consistency",
	"leads",
	"overall",
	"switches",
}

// Cup summarizes one ruleset configuration. The physical artifacts
// (definition, overrides, group, rankings) are resolved through the
// store; this struct is the in-memory projection.
type Cup struct {
	// Name is the unique lowercase slug identifying the cup across
	// all of its artifacts.
	Name string `json:"name"`

	// Title is the display title.
	Title string `json:"title"`

	// Leagues lists the CP tiers the cup is played at.
	Leagues []int `json:"leagues,omitempty"`

	// RulesURL optionally links the external rules document.
	RulesURL string `json:"rulesUrl,omitempty"`
}

// ValidLeague reports whether cp is one of the fixed CP tiers.
func ValidLeague(cp int) bool {
	for _, league := range Leagues {
		if league == cp {
			return true
		}
	}
	return false
}

// ValidCategory reports whether name is one of the fixed ranking categories.
func ValidCategory(name string) bool {
	for _, category := range Categories {
		if category == name {
			return true
		}
	}
	return false
}

// RankingFile returns the filename of a ranking artifact for a CP tier,
// e.g. "rankings-1500.json".
func RankingFile(cp int) string {
	return fmt.Sprintf("rankings-%d.json", cp)
}

// Package zygarde derives an external allow-list configuration from a
// cup definition and a ranking or override snapshot for its league.
package zygarde

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dottey/cupctl/internal/domain/model"
)

const (
	nameSuffix     = " - Zygarde"
	uniquenessRule = "speciesId"
	slots          = 6
)

// Config is the allow-list document consumed by the external draft
// tool. allowedMons is a single comma-joined string, not an array.
type Config struct {
	AllowedMons    string `json:"allowedMons"`
	Name           string `json:"name"`
	League         string `json:"league"`
	RulesURI       string `json:"rulesUri"`
	UniquenessRule string `json:"uniquenessRule"`
	Slots          int    `json:"slots"`
}

// LeagueLabel maps a CP tier to its display label. Tiers outside the
// fixed table get a Custom label carrying the raw value.
func LeagueLabel(league int64) string {
	switch league {
	case 1500:
		return "Great"
	case 2500:
		return "Ultra"
	case 10000:
		return "Master"
	default:
		return fmt.Sprintf("Custom(%d)", league)
	}
}

// Generate builds the allow-list config from a cup definition and a
// snapshot of ranking or override records for the definition's league.
// The definition must carry league and title.
func Generate(definition, snapshot []byte) (*Config, error) {
	if !gjson.ValidBytes(definition) {
		return nil, fmt.Errorf("%w: definition is not valid JSON", model.ErrParse)
	}
	def := gjson.ParseBytes(definition)

	league := def.Get("league")
	if !league.Exists() {
		return nil, fmt.Errorf("%w: definition has no league", model.ErrMissingField)
	}
	title := def.Get("title")
	if !title.Exists() {
		return nil, fmt.Errorf("%w: definition has no title", model.ErrMissingField)
	}

	if !gjson.ValidBytes(snapshot) {
		return nil, fmt.Errorf("%w: snapshot is not valid JSON", model.ErrParse)
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, rec := range gjson.ParseBytes(snapshot).Array() {
		id := rec.Get("speciesId").String()
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &Config{
		AllowedMons:    strings.Join(ids, ", "),
		Name:           title.String() + nameSuffix,
		League:         LeagueLabel(league.Int()),
		RulesURI:       def.Get("link").String(),
		UniquenessRule: uniquenessRule,
		Slots:          slots,
	}, nil
}

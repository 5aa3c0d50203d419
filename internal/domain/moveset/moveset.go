// Package moveset generates moveset override records for the species
// eligible in a cup, projected from that cup's overall rankings.
package moveset

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/dottey/cupctl/internal/domain/model"
)

// Override pins one species to the fast and charged moves its ranking
// row recommends.
type Override struct {
	SpeciesID    string   `json:"speciesId"`
	FastMove     string   `json:"fastMove"`
	ChargedMoves []string `json:"chargedMoves"`
}

// Generate builds the override list for a cup. Eligibility is the
// union of the definition's include id-filter values minus its exclude
// entries; excludes appear either as bare strings or as objects with a
// speciesId. Each eligible ranking row is projected to its moveset,
// sorted by speciesId, and returned as a JSON array.
func Generate(definition, rankings []byte) ([]byte, error) {
	if !gjson.ValidBytes(definition) {
		return nil, fmt.Errorf("%w: definition is not valid JSON", model.ErrParse)
	}
	if !gjson.ValidBytes(rankings) {
		return nil, fmt.Errorf("%w: rankings is not valid JSON", model.ErrParse)
	}

	eligible := eligibleIDs(gjson.ParseBytes(definition))

	var overrides []Override
	for _, row := range gjson.ParseBytes(rankings).Array() {
		id := row.Get("speciesId").String()
		if _, ok := eligible[id]; !ok {
			continue
		}
		moves := row.Get("moveset").Array()
		if len(moves) == 0 {
			continue
		}
		o := Override{
			SpeciesID:    id,
			FastMove:     moves[0].String(),
			ChargedMoves: []string{},
		}
		for _, m := range moves[1:] {
			o.ChargedMoves = append(o.ChargedMoves, m.String())
		}
		overrides = append(overrides, o)
	}

	sort.Slice(overrides, func(i, j int) bool {
		return overrides[i].SpeciesID < overrides[j].SpeciesID
	})

	if overrides == nil {
		overrides = []Override{}
	}
	out, err := json.Marshal(overrides)
	if err != nil {
		return nil, fmt.Errorf("encode overrides: %w", err)
	}

	return pretty.PrettyOptions(out, &pretty.Options{Indent: "  "}), nil
}

// eligibleIDs collects include id-filter values, then removes every
// excluded species. Excludes come in both string and object form.
func eligibleIDs(def gjson.Result) map[string]struct{} {
	ids := make(map[string]struct{})

	for _, rule := range def.Get("include").Array() {
		if rule.Get("filterType").String() != "id" {
			continue
		}
		for _, v := range rule.Get("values").Array() {
			ids[v.String()] = struct{}{}
		}
	}

	for _, ex := range def.Get("exclude").Array() {
		switch ex.Type {
		case gjson.String:
			delete(ids, ex.String())
		case gjson.JSON:
			if id := ex.Get("speciesId").String(); id != "" {
				delete(ids, id)
			}
		}
	}

	return ids
}

package archive

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dottey/cupctl/internal/domain/model"
)

// Report is the outcome of a structural archive verification. Errors
// fail the archive; warnings flag oddities worth a look, extra ranking
// categories mostly.
type Report struct {
	Shortname string   `json:"shortname"`
	League    int      `json:"league"`
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings"`
}

// OK reports whether the archive passed verification.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Verify structurally checks a packaged archive: a readable cup
// definition with a league, the override record for that league, and
// all seven ranking categories each carrying the league's ranking
// file. Content semantics (species and move legality) are out of
// scope here.
func Verify(zipPath string) (*Report, error) {
	b, err := OpenBundle(zipPath)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	report := &Report{Shortname: b.Shortname()}

	def, err := b.Definition()
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("cup definition missing: %v", err))
		return report, nil
	}

	league := gjson.GetBytes(def, "league")
	if !league.Exists() {
		report.Errors = append(report.Errors, "league not found in cup definition")
		return report, nil
	}
	report.League = int(league.Int())

	short := b.Shortname()
	overridePath := fmt.Sprintf("%s/overrides/%s/%d.json", short, short, report.League)
	if !b.hasEntry(overridePath) {
		report.Errors = append(report.Errors, fmt.Sprintf("expected override file not found at %s", overridePath))
	}

	found := b.rankingCategories()
	for _, category := range model.Categories {
		if _, ok := found[category]; !ok {
			report.Errors = append(report.Errors, fmt.Sprintf("missing ranking category: %s", category))
			continue
		}
		rankingPath := fmt.Sprintf("%s/rankings/%s/%s/%s", short, short, category, model.RankingFile(report.League))
		if !b.hasEntry(rankingPath) {
			report.Errors = append(report.Errors, fmt.Sprintf("expected ranking file not found at %s", rankingPath))
		}
	}

	var extras []string
	for category := range found {
		if !model.ValidCategory(category) {
			extras = append(extras, category)
		}
	}
	sort.Strings(extras)
	for _, category := range extras {
		report.Warnings = append(report.Warnings, fmt.Sprintf("extra ranking category found: %s", category))
	}

	return report, nil
}

func (b *Bundle) hasEntry(name string) bool {
	for _, f := range b.rc.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// rankingCategories collects the category directories present under
// the archive's rankings tree.
func (b *Bundle) rankingCategories() map[string]struct{} {
	prefix := b.shortname + "/rankings/" + b.shortname + "/"
	found := make(map[string]struct{})
	for _, f := range b.rc.File {
		rest, ok := strings.CutPrefix(f.Name, prefix)
		if !ok {
			continue
		}
		if category, _, ok := strings.Cut(rest, "/"); ok && category != "" {
			found[category] = struct{}{}
		}
	}
	return found
}

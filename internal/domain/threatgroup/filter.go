// Package threatgroup derives a filtered, sorted subset of species
// records from a caller-supplied identifier list. The list is
// transient; nothing here touches the data root.
package threatgroup

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/dottey/cupctl/internal/domain/model"
)

// ParseIDs reads newline-delimited species identifiers. Lines are
// trimmed, blank lines dropped, and duplicates collapsed.
func ParseIDs(r io.Reader) (map[string]struct{}, error) {
	ids := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}
		ids[id] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read identifier list: %w", err)
	}

	return ids, nil
}

// Filter returns the records whose speciesId is in wanted, sorted
// ascending by speciesId, as a JSON array. Identifiers in wanted with
// no matching record are silently dropped. Records keep their exact
// bytes; only membership and order change.
func Filter(wanted map[string]struct{}, records []byte) ([]byte, error) {
	if !gjson.ValidBytes(records) {
		return nil, fmt.Errorf("%w: records is not valid JSON", model.ErrParse)
	}
	parsed := gjson.ParseBytes(records)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("%w: records is not a JSON array", model.ErrParse)
	}

	type match struct {
		id  string
		raw string
	}

	var matched []match
	for _, rec := range parsed.Array() {
		id := rec.Get("speciesId").String()
		if id == "" {
			continue
		}
		if _, ok := wanted[id]; !ok {
			continue
		}
		matched = append(matched, match{id: id, raw: rec.Raw})
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].id < matched[j].id
	})

	var b strings.Builder
	b.WriteByte('[')
	for i, m := range matched {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(m.raw)
	}
	b.WriteByte(']')

	return pretty.PrettyOptions([]byte(b.String()), &pretty.Options{Indent: "  "}), nil
}

// Package registry manages the single ordered collection of
// denormalized cup summaries consumed by the serving application.
//
// Entries are kept as raw JSON so serving-layer fields this core does
// not understand survive every round-trip byte-for-byte. The only
// fields touched are "cup" (codename), "title", and "meta" (the
// serving pointer).
package registry

import (
	"fmt"
	"strings"

	"github.com/dottey/cupctl/internal/adapters/store"
	"github.com/dottey/cupctl/internal/domain/model"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Registry is the ordered formats collection, loaded from
// gamemaster/formats.json.
type Registry struct {
	store   *store.Store
	entries []string
}

// Load reads the formats collection. A missing or malformed file is an
// error: every operation that touches the registry needs the real
// serving collection, not an empty stand-in.
func Load(st *store.Store) (*Registry, error) {
	data, err := st.ReadJSON(st.FormatsPath())
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("%s: expected a JSON array: %w", st.FormatsPath(), model.ErrParse)
	}

	r := &Registry{store: st}
	for _, entry := range parsed.Array() {
		r.entries = append(r.entries, entry.Raw)
	}
	return r, nil
}

// List returns the entries in serving order.
func (r *Registry) List() []string {
	out := make([]string, len(r.entries))
	copy(out, r.entries)
	return out
}

// FindByCup returns the entry whose codename matches, or
// model.ErrNotFound.
func (r *Registry) FindByCup(code string) (string, error) {
	for _, entry := range r.entries {
		if gjson.Get(entry, "cup").String() == code {
			return entry, nil
		}
	}
	return "", fmt.Errorf("format for cup %q: %w", code, model.ErrNotFound)
}

// Upsert replaces the entry sharing the new entry's codename, or
// appends when none exists. The order of all other entries is
// preserved, so the registry can never hold two entries for one cup.
func (r *Registry) Upsert(entry string) error {
	code := gjson.Get(entry, "cup").String()
	if code == "" {
		return fmt.Errorf("format entry has no cup field: %w", model.ErrMissingField)
	}
	for i, existing := range r.entries {
		if gjson.Get(existing, "cup").String() == code {
			r.entries[i] = entry
			return nil
		}
	}
	r.entries = append(r.entries, entry)
	return nil
}

// Remove drops the entry for code. Absence is a no-op.
func (r *Registry) Remove(code string) {
	for i, entry := range r.entries {
		if gjson.Get(entry, "cup").String() == code {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// RenameCup rewrites only the codename and title of the matching entry
// in place. Every other field and every other entry stays untouched.
func (r *Registry) RenameCup(oldCode, newCode, newTitle string) error {
	for i, entry := range r.entries {
		if gjson.Get(entry, "cup").String() != oldCode {
			continue
		}
		updated, err := rewriteEntry(entry, oldCode, newCode, newTitle)
		if err != nil {
			return err
		}
		r.entries[i] = updated
		return nil
	}
	return fmt.Errorf("format for cup %q: %w", oldCode, model.ErrNotFound)
}

// Derive copies the template cup's entry, overwrites codename, title,
// and the serving pointer, and appends the result. Existing entries
// are never reordered.
func (r *Registry) Derive(templateCode, newCode, newTitle string) (string, error) {
	template, err := r.FindByCup(templateCode)
	if err != nil {
		return "", err
	}
	derived, err := rewriteEntry(template, templateCode, newCode, newTitle)
	if err != nil {
		return "", err
	}
	// A derived entry always points at its own cup, regardless of
	// where the template's meta pointed.
	derived, err = sjson.Set(derived, "meta", newCode)
	if err != nil {
		return "", fmt.Errorf("rewrite format entry: %w", err)
	}
	if err := r.Upsert(derived); err != nil {
		return "", err
	}
	return derived, nil
}

// rewriteEntry updates cup/title in place and retargets the meta
// pointer when it references the old codename.
func rewriteEntry(entry, oldCode, newCode, newTitle string) (string, error) {
	updated, err := sjson.Set(entry, "cup", newCode)
	if err != nil {
		return "", fmt.Errorf("rewrite format entry: %w", err)
	}
	updated, err = sjson.Set(updated, "title", newTitle)
	if err != nil {
		return "", fmt.Errorf("rewrite format entry: %w", err)
	}
	if meta := gjson.Get(updated, "meta"); meta.Exists() && meta.String() == oldCode {
		updated, err = sjson.Set(updated, "meta", newCode)
		if err != nil {
			return "", fmt.Errorf("rewrite format entry: %w", err)
		}
	}
	return updated, nil
}

// Save writes the collection back through the store.
func (r *Registry) Save() error {
	var b strings.Builder
	b.WriteString("[")
	for i, entry := range r.entries {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(entry)
	}
	b.WriteString("]")
	return r.store.WriteJSON(r.store.FormatsPath(), []byte(b.String()))
}

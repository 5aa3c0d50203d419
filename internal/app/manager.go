// Package lifecycle orchestrates the multi-step cup lifecycle
// operations: create, clone, rename, and delete.
//
// Operations are synchronous and non-transactional. Nothing here
// locks: callers must externally serialize operations per
// (root, codename) pair, since two clones of the same source or a
// rename racing a delete may interleave non-atomically. Every operation runs
// as an ordered list of steps with best-effort unwind on failure; an
// incomplete unwind surfaces as *PartialFailure.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/dottey/cupctl/internal/adapters/registry"
	"github.com/dottey/cupctl/internal/adapters/store"
	"github.com/dottey/cupctl/internal/domain/model"
	"github.com/dottey/cupctl/pkg/logger"
	"github.com/dottey/cupctl/pkg/metrics"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"
)

// emptyList is the content of freshly created group, override, and
// ranking records.
const emptyList = "[]"

// Manager implements the cup lifecycle over a store.
type Manager struct {
	store          *store.Store
	templateFormat string
	logger         logger.Logger
}

// Result reports a completed lifecycle operation.
type Result struct {
	Op          string   `json:"op"`
	Cup         string   `json:"cup"`
	OperationID string   `json:"operationId"`
	Paths       []string `json:"paths,omitempty"`
}

// New constructs a Manager with default configuration.
func New(st *store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:          st,
		templateFormat: "all",
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Manager) log() logger.Logger {
	if m.logger == nil {
		return nopLogger{}
	}
	return m.logger
}

// Create writes the five artifact groups of a brand new cup: the
// definition (codename/title/league assigned on the parsed record), a
// formats registry entry derived from the template entry, an empty
// group record, an empty override record for the tier, and one empty
// ranking list per category.
func (m *Manager) Create(ctx context.Context, code, title string, league int, defBody []byte) (*Result, error) {
	start := time.Now()
	opID := uuid.NewString()

	result, err := m.create(ctx, opID, code, title, league, defBody)
	metrics.RecordOperation("create", statusOf(err), time.Since(start))
	return result, err
}

func (m *Manager) create(ctx context.Context, opID, code, title string, league int, defBody []byte) (*Result, error) {
	defPath := m.store.DefinitionPath(code)
	if m.store.Exists(defPath) {
		return nil, fmt.Errorf("cup %q: %w", code, model.ErrAlreadyExists)
	}
	if !model.ValidLeague(league) {
		return nil, fmt.Errorf("league %d is not one of %v", league, model.Leagues)
	}

	definition, err := buildDefinition(defBody, code, title, league)
	if err != nil {
		return nil, err
	}

	m.log().Info(ctx, "creating cup",
		logger.String("cup", code),
		logger.String("operationId", opID),
		logger.Int("league", league),
	)

	paths := []string{defPath, m.store.FormatsPath(), m.store.GroupPath(code), m.store.OverridePath(code, league)}
	for _, category := range model.Categories {
		paths = append(paths, m.store.RankingPath(code, category, league))
	}

	steps := []step{
		{
			name: "definition",
			run:  func() error { return m.store.WriteJSON(defPath, []byte(definition)) },
			undo: func() error { return m.store.RemoveTree(defPath) },
		},
		m.formatsStep(func(r *registry.Registry) error {
			_, err := r.Derive(m.templateFormat, code, title)
			return err
		}),
		{
			name: "group",
			run:  func() error { return m.store.WriteJSON(m.store.GroupPath(code), []byte(emptyList)) },
			undo: func() error { return m.store.RemoveTree(m.store.GroupPath(code)) },
		},
		{
			name: "override",
			run:  func() error { return m.store.WriteJSON(m.store.OverridePath(code, league), []byte(emptyList)) },
			undo: func() error { return m.store.RemoveTree(m.store.OverridesDir(code)) },
		},
		{
			name: "rankings",
			run: func() error {
				for _, category := range model.Categories {
					if err := m.store.WriteJSON(m.store.RankingPath(code, category, league), []byte(emptyList)); err != nil {
						return err
					}
				}
				return nil
			},
			undo: func() error { return m.store.RemoveTree(m.store.RankingsDir(code)) },
		},
	}

	if err := m.runSteps(ctx, "create", code, opID, steps); err != nil {
		return nil, err
	}
	metrics.RecordFilesWritten(len(paths))
	return &Result{Op: "create", Cup: code, OperationID: opID, Paths: paths}, nil
}

// Clone copies every artifact of oldCode to newCode. The overrides and
// rankings subtrees are copied recursively across all tiers and
// categories, the group record when present; the definition is copied
// with only codename/title rewritten, all other fields preserved
// byte-for-byte. Missing overrides/rankings/group subtrees are
// tolerated; only the definition is mandatory.
func (m *Manager) Clone(ctx context.Context, oldCode, newCode, newTitle string) (*Result, error) {
	start := time.Now()
	opID := uuid.NewString()

	result, err := m.clone(ctx, opID, oldCode, newCode, newTitle)
	metrics.RecordOperation("clone", statusOf(err), time.Since(start))
	return result, err
}

func (m *Manager) clone(ctx context.Context, opID, oldCode, newCode, newTitle string) (*Result, error) {
	if err := m.requirePresent(oldCode); err != nil {
		return nil, err
	}
	if err := m.requireAbsent(newCode); err != nil {
		return nil, err
	}

	oldDef, err := m.store.ReadJSON(m.store.DefinitionPath(oldCode))
	if err != nil {
		return nil, err
	}
	definition, err := rewriteDefinition(string(oldDef), newCode, newTitle)
	if err != nil {
		return nil, err
	}

	m.log().Info(ctx, "cloning cup",
		logger.String("from", oldCode),
		logger.String("to", newCode),
		logger.String("operationId", opID),
	)

	newDefPath := m.store.DefinitionPath(newCode)
	var paths []string

	steps := []step{
		{
			name: "definition",
			run: func() error {
				paths = append(paths, newDefPath)
				return m.store.WriteJSON(newDefPath, []byte(definition))
			},
			undo: func() error { return m.store.RemoveTree(newDefPath) },
		},
		m.formatsStep(func(r *registry.Registry) error {
			_, err := r.Derive(oldCode, newCode, newTitle)
			return err
		}),
		{
			name: "group",
			run: func() error {
				if !m.store.Exists(m.store.GroupPath(oldCode)) {
					return nil
				}
				paths = append(paths, m.store.GroupPath(newCode))
				return m.store.CopyTree(m.store.GroupPath(oldCode), m.store.GroupPath(newCode))
			},
			undo: func() error { return m.store.RemoveTree(m.store.GroupPath(newCode)) },
		},
		{
			name: "overrides",
			run: func() error {
				if !m.store.Exists(m.store.OverridesDir(oldCode)) {
					return nil
				}
				paths = append(paths, m.store.OverridesDir(newCode))
				return m.store.CopyTree(m.store.OverridesDir(oldCode), m.store.OverridesDir(newCode))
			},
			undo: func() error { return m.store.RemoveTree(m.store.OverridesDir(newCode)) },
		},
		{
			name: "rankings",
			run: func() error {
				if !m.store.Exists(m.store.RankingsDir(oldCode)) {
					return nil
				}
				paths = append(paths, m.store.RankingsDir(newCode))
				return m.store.CopyTree(m.store.RankingsDir(oldCode), m.store.RankingsDir(newCode))
			},
			undo: func() error { return m.store.RemoveTree(m.store.RankingsDir(newCode)) },
		},
	}

	if err := m.runSteps(ctx, "clone", newCode, opID, steps); err != nil {
		return nil, err
	}
	metrics.RecordFilesWritten(len(paths))
	return &Result{Op: "clone", Cup: newCode, OperationID: opID, Paths: paths}, nil
}

// Rename moves every artifact of oldCode to newCode and rewrites only
// the codename/title fields of the definition and registry entry. A
// pure relabeling: no other field changes.
func (m *Manager) Rename(ctx context.Context, oldCode, newCode, newTitle string) (*Result, error) {
	start := time.Now()
	opID := uuid.NewString()

	result, err := m.rename(ctx, opID, oldCode, newCode, newTitle)
	metrics.RecordOperation("rename", statusOf(err), time.Since(start))
	return result, err
}

func (m *Manager) rename(ctx context.Context, opID, oldCode, newCode, newTitle string) (*Result, error) {
	if err := m.requirePresent(oldCode); err != nil {
		return nil, err
	}
	if err := m.requireAbsent(newCode); err != nil {
		return nil, err
	}

	oldDefPath := m.store.DefinitionPath(oldCode)
	newDefPath := m.store.DefinitionPath(newCode)

	oldDef, err := m.store.ReadRaw(oldDefPath)
	if err != nil {
		return nil, err
	}
	definition, err := rewriteDefinition(string(jsonc.ToJSON(oldDef)), newCode, newTitle)
	if err != nil {
		return nil, err
	}

	m.log().Info(ctx, "renaming cup",
		logger.String("from", oldCode),
		logger.String("to", newCode),
		logger.String("operationId", opID),
	)

	var paths []string

	steps := []step{
		{
			name: "definition",
			run: func() error {
				paths = append(paths, newDefPath)
				if err := m.store.WriteJSON(newDefPath, []byte(definition)); err != nil {
					return err
				}
				return m.store.RemoveTree(oldDefPath)
			},
			undo: func() error {
				if err := m.store.WriteRaw(oldDefPath, oldDef); err != nil {
					return err
				}
				return m.store.RemoveTree(newDefPath)
			},
		},
		m.formatsStep(func(r *registry.Registry) error {
			return r.RenameCup(oldCode, newCode, newTitle)
		}),
		m.moveStep("group", m.store.GroupPath(oldCode), m.store.GroupPath(newCode), &paths),
		m.moveStep("overrides", m.store.OverridesDir(oldCode), m.store.OverridesDir(newCode), &paths),
		m.moveStep("rankings", m.store.RankingsDir(oldCode), m.store.RankingsDir(newCode), &paths),
	}

	if err := m.runSteps(ctx, "rename", newCode, opID, steps); err != nil {
		return nil, err
	}
	return &Result{Op: "rename", Cup: newCode, OperationID: opID, Paths: paths}, nil
}

// Delete removes every artifact group of a cup. Missing artifacts are
// tolerated, so delete is idempotent with respect to absence. Its
// steps are irreversible: a mid-operation failure reports
// PartialFailure directly.
func (m *Manager) Delete(ctx context.Context, code string) (*Result, error) {
	start := time.Now()
	opID := uuid.NewString()

	result, err := m.delete(ctx, opID, code)
	metrics.RecordOperation("delete", statusOf(err), time.Since(start))
	return result, err
}

func (m *Manager) delete(ctx context.Context, opID, code string) (*Result, error) {
	m.log().Info(ctx, "deleting cup",
		logger.String("cup", code),
		logger.String("operationId", opID),
	)

	removed := []string{
		m.store.OverridesDir(code),
		m.store.RankingsDir(code),
		m.store.DefinitionPath(code),
		m.store.GroupPath(code),
	}

	steps := []step{
		{name: "overrides", run: func() error { return m.store.RemoveTree(m.store.OverridesDir(code)) }},
		{name: "rankings", run: func() error { return m.store.RemoveTree(m.store.RankingsDir(code)) }},
		{name: "definition", run: func() error { return m.store.RemoveTree(m.store.DefinitionPath(code)) }},
		{name: "group", run: func() error { return m.store.RemoveTree(m.store.GroupPath(code)) }},
		{
			name: "formats",
			run: func() error {
				if !m.store.Exists(m.store.FormatsPath()) {
					return nil
				}
				r, err := registry.Load(m.store)
				if err != nil {
					return err
				}
				r.Remove(code)
				return r.Save()
			},
		},
	}

	if err := m.runSteps(ctx, "delete", code, opID, steps); err != nil {
		return nil, err
	}
	return &Result{Op: "delete", Cup: code, OperationID: opID, Paths: removed}, nil
}

// formatsStep wraps a registry mutation in a step that snapshots the
// collection first so the undo can restore the exact prior bytes.
func (m *Manager) formatsStep(mutate func(*registry.Registry) error) step {
	var snapshot []byte
	return step{
		name: "formats",
		run: func() error {
			prev, err := m.store.ReadRaw(m.store.FormatsPath())
			if err != nil {
				return err
			}
			snapshot = prev
			r, err := registry.Load(m.store)
			if err != nil {
				return err
			}
			if err := mutate(r); err != nil {
				return err
			}
			return r.Save()
		},
		undo: func() error {
			if snapshot == nil {
				return nil
			}
			return m.store.WriteRaw(m.store.FormatsPath(), snapshot)
		},
	}
}

// moveStep moves an optional artifact from src to dst, undoing by
// moving it back. Absence of src is tolerated.
func (m *Manager) moveStep(name, src, dst string, paths *[]string) step {
	var moved bool
	return step{
		name: name,
		run: func() error {
			if !m.store.Exists(src) {
				return nil
			}
			moved = true
			*paths = append(*paths, dst)
			return m.store.MoveTree(src, dst)
		},
		undo: func() error {
			if !moved {
				return nil
			}
			return m.store.MoveTree(dst, src)
		},
	}
}

func (m *Manager) requirePresent(code string) error {
	if !m.store.Exists(m.store.DefinitionPath(code)) {
		return fmt.Errorf("cup %q: %w", code, model.ErrNotFound)
	}
	return nil
}

func (m *Manager) requireAbsent(code string) error {
	if m.store.Exists(m.store.DefinitionPath(code)) {
		return fmt.Errorf("cup %q: %w", code, model.ErrAlreadyExists)
	}
	return nil
}

// buildDefinition assigns codename, title, and league on the parsed
// definition record. Explicit field assignment replaces the old
// placeholder-token substitution, which was prone to incidental
// substring collisions.
func buildDefinition(body []byte, code, title string, league int) (string, error) {
	definition := "{}"
	if len(body) > 0 {
		normalized := jsonc.ToJSON(body)
		if !gjson.ValidBytes(normalized) {
			return "", fmt.Errorf("definition body: invalid JSON: %w", model.ErrParse)
		}
		definition = string(normalized)
	}

	definition, err := rewriteDefinition(definition, code, title)
	if err != nil {
		return "", err
	}
	definition, err = sjson.Set(definition, "league", league)
	if err != nil {
		return "", fmt.Errorf("set definition league: %w", err)
	}
	return definition, nil
}

// rewriteDefinition updates only the name and title fields.
func rewriteDefinition(definition, code, title string) (string, error) {
	updated, err := sjson.Set(definition, "name", code)
	if err != nil {
		return "", fmt.Errorf("set definition name: %w", err)
	}
	updated, err = sjson.Set(updated, "title", title)
	if err != nil {
		return "", fmt.Errorf("set definition title: %w", err)
	}
	return updated, nil
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// nopLogger is used when no logger is configured (library callers and
// tests that never initialize the global logger).
type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...logger.Field)  {}
func (nopLogger) Error(context.Context, string, ...logger.Field) {}
func (nopLogger) Debug(context.Context, string, ...logger.Field) {}
func (nopLogger) Warn(context.Context, string, ...logger.Field)  {}
func (nopLogger) Named(string) logger.Logger                     { return nopLogger{} }

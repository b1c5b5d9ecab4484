package prefs

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	appErr "gide/pkg/errors"
	"gide/pkg/utils/logger"

	"go.uber.org/zap"
)

// Snippet is a named code buffer kept apart from the current one.
type Snippet struct {
	Code      string    `json:"code"`
	Language  string    `json:"language"`
	Timestamp time.Time `json:"timestamp"`
}

// SaveSnippet stores snippet under name, stamping the current time. Names
// are used verbatim; an existing snippet with the same name is replaced.
func (s *Store) SaveSnippet(ctx context.Context, name string, snippet Snippet) bool {
	s.snippetMu.Lock()
	defer s.snippetMu.Unlock()

	loaded := s.loadSnippets(ctx)
	if loaded.Err != nil && appErr.Is(loaded.Err, appErr.PersistenceFailed) {
		// The backend is unreachable; writing now would clobber snippets we could not read.
		return false
	}
	snippets := loaded.Value
	snippet.Timestamp = s.now().UTC().Truncate(time.Millisecond)
	snippets[name] = snippet
	return s.writeSnippets(ctx, snippets)
}

// LoadSnippets returns all snippets keyed by name. The map is empty when
// nothing is stored or the stored blob cannot be decoded.
func (s *Store) LoadSnippets(ctx context.Context) Loaded[map[string]Snippet] {
	s.snippetMu.Lock()
	defer s.snippetMu.Unlock()
	return s.loadSnippets(ctx)
}

// GetSnippet returns one snippet by name.
func (s *Store) GetSnippet(ctx context.Context, name string) (Snippet, bool) {
	loaded := s.LoadSnippets(ctx)
	snippet, ok := loaded.Value[name]
	return snippet, ok
}

// DeleteSnippet removes name and reports whether it existed. err is a
// PersistenceFailed error when the mapping could not be read or the removal
// could not be written.
func (s *Store) DeleteSnippet(ctx context.Context, name string) (existed bool, err error) {
	s.snippetMu.Lock()
	defer s.snippetMu.Unlock()

	loaded := s.loadSnippets(ctx)
	if loaded.Err != nil && appErr.Is(loaded.Err, appErr.PersistenceFailed) {
		return false, loaded.Err
	}
	if _, ok := loaded.Value[name]; !ok {
		return false, nil
	}
	delete(loaded.Value, name)
	if !s.writeSnippets(ctx, loaded.Value) {
		return true, appErr.Newf(appErr.PersistenceFailed, "delete snippet %q failed", name)
	}
	return true, nil
}

func (s *Store) loadSnippets(ctx context.Context) Loaded[map[string]Snippet] {
	snippets := make(map[string]Snippet)
	raw, ok, err := s.kv.Get(ctx, s.keys.snippets)
	if err != nil {
		logger.Error(ctx, "load snippets failed", zap.Error(err))
		return Loaded[map[string]Snippet]{Value: snippets, UsedDefault: true, Err: appErr.Wrapf(err, appErr.PersistenceFailed, "load snippets failed")}
	}
	if !ok || raw == "" {
		return Loaded[map[string]Snippet]{Value: snippets, UsedDefault: true}
	}
	if err := json.Unmarshal([]byte(raw), &snippets); err != nil {
		logger.Warn(ctx, "stored snippets are corrupt, starting empty", zap.Error(err))
		return Loaded[map[string]Snippet]{Value: make(map[string]Snippet), UsedDefault: true, Err: appErr.Wrapf(err, appErr.PersistenceCorrupt, "decode snippets failed")}
	}
	if snippets == nil {
		snippets = make(map[string]Snippet)
	}
	return Loaded[map[string]Snippet]{Value: snippets}
}

func (s *Store) writeSnippets(ctx context.Context, snippets map[string]Snippet) bool {
	data, err := json.Marshal(snippets)
	if err != nil {
		logger.Error(ctx, "encode snippets failed", zap.Error(err))
		return false
	}
	return s.set(ctx, s.keys.snippets, string(data))
}

// SnippetNames returns the names in snippets, most recently saved first.
func SnippetNames(snippets map[string]Snippet) []string {
	names := make([]string, 0, len(snippets))
	for name := range snippets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ti, tj := snippets[names[i]].Timestamp, snippets[names[j]].Timestamp
		if ti.Equal(tj) {
			return names[i] < names[j]
		}
		return ti.After(tj)
	})
	return names
}

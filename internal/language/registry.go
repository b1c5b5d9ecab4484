// Package language is the single table that maps an editor language to the
// identifiers each collaborator needs: the judge's numeric language id, the
// editor widget mode and the formatter grammar.
package language

import (
	"path/filepath"
	"sort"
	"strings"
)

// DefaultGrammar is used by the formatter when a language is not registered.
const DefaultGrammar = "babel"

// Default is the language applied when none is stored.
const Default = "cpp"

// Language describes one supported language.
type Language struct {
	Name          string `json:"name"`
	JudgeID       int    `json:"judge_id"`
	EditorMode    string `json:"editor_mode"`
	Grammar       string `json:"grammar"`
	FileExtension string `json:"file_extension"`
}

// Registry resolves languages by name.
type Registry struct {
	byName map[string]Language
}

// NewRegistry builds a registry from the given entries. Later entries win on
// duplicate names.
func NewRegistry(entries ...Language) *Registry {
	r := &Registry{byName: make(map[string]Language, len(entries))}
	for _, entry := range entries {
		r.byName[entry.Name] = entry
	}
	return r
}

// Builtin returns the registry of languages the judge is configured for.
func Builtin() *Registry {
	return NewRegistry(
		Language{Name: "cpp", JudgeID: 54, EditorMode: "c_cpp", Grammar: "babel", FileExtension: ".cpp"},
		Language{Name: "java", JudgeID: 62, EditorMode: "java", Grammar: "java", FileExtension: ".java"},
		Language{Name: "python", JudgeID: 71, EditorMode: "python", Grammar: "python", FileExtension: ".py"},
	)
}

// Lookup returns the language registered under exactly name.
func (r *Registry) Lookup(name string) (Language, bool) {
	lang, ok := r.byName[name]
	return lang, ok
}

// Normalize folds user input such as " Python" into registry form. Only
// input edges call it; stored and submitted names must already match.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Supports reports whether name is registered.
func (r *Registry) Supports(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Grammar returns the formatter grammar for name, or DefaultGrammar.
func (r *Registry) Grammar(name string) string {
	if lang, ok := r.Lookup(name); ok && lang.Grammar != "" {
		return lang.Grammar
	}
	return DefaultGrammar
}

// FromFilename picks a language by file extension.
func (r *Registry) FromFilename(path string) (Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return Language{}, false
	}
	for _, lang := range r.byName {
		if lang.FileExtension == ext {
			return lang, true
		}
	}
	// common aliases
	switch ext {
	case ".cc", ".cxx", ".hpp", ".h":
		return r.Lookup("cpp")
	}
	return Language{}, false
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered languages sorted by name.
func (r *Registry) All() []Language {
	names := r.Names()
	result := make([]Language, 0, len(names))
	for _, name := range names {
		result = append(result, r.byName[name])
	}
	return result
}

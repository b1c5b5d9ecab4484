// Package prefs persists editor preferences (theme, font size, language, code
// buffer) and named snippets in a KV backend. Every read falls back to a
// documented default and every write is best-effort: storage failures are
// logged and reported through the return value, never raised.
package prefs

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"gide/internal/common/storage"
	"gide/internal/language"
	appErr "gide/pkg/errors"
	"gide/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	DefaultKeyPrefix = "g-ide-"
	DefaultCode      = ""
	DefaultTheme     = "solarized_light"
	DefaultFontSize  = 14
	DefaultLanguage  = language.Default
)

// Loaded is the result of a read. UsedDefault is set when Value is the
// documented default rather than a stored value; Err carries the masked
// storage or parse failure, if there was one.
type Loaded[T any] struct {
	Value       T
	UsedDefault bool
	Err         error
}

// Preferences is the process-wide editor configuration.
type Preferences struct {
	Theme    string `json:"theme"`
	FontSize int    `json:"font_size"`
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Defaults returns the preferences applied when nothing is stored.
func Defaults() Preferences {
	return Preferences{
		Theme:    DefaultTheme,
		FontSize: DefaultFontSize,
		Language: DefaultLanguage,
		Code:     DefaultCode,
	}
}

// Snapshot is the result of Load: one Loaded per field.
type Snapshot struct {
	Theme    Loaded[string]
	FontSize Loaded[int]
	Language Loaded[string]
	Code     Loaded[string]
}

// Preferences flattens the snapshot into plain values.
func (s Snapshot) Preferences() Preferences {
	return Preferences{
		Theme:    s.Theme.Value,
		FontSize: s.FontSize.Value,
		Language: s.Language.Value,
		Code:     s.Code.Value,
	}
}

// Defaulted lists the fields that fell back to their default.
func (s Snapshot) Defaulted() []string {
	var fields []string
	if s.Theme.UsedDefault {
		fields = append(fields, "theme")
	}
	if s.FontSize.UsedDefault {
		fields = append(fields, "font_size")
	}
	if s.Language.UsedDefault {
		fields = append(fields, "language")
	}
	if s.Code.UsedDefault {
		fields = append(fields, "code")
	}
	return fields
}

type keys struct {
	code     string
	language string
	theme    string
	fontSize string
	snippets string
}

func newKeys(prefix string) keys {
	return keys{
		code:     prefix + "code",
		language: prefix + "language",
		theme:    prefix + "theme",
		fontSize: prefix + "font-size",
		snippets: prefix + "saved-snippets",
	}
}

// Store reads and writes preferences under fixed namespaced keys.
type Store struct {
	kv        storage.KV
	languages *language.Registry
	keys      keys
	now       func() time.Time

	// snippetMu serializes the read-modify-write of the snippet blob.
	snippetMu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.keys = newKeys(prefix)
		}
	}
}

// WithClock sets the clock used to stamp snippets.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a Store over kv. languages decides which stored language
// values are valid; nil means the builtin registry.
func NewStore(kv storage.KV, languages *language.Registry, opts ...Option) *Store {
	if languages == nil {
		languages = language.Builtin()
	}
	s := &Store{
		kv:        kv,
		languages: languages,
		keys:      newKeys(DefaultKeyPrefix),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads every preference field.
func (s *Store) Load(ctx context.Context) Snapshot {
	return Snapshot{
		Theme:    s.LoadTheme(ctx),
		FontSize: s.LoadFontSize(ctx),
		Language: s.LoadLanguage(ctx),
		Code:     s.LoadCode(ctx),
	}
}

// Save writes every preference field and reports whether all writes succeeded.
func (s *Store) Save(ctx context.Context, p Preferences) bool {
	ok := s.SaveTheme(ctx, p.Theme)
	ok = s.SaveFontSize(ctx, p.FontSize) && ok
	ok = s.SaveLanguage(ctx, p.Language) && ok
	ok = s.SaveCode(ctx, p.Code) && ok
	return ok
}

func (s *Store) SaveCode(ctx context.Context, code string) bool {
	return s.set(ctx, s.keys.code, code)
}

func (s *Store) LoadCode(ctx context.Context) Loaded[string] {
	return s.loadString(ctx, s.keys.code, DefaultCode, nil)
}

func (s *Store) SaveLanguage(ctx context.Context, lang string) bool {
	return s.set(ctx, s.keys.language, lang)
}

// LoadLanguage treats a stored language outside the registry as unparsable.
func (s *Store) LoadLanguage(ctx context.Context) Loaded[string] {
	return s.loadString(ctx, s.keys.language, DefaultLanguage, s.languages.Supports)
}

func (s *Store) SaveTheme(ctx context.Context, theme string) bool {
	return s.set(ctx, s.keys.theme, theme)
}

func (s *Store) LoadTheme(ctx context.Context) Loaded[string] {
	return s.loadString(ctx, s.keys.theme, DefaultTheme, nil)
}

func (s *Store) SaveFontSize(ctx context.Context, size int) bool {
	return s.set(ctx, s.keys.fontSize, strconv.Itoa(size))
}

// LoadFontSize treats anything but a positive integer as unparsable.
func (s *Store) LoadFontSize(ctx context.Context) Loaded[int] {
	raw := s.loadString(ctx, s.keys.fontSize, "", nil)
	if raw.Err != nil || raw.UsedDefault {
		return Loaded[int]{Value: DefaultFontSize, UsedDefault: true, Err: raw.Err}
	}
	size, err := strconv.Atoi(strings.TrimSpace(raw.Value))
	if err != nil || size <= 0 {
		corrupt := appErr.Newf(appErr.PersistenceCorrupt, "invalid font size %q", raw.Value)
		logger.Warn(ctx, "stored preference is invalid, using default",
			zap.String("key", s.keys.fontSize), zap.String("value", raw.Value))
		return Loaded[int]{Value: DefaultFontSize, UsedDefault: true, Err: corrupt}
	}
	return Loaded[int]{Value: size}
}

func (s *Store) set(ctx context.Context, key, value string) bool {
	if err := s.kv.Set(ctx, key, value); err != nil {
		logger.Error(ctx, "save preference failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// loadString returns def when the key is absent or empty, when the backend
// fails, or when valid rejects the stored value.
func (s *Store) loadString(ctx context.Context, key, def string, valid func(string) bool) Loaded[string] {
	value, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		logger.Error(ctx, "load preference failed", zap.String("key", key), zap.Error(err))
		return Loaded[string]{Value: def, UsedDefault: true, Err: appErr.Wrapf(err, appErr.PersistenceFailed, "load %s failed", key)}
	}
	if !ok || value == "" {
		return Loaded[string]{Value: def, UsedDefault: true}
	}
	if valid != nil && !valid(value) {
		logger.Warn(ctx, "stored preference is invalid, using default",
			zap.String("key", key), zap.String("value", value))
		return Loaded[string]{Value: def, UsedDefault: true, Err: appErr.Newf(appErr.PersistenceCorrupt, "invalid value %q for %s", value, key)}
	}
	return Loaded[string]{Value: value}
}

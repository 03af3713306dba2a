// Package localization holds the user-facing strings of notifications and
// bot replies, one JSON catalog per language, English as the fallback.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

const fallbackLang = "en"

//go:embed locales/*.json
var bundled embed.FS

// catalog maps a dotted key such as "status.resolved" to its text.
type catalog map[string]string

// Localizer is safe for concurrent use.
type Localizer struct {
	mu       sync.RWMutex
	catalogs map[string]catalog
}

// Default returns a Localizer over the catalogs compiled into the binary.
func Default() (*Localizer, error) {
	sub, err := fs.Sub(bundled, "locales")
	if err != nil {
		return nil, err
	}
	return NewLocalizer(sub)
}

// NewLocalizer loads every "<lang>.json" at the root of fsys.
func NewLocalizer(fsys fs.FS) (*Localizer, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}

	l := &Localizer{catalogs: make(map[string]catalog, len(entries))}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".json" {
			continue
		}
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}
		var c catalog
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}
		l.catalogs[strings.TrimSuffix(name, ".json")] = c
	}
	return l, nil
}

func (l *Localizer) lookup(lang, key string) (string, bool) {
	text, ok := l.catalogs[lang][key]
	return text, ok
}

// GetString returns the text for key in lang, then in English, then key itself.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if text, ok := l.lookup(lang, key); ok {
		return text
	}
	if text, ok := l.lookup(fallbackLang, key); ok {
		return text
	}
	return key
}

// Format looks up key and fills it with args using fmt verbs.
func (l *Localizer) Format(lang, key string, args ...any) string {
	return fmt.Sprintf(l.GetString(lang, key), args...)
}

// StatusLabel is the human readable name of a status code such as IN_PROGRESS.
func (l *Localizer) StatusLabel(lang, status string) string {
	return l.GetString(lang, "status."+strings.ToLower(status))
}

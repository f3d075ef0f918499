package locale

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"csbot/core/logger"
	"log/slog"

	"gopkg.in/yaml.v3"
)

// Locale is a bag of translated strings for one language, with fallback to
// the resolver's default language.
type Locale struct {
	lang     string
	strings  map[string]string
	fallback map[string]string
}

// Lang returns the language code this locale resolves for.
func (l *Locale) Lang() string {
	return l.lang
}

// Get returns the translation for key. Unknown keys return the key itself
// with a warning; Get never fails.
func (l *Locale) Get(key string) string {
	if l != nil {
		if v, ok := l.strings[key]; ok {
			return v
		}
		if v, ok := l.fallback[key]; ok {
			return v
		}
	}
	lang := ""
	if l != nil {
		lang = l.lang
	}
	logger.Warn(logger.Background(), "locale", "key.missing",
		slog.String("key", key),
		slog.String("lang", lang),
	)
	return key
}

// Getf formats the translation for key with args.
func (l *Locale) Getf(key string, args ...any) string {
	return fmt.Sprintf(l.Get(key), args...)
}

// Resolver loads per-language YAML string files and hands out Locale views.
type Resolver struct {
	defaultLang string
	languages   map[string]map[string]string
}

// NewResolver reads every *.yaml file in dir as a flat key->string map keyed
// by the file's base name ("en.yaml" -> "en"). The default language must be
// present.
func NewResolver(dir, defaultLang string) (*Resolver, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("locale: read dir %s: %w", dir, err)
	}

	languages := make(map[string]map[string]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		lang := strings.TrimSuffix(name, ".yaml")
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("locale: read %s: %w", name, err)
		}
		bag := make(map[string]string)
		if err := yaml.Unmarshal(data, &bag); err != nil {
			return nil, fmt.Errorf("locale: parse %s: %w", name, err)
		}
		languages[lang] = bag
	}

	if _, ok := languages[defaultLang]; !ok {
		return nil, fmt.Errorf("locale: default language %q not found in %s", defaultLang, dir)
	}

	return &Resolver{defaultLang: defaultLang, languages: languages}, nil
}

// Locale returns the locale for lang, falling back to the default language
// when lang is unknown or empty.
func (r *Resolver) Locale(lang string) *Locale {
	bag, ok := r.languages[lang]
	if !ok {
		return &Locale{
			lang:     r.defaultLang,
			strings:  r.languages[r.defaultLang],
			fallback: r.languages[r.defaultLang],
		}
	}
	return &Locale{
		lang:     lang,
		strings:  bag,
		fallback: r.languages[r.defaultLang],
	}
}

// DefaultLang returns the configured fallback language code.
func (r *Resolver) DefaultLang() string {
	return r.defaultLang
}

// Languages returns the sorted list of loaded language codes.
func (r *Resolver) Languages() []string {
	out := make([]string, 0, len(r.languages))
	for lang := range r.languages {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

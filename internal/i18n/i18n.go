// Package i18n translates user-facing strings. Catalogs are embedded YAML
// files compiled into an x/text message catalog.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var locales embed.FS

// DefaultLocale is the fallback for missing keys and unknown locales.
const DefaultLocale = "en"

type Translator struct {
	supported []language.Tag
	matcher   language.Matcher
	catalog   *catalog.Builder
	messages  map[string]map[string]string
	printers  map[string]*message.Printer
}

// New loads every embedded catalog.
func New() (*Translator, error) {
	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	t := &Translator{
		catalog:  catalog.NewBuilder(catalog.Fallback(language.English)),
		messages: map[string]map[string]string{},
		printers: map[string]*message.Printer{},
	}
	// English first so the matcher falls back to it.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() == DefaultLocale+".yaml" ||
			(entries[j].Name() != DefaultLocale+".yaml" && entries[i].Name() < entries[j].Name())
	})
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("locale %q: %w", name, err)
		}
		raw, err := locales.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, err
		}
		msgs := map[string]string{}
		if err := yaml.Unmarshal(raw, &msgs); err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", name, err)
		}
		for key, msg := range msgs {
			if err := t.catalog.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("locale %q key %q: %w", name, key, err)
			}
		}
		t.supported = append(t.supported, tag)
		t.messages[name] = msgs
	}
	t.matcher = language.NewMatcher(t.supported)
	for _, tag := range t.supported {
		base, _ := tag.Base()
		t.printers[base.String()] = message.NewPrinter(tag, message.Catalog(t.catalog))
	}
	return t, nil
}

// MustNew panics when an embedded catalog is malformed.
func MustNew() *Translator {
	t, err := New()
	if err != nil {
		panic(err)
	}
	return t
}

// Supported lists the locale codes with a catalog.
func (t *Translator) Supported() []string {
	out := make([]string, 0, len(t.supported))
	for _, tag := range t.supported {
		base, _ := tag.Base()
		out = append(out, base.String())
	}
	return out
}

// Match picks the best supported locale for an Accept-Language style value.
// It returns "" when nothing but the fallback matches.
func (t *Translator) Match(accept string) string {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return ""
	}
	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return ""
	}
	base, _ := t.supported[idx].Base()
	return base.String()
}

// Normalize maps any locale string onto a supported code, or DefaultLocale.
func (t *Translator) Normalize(locale string) string {
	if m := t.Match(locale); m != "" {
		return m
	}
	return DefaultLocale
}

// T formats key for locale. Missing keys fall back to English, then to the key.
func (t *Translator) T(locale, key string, args ...any) string {
	p, ok := t.printers[t.Normalize(locale)]
	if !ok {
		p = t.printers[DefaultLocale]
	}
	return p.Sprintf(key, args...)
}

// Has reports whether key exists in the default catalog.
func (t *Translator) Has(key string) bool {
	_, ok := t.messages[DefaultLocale][key]
	return ok
}

// Messages returns the catalog for locale merged over English.
func (t *Translator) Messages(locale string) map[string]string {
	out := make(map[string]string, len(t.messages[DefaultLocale]))
	for k, v := range t.messages[DefaultLocale] {
		out[k] = v
	}
	for k, v := range t.messages[t.Normalize(locale)] {
		out[k] = v
	}
	return out
}

// Package i18n localizes replay narration messages.
//
// Message catalogs are embedded per-locale YAML files with flat quoted
// key/value pairs. Lookups fall back to the base locale, then to the key
// itself, so a missing translation never blocks narration.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// BaseLocale is the canonical source locale for catalogs.
const BaseLocale = "en-US"

//go:embed locales/*/*.yaml
var embeddedFS embed.FS

// Catalog stores message templates per locale.
type Catalog struct {
	locales map[string]map[string]string
	matcher language.Matcher
	tags    []string
}

// Load parses the catalogs embedded in this package.
func Load() (*Catalog, error) {
	return LoadFromFS(embeddedFS)
}

// LoadFromFS parses catalog files from the provided filesystem. Files live at
// locales/<locale>/<name>.yaml and the declared locale must match the path.
func LoadFromFS(catalogFS fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(catalogFS, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	catalog := &Catalog{locales: map[string]map[string]string{}}
	for _, path := range paths {
		data, err := fs.ReadFile(catalogFS, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		locale, messages, err := parseCatalogFile(data)
		if err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		localeFromPath := strings.Split(path, "/")[1]
		if locale != localeFromPath {
			return nil, fmt.Errorf("catalog %s: locale %q must match path locale %q", path, locale, localeFromPath)
		}
		existing, ok := catalog.locales[locale]
		if !ok {
			existing = map[string]string{}
			catalog.locales[locale] = existing
		}
		for key, value := range messages {
			if _, dup := existing[key]; dup {
				return nil, fmt.Errorf("catalog %s: duplicate key %q in locale %q", path, key, locale)
			}
			existing[key] = value
		}
	}

	if _, ok := catalog.locales[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}

	tags := make([]language.Tag, 0, len(catalog.locales))
	// The matcher prefers earlier tags, so the base locale goes first.
	catalog.tags = append(catalog.tags, BaseLocale)
	tags = append(tags, language.MustParse(BaseLocale))
	for locale := range catalog.locales {
		if locale == BaseLocale {
			continue
		}
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		catalog.tags = append(catalog.tags, locale)
		tags = append(tags, tag)
	}
	catalog.matcher = language.NewMatcher(tags)

	return catalog, nil
}

// Locales returns the available locale identifiers.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.locales))
	for locale := range c.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Resolve maps an arbitrary requested locale ("pt", "pt-BR", "en-GB") to the
// best available catalog locale, falling back to the base locale.
func (c *Catalog) Resolve(requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return BaseLocale
	}
	tag, err := language.Parse(requested)
	if err != nil {
		return BaseLocale
	}
	_, index, confidence := c.matcher.Match(tag)
	if confidence == language.No {
		return BaseLocale
	}
	return c.tags[index]
}

// Message returns the raw template for a key with base-locale fallback.
func (c *Catalog) Message(locale, key string) (string, bool) {
	if messages, ok := c.locales[locale]; ok {
		if value, exists := messages[key]; exists {
			return value, true
		}
	}
	if locale != BaseLocale {
		value, exists := c.locales[BaseLocale][key]
		return value, exists
	}
	return "", false
}

// Format resolves the locale, looks up the key, and interpolates args via
// fmt. An unknown key formats as the key itself so the caller always gets a
// usable string.
func (c *Catalog) Format(locale, key string, args ...any) string {
	template, ok := c.Message(c.Resolve(locale), key)
	if !ok {
		template = key
	}
	if len(args) == 0 {
		return template
	}
	return fmt.Sprintf(template, args...)
}

func parseCatalogFile(data []byte) (string, map[string]string, error) {
	locale := ""
	messages := map[string]string{}
	inMessages := false

	for _, rawLine := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "locale:"):
			value, err := strconv.Unquote(strings.TrimSpace(strings.TrimPrefix(line, "locale:")))
			if err != nil {
				return "", nil, fmt.Errorf("parse locale: %w", err)
			}
			locale = value
		case line == "messages:":
			inMessages = true
		default:
			if !inMessages {
				return "", nil, fmt.Errorf("unexpected line %q", line)
			}
			key, value, err := parseMessageEntry(line)
			if err != nil {
				return "", nil, fmt.Errorf("parse message entry %q: %w", line, err)
			}
			messages[key] = value
		}
	}

	if locale == "" {
		return "", nil, fmt.Errorf("missing locale")
	}
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("missing messages")
	}
	return locale, messages, nil
}

func parseMessageEntry(line string) (string, string, error) {
	keyToken, rest, err := splitQuotedToken(line)
	if err != nil {
		return "", "", err
	}
	key, err := strconv.Unquote(keyToken)
	if err != nil {
		return "", "", fmt.Errorf("unquote key: %w", err)
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, ":") {
		return "", "", fmt.Errorf("missing ':' separator")
	}
	value, err := strconv.Unquote(strings.TrimSpace(strings.TrimPrefix(rest, ":")))
	if err != nil {
		return "", "", fmt.Errorf("unquote value: %w", err)
	}
	return key, value, nil
}

func splitQuotedToken(line string) (string, string, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "\"") {
		return "", "", fmt.Errorf("expected quoted token")
	}
	escaped := false
	for i := 1; i < len(trimmed); i++ {
		ch := trimmed[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '"' {
			return trimmed[:i+1], trimmed[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("unterminated quoted token")
}

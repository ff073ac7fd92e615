// Package i18n provides the localized operator messages printed during a
// build.
//
// Message catalogs live in locales/<tag>.yaml and are embedded into the
// binary. Each file is a flat map of message key to fmt format string.
// The catalogs are registered with golang.org/x/text/message. A key
// missing from a translation resolves to the English string, and an
// unknown key is printed as-is.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/cloudfoundry/jibber_jabber"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// DefaultLanguage is used when neither the caller nor the OS locale
// selects one of the embedded catalogs.
const DefaultLanguage = "en"

//go:embed locales/*.yaml
var localeFS embed.FS

// Translator formats message keys in one selected language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// bundle holds the parsed catalogs. tags[0] is always the default language,
// which is what language.NewMatcher falls back to.
type bundle struct {
	tags    []language.Tag
	catalog catalog.Catalog
}

// loadBundle parses every embedded locale file into a catalog builder.
func loadBundle(fsys fs.FS) (*bundle, error) {
	files, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locales: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no locale files found")
	}
	sort.Strings(files)

	defaultTag := language.Make(DefaultLanguage)
	parsed := map[language.Tag]map[string]string{}
	tags := []language.Tag{defaultTag}

	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", file, err)
		}

		messages := map[string]string{}
		if err := yaml.Unmarshal(data, &messages); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", file, err)
		}

		tag, err := language.Parse(strings.TrimSuffix(path.Base(file), ".yaml"))
		if err != nil {
			return nil, fmt.Errorf("locale %s: %w", file, err)
		}
		parsed[tag] = messages
		if tag != defaultTag {
			tags = append(tags, tag)
		}
	}

	defaults, ok := parsed[defaultTag]
	if !ok {
		return nil, fmt.Errorf("no %s locale file found", DefaultLanguage)
	}

	// Every language gets the full key set; keys a translation lacks are
	// filled from the default language.
	builder := catalog.NewBuilder(catalog.Fallback(defaultTag))
	for _, tag := range tags {
		for key, msg := range defaults {
			if translated, ok := parsed[tag][key]; ok {
				msg = translated
			}
			if err := builder.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("locale %s key %q: %w", tag, key, err)
			}
		}
	}

	return &bundle{tags: tags, catalog: builder}, nil
}

var embedded, embeddedErr = loadBundle(localeFS)

// New returns a Translator for the requested language. An empty lang
// detects the OS locale. Unsupported languages resolve to the closest
// embedded catalog, ultimately DefaultLanguage.
func New(lang string) (*Translator, error) {
	if embeddedErr != nil {
		return nil, embeddedErr
	}
	return newFromBundle(embedded, lang), nil
}

// MustNew is like New but panics if the embedded catalogs are broken.
func MustNew(lang string) *Translator {
	t, err := New(lang)
	if err != nil {
		panic(err)
	}
	return t
}

func newFromBundle(b *bundle, lang string) *Translator {
	if lang == "" {
		lang = detectLocale()
	}

	// Use the matched index rather than the returned tag: Match may attach
	// -u-rg extensions that the catalog does not know about.
	_, index, _ := language.NewMatcher(b.tags).Match(language.Make(lang))
	tag := b.tags[index]

	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b.catalog)),
	}
}

// detectLocale returns the OS locale as an IETF tag, or DefaultLanguage.
func detectLocale() string {
	locale, err := jibber_jabber.DetectIETF()
	if err != nil || locale == "" {
		return DefaultLanguage
	}
	return locale
}

// T formats the message stored under key with args.
func (t *Translator) T(key string, args ...interface{}) string {
	return t.printer.Sprintf(key, args...)
}

// Language returns the BCP 47 tag of the selected catalog (e.g. "zh").
func (t *Translator) Language() string {
	return t.tag.String()
}

// Languages lists the embedded catalog tags, default language first.
func Languages() []string {
	if embeddedErr != nil {
		return nil
	}
	out := make([]string, 0, len(embedded.tags))
	for _, tag := range embedded.tags {
		out = append(out, tag.String())
	}
	return out
}

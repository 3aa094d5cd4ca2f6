// Package i18n translates the command line help and user facing messages.
package i18n

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// EnvLang overrides the detected locale.
const EnvLang = "APKCRAWLER_LANG"

var (
	mu        sync.RWMutex
	bundle    *goi18n.Bundle
	localizer *goi18n.Localizer
	current   = language.English

	supported = []language.Tag{language.English, language.Chinese}
	matcher   = language.NewMatcher(supported)
)

//go:embed locales/*.toml
var localeFS embed.FS

// Init loads the embedded catalogs and picks a language. The first usable
// value wins: langOverride, APKCRAWLER_LANG, LC_ALL, LC_MESSAGES, LANG,
// then the platform's preferred UI languages. English is the fallback.
func Init(langOverride string) error {
	b := goi18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("load locales: %w", err)
	}
	for _, e := range entries {
		if _, err := b.LoadMessageFileFS(localeFS, "locales/"+e.Name()); err != nil {
			return fmt.Errorf("load locales/%s: %w", e.Name(), err)
		}
	}

	tag := selectLanguage(localeCandidates(langOverride))

	mu.Lock()
	bundle = b
	localizer = goi18n.NewLocalizer(b, tag.String(), language.English.String())
	current = tag
	mu.Unlock()
	return nil
}

// T translates id. Missing translations fall back to English and then to
// the id itself, so T never returns an empty string.
func T(id string, data ...map[string]interface{}) string {
	mu.RLock()
	l := localizer
	mu.RUnlock()

	if l == nil {
		if err := Init(""); err != nil {
			fmt.Fprintf(os.Stderr, "i18n init failed: %v\n", err)
			return id
		}
		mu.RLock()
		l = localizer
		mu.RUnlock()
	}

	var td map[string]interface{}
	if len(data) > 0 {
		td = data[0]
	}

	msg, err := l.Localize(&goi18n.LocalizeConfig{
		MessageID:      id,
		TemplateData:   td,
		PluralCount:    pluralCount(td),
		DefaultMessage: &goi18n.Message{ID: id, Other: id},
	})
	if err != nil || msg == "" {
		return id
	}
	return msg
}

// CurrentLanguage returns the chosen language tag.
func CurrentLanguage() language.Tag {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func localeCandidates(override string) []string {
	var out []string
	if v := strings.TrimSpace(override); v != "" {
		out = append(out, v)
	}
	for _, key := range []string{EnvLang, "LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		out = getPlatformLocales()
	}
	return out
}

// selectLanguage returns the supported language of the first candidate
// that names one. POSIX forms such as zh_CN.UTF-8 are accepted; "C" and
// "POSIX" are skipped.
func selectLanguage(candidates []string) language.Tag {
	for _, cand := range candidates {
		tag, ok := parseLocale(cand)
		if !ok {
			continue
		}
		if _, idx, conf := matcher.Match(tag); conf != language.No {
			return supported[idx]
		}
	}
	return language.English
}

func parseLocale(s string) (language.Tag, bool) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	switch strings.ToUpper(s) {
	case "", "C", "POSIX":
		return language.Und, false
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

func pluralCount(data map[string]interface{}) interface{} {
	for _, key := range []string{"Count", "count", "Total", "total"} {
		if v, ok := data[key]; ok {
			return v
		}
	}
	return nil
}

package i18n

import (
	"sort"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"
)

func TestSelectLanguage(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       language.Tag
	}{
		{"none", nil, language.English},
		{"posix chinese", []string{"zh_CN.UTF-8"}, language.Chinese},
		{"english", []string{"en_US.UTF-8"}, language.English},
		{"skips C", []string{"C", "zh"}, language.Chinese},
		{"unsupported", []string{"fr_FR"}, language.English},
		{"first supported wins", []string{"en", "zh"}, language.English},
		{"garbage", []string{"!!"}, language.English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectLanguage(tt.candidates); got != tt.want {
				t.Errorf("selectLanguage(%q) = %v, want %v", tt.candidates, got, tt.want)
			}
		})
	}
}

func TestOverrideTakesPrecedence(t *testing.T) {
	t.Setenv(EnvLang, "en")
	got := localeCandidates("zh")
	if len(got) < 2 || got[0] != "zh" || got[1] != "en" {
		t.Errorf("localeCandidates = %q, want override first", got)
	}
}

func TestTranslate(t *testing.T) {
	t.Cleanup(func() { _ = Init("en") })

	if err := Init("zh"); err != nil {
		t.Fatalf("Init(zh) failed: %v", err)
	}
	if CurrentLanguage() != language.Chinese {
		t.Fatalf("CurrentLanguage = %v, want zh", CurrentLanguage())
	}
	if got := T("common.error"); got != "错误" {
		t.Errorf("T(common.error) = %q", got)
	}

	if err := Init("en"); err != nil {
		t.Fatalf("Init(en) failed: %v", err)
	}
	if got := T("common.error"); got != "Error" {
		t.Errorf("T(common.error) = %q", got)
	}
	if got := T("no.such.message"); got != "no.such.message" {
		t.Errorf("T(missing) = %q, want the id", got)
	}
}

func messageIDs(t *testing.T, file string) []string {
	t.Helper()
	data, err := localeFS.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	var tree map[string]interface{}
	if err := toml.Unmarshal(data, &tree); err != nil {
		t.Fatalf("%s: %v", file, err)
	}

	var ids []string
	var walk func(prefix string, m map[string]interface{})
	walk = func(prefix string, m map[string]interface{}) {
		for k, v := range m {
			if sub, ok := v.(map[string]interface{}); ok {
				walk(prefix+k+".", sub)
				continue
			}
			ids = append(ids, prefix+k)
		}
	}
	walk("", tree)
	sort.Strings(ids)
	return ids
}

func TestCatalogsHaveSameMessages(t *testing.T) {
	en := messageIDs(t, "locales/active.en.toml")
	zh := messageIDs(t, "locales/active.zh.toml")
	if len(en) == 0 {
		t.Fatal("english catalog is empty")
	}
	if diff := cmp.Diff(en, zh); diff != "" {
		t.Errorf("catalog message ids differ (-en +zh):\n%s", diff)
	}
}

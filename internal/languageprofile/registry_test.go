package languageprofile

import "testing"

func TestDefaultRegistryResolvesAliases(t *testing.T) {
	reg := Default()

	cases := map[string]string{
		"python":     "python",
		"py":         "python",
		"python3":    "python",
		"js":         "javascript",
		"node":       "javascript",
		"nodejs":     "javascript",
		"ts":         "typescript",
		"golang":     "go",
		"go":         "go",
		"c++":        "cpp",
		"cpp":        "cpp",
		"java":       "java",
		"javascript": "javascript",
	}

	for alias, want := range cases {
		p, ok := reg.Lookup(alias)
		if !ok {
			t.Fatalf("Lookup(%q): expected a profile, got none", alias)
		}
		if p.Language != want {
			t.Fatalf("Lookup(%q): got language %q, want %q", alias, p.Language, want)
		}
	}
}

func TestUnknownLanguageNotFound(t *testing.T) {
	reg := Default()
	if _, ok := reg.Lookup("ruby"); ok {
		t.Fatalf("Lookup(\"ruby\"): expected not found")
	}
}

func TestNewRegistryIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry([]Profile{{Language: "Python"}})
	if _, ok := reg.Lookup("PYTHON"); !ok {
		t.Fatalf("expected case-insensitive lookup to succeed")
	}
}

package country

import "testing"

func TestNameFallsBackToCode(t *testing.T) {
	if got := Name("ZZZ"); got != "ZZZ" {
		t.Fatalf("unknown code should fall back, got %q", got)
	}
	if got := Name("USA"); got != "United States" {
		t.Fatalf("USA: got %q", got)
	}
	if got := Name(""); got != "" {
		t.Fatalf("empty: got %q", got)
	}
}

func TestCodeAndKey(t *testing.T) {
	code, ok := Code("Germany")
	if !ok || code != "DEU" {
		t.Fatalf("Germany: got %q ok=%v", code, ok)
	}
	if code, ok := Code("United States"); !ok || code != "USA" {
		t.Fatalf("United States: got %q ok=%v", code, ok)
	}
	if got := Key("  Atlantis "); got != "Atlantis" {
		t.Fatalf("unresolvable key should be trimmed name, got %q", got)
	}
	if got := Key(Name("DEU")); got != "DEU" {
		t.Fatalf("round trip DEU: got %q", got)
	}
}

package util

import (
	"path/filepath"
	"testing"
)

func TestURIRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "my styles", "main.scss")
	uri := PathToURI(p)
	if got := URIToPath(uri); got != p {
		t.Fatalf("expected %q, got %q", p, got)
	}
	if got := URIExtension(uri); got != "scss" {
		t.Fatalf("expected scss, got %q", got)
	}
}

func TestURIToPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		uri      string
		expected string
	}{
		{name: "Empty", uri: "", expected: ""},
		{name: "Escaped", uri: "file:///tmp/a%20b/c.css", expected: filepath.FromSlash("/tmp/a b/c.css")},
		{name: "BarePath", uri: "/tmp/x/../y.css", expected: filepath.FromSlash("/tmp/y.css")},
		{name: "OtherScheme", uri: "https://example.com/a.css", expected: ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := URIToPath(tc.uri); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

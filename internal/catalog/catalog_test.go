package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glizzus/radio-relay/internal/catalog"
	"github.com/google/go-cmp/cmp"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog should be valid: %v", err)
	}
	if c.Len() != 14 {
		t.Errorf("expected 14 streams, got %d", c.Len())
	}

	for _, s := range c.All() {
		got, ok := c.Lookup(s.Key)
		if !ok {
			t.Errorf("key %q listed but not resolvable", s.Key)
			continue
		}
		if got.URL == "" {
			t.Errorf("key %q resolved to an empty url", s.Key)
		}
	}

	megastar, ok := c.Lookup("megastar")
	if !ok || megastar.Label != "MegaStar" {
		t.Errorf("Lookup(megastar) = %+v, %v", megastar, ok)
	}
}

func TestLookupMissing(t *testing.T) {
	c, err := catalog.New([]catalog.Stream{{Key: "alpha", Label: "Alpha", URL: "https://x/alpha.mp3"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.Lookup("nonexistent"); ok {
		t.Errorf("expected nonexistent key to be missing")
	}
}

func TestNewValidation(t *testing.T) {
	tc := []struct {
		name    string
		streams []catalog.Stream
	}{
		{
			name:    "empty key",
			streams: []catalog.Stream{{Label: "A", URL: "https://x/a"}},
		},
		{
			name:    "empty label",
			streams: []catalog.Stream{{Key: "a", URL: "https://x/a"}},
		},
		{
			name:    "relative url",
			streams: []catalog.Stream{{Key: "a", Label: "A", URL: "/a.mp3"}},
		},
		{
			name:    "unsupported scheme",
			streams: []catalog.Stream{{Key: "a", Label: "A", URL: "ftp://x/a"}},
		},
		{
			name:    "unknown style",
			streams: []catalog.Stream{{Key: "a", Label: "A", URL: "https://x/a", Style: "blurple"}},
		},
		{
			name: "duplicate key",
			streams: []catalog.Stream{
				{Key: "a", Label: "A", URL: "https://x/a"},
				{Key: "a", Label: "B", URL: "https://x/b"},
			},
		},
	}

	for _, testCase := range tc {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := catalog.New(testCase.streams); err == nil {
				t.Errorf("expected error but got none")
			}
		})
	}
}

func TestAllPreservesOrderAndIsACopy(t *testing.T) {
	c, err := catalog.New([]catalog.Stream{
		{Key: "b", Label: "B", URL: "https://x/b"},
		{Key: "a", Label: "A", URL: "https://x/a", Style: catalog.StyleDanger, Row: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all := c.All()
	want := []catalog.Stream{
		{Key: "b", Label: "B", URL: "https://x/b", Style: catalog.StylePrimary},
		{Key: "a", Label: "A", URL: "https://x/a", Style: catalog.StyleDanger, Row: 1},
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}

	all[0].Label = "mutated"
	if s, _ := c.Lookup("b"); s.Label != "B" {
		t.Errorf("mutating All() leaked into the catalog")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.yaml")
	data := []byte(`
streams:
  - key: alpha
    label: Alpha
    url: https://x/alpha.mp3
    emoji: "🅰️"
    style: success
    row: 2
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	c, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := c.Lookup("alpha")
	if !ok {
		t.Fatalf("alpha missing from loaded catalog")
	}
	want := catalog.Stream{Key: "alpha", Label: "Alpha", URL: "https://x/alpha.mp3", Emoji: "🅰️", Style: "success", Row: 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lookup() mismatch (-want +got):\n%s", diff)
	}

	if _, err := catalog.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
	if _, err := catalog.Parse([]byte("streams: [")); err == nil {
		t.Errorf("expected error for malformed yaml")
	}
}

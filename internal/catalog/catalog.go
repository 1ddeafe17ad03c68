package catalog

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Button styles understood by the control panel.
const (
	StylePrimary   = "primary"
	StyleSecondary = "secondary"
	StyleSuccess   = "success"
	StyleDanger    = "danger"
)

// Stream is a single relayable station.
type Stream struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
	Emoji string `yaml:"emoji"`
	Style string `yaml:"style"`
	Row   int    `yaml:"row"`
}

type file struct {
	Streams []Stream `yaml:"streams"`
}

// Catalog is an ordered, read-only set of streams indexed by key.
// It is safe for concurrent use since it is never mutated after New.
type Catalog struct {
	streams []Stream
	byKey   map[string]int
}

// New validates the streams and builds a catalog that preserves their order.
func New(streams []Stream) (*Catalog, error) {
	c := &Catalog{
		streams: make([]Stream, 0, len(streams)),
		byKey:   make(map[string]int, len(streams)),
	}
	for i, s := range streams {
		if err := Validate(s); err != nil {
			return nil, fmt.Errorf("invalid stream at index %d: %w", i, err)
		}
		if _, exists := c.byKey[s.Key]; exists {
			return nil, fmt.Errorf("duplicate stream key %q", s.Key)
		}
		if s.Style == "" {
			s.Style = StylePrimary
		}
		c.byKey[s.Key] = len(c.streams)
		c.streams = append(c.streams, s)
	}
	return c, nil
}

// Validate checks a single stream. Empty styles are accepted and mean primary.
func Validate(s Stream) error {
	if s.Key == "" {
		return fmt.Errorf("key is required")
	}
	if s.Label == "" {
		return fmt.Errorf("label is required for %q", s.Key)
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("url of %q is not valid: %w", s.Key, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url of %q must be an absolute http(s) url, got %q", s.Key, s.URL)
	}
	switch s.Style {
	case "", StylePrimary, StyleSecondary, StyleSuccess, StyleDanger:
	default:
		return fmt.Errorf("unknown style %q for %q", s.Style, s.Key)
	}
	if s.Row < 0 {
		return fmt.Errorf("row of %q must not be negative", s.Key)
	}
	return nil
}

// Lookup returns the stream registered under key.
func (c *Catalog) Lookup(key string) (Stream, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return Stream{}, false
	}
	return c.streams[i], true
}

// All returns a copy of the streams in catalog order.
func (c *Catalog) All() []Stream {
	return slices.Clone(c.streams)
}

func (c *Catalog) Len() int {
	return len(c.streams)
}

//go:embed streams.yaml
var defaultStreams []byte

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultStreams)
}

// Load reads a YAML catalog of the form `streams: [{key, label, url, ...}]`.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(f.Streams)
}

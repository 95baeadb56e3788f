// Package catalog holds the static card definitions received from the server, keyed by name.
package catalog

import (
	"encoding/json"
	"errors"
	"sort"

	"go.uber.org/zap"
)

// ErrMalformedDefinition reports a definition payload that cannot be used.
var ErrMalformedDefinition = errors.New("malformed card definition")

// Stats holds printed power and health. Values stay textual because "X" is legal.
type Stats struct {
	Power  string `json:"power"`
	Health string `json:"health"`
}

// CardDefinition is the static description of a card.
type CardDefinition struct {
	Name      string   `json:"name"`
	Costs     []string `json:"costs,omitempty"`
	Type      string   `json:"type,omitempty"`
	Subtypes  []string `json:"subtypes,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Activated []string `json:"activated,omitempty"`
	Triggered []string `json:"triggered,omitempty"`
	Static    []string `json:"static,omitempty"`
	Text      string   `json:"text,omitempty"`
	Stats     *Stats   `json:"stats,omitempty"`
}

// HasKeyword reports whether the definition lists keyword k.
func (d CardDefinition) HasKeyword(k string) bool {
	for _, kw := range d.Keywords {
		if kw == k {
			return true
		}
	}
	return false
}

// Catalog maps card names to definitions. Later definitions for a name replace earlier ones.
// It is owned by the session dispatch loop and is not safe for concurrent use.
type Catalog struct {
	logger *zap.Logger
	defs   map[string]CardDefinition
}

// New creates an empty catalog.
func New(logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		logger: logger,
		defs:   make(map[string]CardDefinition),
	}
}

// Ingest parses and stores raw definition payloads. Malformed entries are logged and skipped.
// It returns the number of definitions stored.
func (c *Catalog) Ingest(raw []json.RawMessage) int {
	stored := 0
	for i, payload := range raw {
		def, err := ParsePayload(payload)
		if err != nil {
			c.logger.Warn("skipping card definition",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		c.put(def)
		stored++
	}
	return stored
}

// IngestDefinitions stores already decoded definitions. Entries without a name are skipped.
func (c *Catalog) IngestDefinitions(defs []CardDefinition) int {
	stored := 0
	for i, def := range defs {
		if def.Name == "" {
			c.logger.Warn("skipping card definition",
				zap.Int("index", i),
				zap.Error(ErrMalformedDefinition),
			)
			continue
		}
		c.put(def)
		stored++
	}
	return stored
}

func (c *Catalog) put(def CardDefinition) {
	if _, exists := c.defs[def.Name]; exists {
		c.logger.Debug("replacing card definition", zap.String("card_name", def.Name))
	}
	c.defs[def.Name] = def
}

// Resolve returns the definition stored under name.
func (c *Catalog) Resolve(name string) (CardDefinition, bool) {
	def, ok := c.defs[name]
	return def, ok
}

// Len returns the number of known definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// Names returns all known card names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

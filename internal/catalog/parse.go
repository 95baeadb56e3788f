package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	statsPattern   = regexp.MustCompile(`^\s*(\S+)\s*/\s*(\S+)\s*$`)
	keywordPattern = regexp.MustCompile(`^[a-z]+$`)
)

// triggerPrefixes start triggered ability text.
var triggerPrefixes = []string{"When ", "Whenever ", "At "}

// ParseText parses the multi-line card text format:
//
//	Name {c1}{c2}
//	type [type...] [- subtype...]
//	rules text, one ability per line
//	P / H
//
// The stats line is optional.
func ParseText(text string) (CardDefinition, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	header := lines[0]
	name := header
	if idx := strings.Index(header, "{"); idx >= 0 {
		name = header[:idx]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return CardDefinition{}, fmt.Errorf("%w: card text has no name", ErrMalformedDefinition)
	}

	def := CardDefinition{
		Name:  name,
		Costs: ParseCosts(header),
	}

	if len(lines) > 1 {
		def.Type, def.Subtypes = parseTypeLine(lines[1])
	}

	body := []string{}
	if len(lines) > 2 {
		body = lines[2:]
		if m := statsPattern.FindStringSubmatch(body[len(body)-1]); m != nil {
			def.Stats = &Stats{Power: m[1], Health: m[2]}
			body = body[:len(body)-1]
		}
	}

	kept := make([]string, 0, len(body))
	for _, line := range body {
		if line != "" {
			kept = append(kept, line)
		}
	}
	def.Text = strings.Join(kept, "\n")
	classifyAbilities(&def, kept)

	return def, nil
}

func parseTypeLine(line string) (string, []string) {
	typePart, subtypePart, _ := strings.Cut(line, "-")
	typ := strings.Join(strings.Fields(typePart), " ")
	subtypes := strings.Fields(subtypePart)
	if len(subtypes) == 0 {
		subtypes = nil
	}
	return typ, subtypes
}

// classifyAbilities sorts rules text lines into keyword, activated, triggered and static lists.
func classifyAbilities(def *CardDefinition, lines []string) {
	for _, line := range lines {
		if words, ok := keywordLine(line); ok {
			def.Keywords = append(def.Keywords, words...)
			continue
		}
		if strings.Contains(line, ":") {
			def.Activated = append(def.Activated, line)
			continue
		}
		if isTriggered(line) {
			def.Triggered = append(def.Triggered, line)
			continue
		}
		def.Static = append(def.Static, line)
	}
}

// keywordLine reports whether the line is a comma separated list of single lowercase words.
func keywordLine(line string) ([]string, bool) {
	parts := strings.Split(line, ",")
	words := make([]string, 0, len(parts))
	for _, part := range parts {
		word := strings.TrimSpace(part)
		if !keywordPattern.MatchString(word) {
			return nil, false
		}
		words = append(words, word)
	}
	return words, len(words) > 0
}

func isTriggered(line string) bool {
	for _, prefix := range triggerPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// objectDefinition is the structured payload form of a definition.
type objectDefinition struct {
	Name      string          `json:"name"`
	Costs     []string        `json:"costs"`
	Type      string          `json:"type"`
	Subtypes  []string        `json:"subtypes"`
	Keywords  []string        `json:"keywords"`
	Activated []string        `json:"activated"`
	Triggered []string        `json:"triggered"`
	Static    []string        `json:"static"`
	Text      string          `json:"text"`
	Power     json.RawMessage `json:"power"`
	Health    json.RawMessage `json:"health"`
}

// ParsePayload decodes one raw definition payload, either a JSON string in card text
// format or a JSON object.
func ParsePayload(raw json.RawMessage) (CardDefinition, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return CardDefinition{}, fmt.Errorf("%w: empty payload", ErrMalformedDefinition)
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return CardDefinition{}, fmt.Errorf("%w: %v", ErrMalformedDefinition, err)
		}
		return ParseText(text)
	case '{':
		var obj objectDefinition
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return CardDefinition{}, fmt.Errorf("%w: %v", ErrMalformedDefinition, err)
		}
		return obj.definition()
	default:
		return CardDefinition{}, fmt.Errorf("%w: unsupported payload %s", ErrMalformedDefinition, string(trimmed))
	}
}

func (o objectDefinition) definition() (CardDefinition, error) {
	name := strings.TrimSpace(o.Name)
	if name == "" {
		return CardDefinition{}, fmt.Errorf("%w: missing name", ErrMalformedDefinition)
	}

	def := CardDefinition{
		Name:      name,
		Costs:     o.Costs,
		Type:      o.Type,
		Subtypes:  o.Subtypes,
		Keywords:  o.Keywords,
		Activated: o.Activated,
		Triggered: o.Triggered,
		Static:    o.Static,
		Text:      o.Text,
	}

	power, okPower := statText(o.Power)
	health, okHealth := statText(o.Health)
	if okPower || okHealth {
		def.Stats = &Stats{Power: power, Health: health}
	}

	// Text-only objects still get their ability lists.
	if o.Text != "" && len(o.Keywords)+len(o.Activated)+len(o.Triggered)+len(o.Static) == 0 {
		lines := []string{}
		for _, line := range strings.Split(o.Text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		classifyAbilities(&def, lines)
	}

	return def, nil
}

// statText accepts a stat as a JSON number or string ("X" is a valid power).
func statText(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", false
	}
	return n.String(), true
}

// MarshalPayload renders def in the object payload form ParsePayload accepts.
func MarshalPayload(def CardDefinition) (json.RawMessage, error) {
	obj := objectDefinition{
		Name:      def.Name,
		Costs:     def.Costs,
		Type:      def.Type,
		Subtypes:  def.Subtypes,
		Keywords:  def.Keywords,
		Activated: def.Activated,
		Triggered: def.Triggered,
		Static:    def.Static,
		Text:      def.Text,
	}
	if def.Stats != nil {
		var err error
		if obj.Power, err = json.Marshal(def.Stats.Power); err != nil {
			return nil, err
		}
		if obj.Health, err = json.Marshal(def.Stats.Health); err != nil {
			return nil, err
		}
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to encode definition %s: %w", def.Name, err)
	}
	return raw, nil
}

package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// costPattern matches cost symbols: {1}, {s}, {X}, {q}, ...
var costPattern = regexp.MustCompile(`\{([^}]+)\}`)

// Cost symbols that are not payments but state changes of the source.
const (
	CostActivate   = "q"
	CostDeactivate = "t"
)

// ParseCosts extracts the ordered cost tokens from a line such as "Knight {2}{s}".
// Tokens are returned without braces and trimmed; empty tokens are dropped.
func ParseCosts(line string) []string {
	matches := costPattern.FindAllStringSubmatch(line, -1)
	tokens := make([]string, 0, len(matches))
	for _, match := range matches {
		if len(match) < 2 {
			continue
		}
		symbol := strings.TrimSpace(match[1])
		if symbol == "" {
			continue
		}
		tokens = append(tokens, symbol)
	}
	return tokens
}

// TotalCost sums the essence a cost list asks for. Numbers count their value, X counts
// zero and every other payable symbol counts one.
func TotalCost(tokens []string) int {
	total := 0
	for _, token := range tokens {
		symbol := strings.ToLower(token)
		switch symbol {
		case "x", CostActivate, CostDeactivate:
			continue
		}
		if n, err := strconv.Atoi(symbol); err == nil {
			total += n
			continue
		}
		total++
	}
	return total
}

// import_cards converts a CSV card export into a game.info script line that
// script-server can replay to clients.
//
// Usage: go run ./scripts/import_cards.go [cards.csv] > cards.script
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cardengine/table-client/internal/catalog"
	"github.com/cardengine/table-client/internal/protocol"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	csvPath := "data/cards_export.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	absPath, err := filepath.Abs(csvPath)
	if err != nil {
		logger.Fatal("failed to resolve path", zap.Error(err))
	}

	file, err := os.Open(absPath)
	if err != nil {
		logger.Fatal("failed to open csv export", zap.String("path", absPath), zap.Error(err))
	}
	defer file.Close()

	defs, skipped, err := catalog.ReadCSV(file)
	if err != nil {
		logger.Fatal("failed to read csv export", zap.Error(err))
	}
	for _, rowErr := range skipped {
		logger.Warn("skipping card row", zap.Error(rowErr))
	}

	cards := make([]json.RawMessage, 0, len(defs))
	for _, def := range defs {
		raw, err := catalog.MarshalPayload(def)
		if err != nil {
			logger.Warn("skipping card", zap.String("card_name", def.Name), zap.Error(err))
			continue
		}
		cards = append(cards, raw)
	}

	// the line must decode the way clients will decode it
	data, err := json.Marshal(struct {
		Cards []json.RawMessage `json:"cards"`
	}{Cards: cards})
	if err != nil {
		logger.Fatal("failed to encode cards", zap.Error(err))
	}
	line, err := json.Marshal(protocol.Envelope{Type: protocol.TypeInfo, Data: data})
	if err != nil {
		logger.Fatal("failed to encode message", zap.Error(err))
	}
	if _, err := protocol.Decode(line); err != nil {
		logger.Fatal("generated message does not decode", zap.Error(err))
	}

	fmt.Println(string(line))
	logger.Info("import complete",
		zap.String("path", absPath),
		zap.Int("cards", len(cards)),
		zap.Int("skipped", len(skipped)),
	)
}

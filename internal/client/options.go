package client

import (
	"fmt"

	"github.com/cardengine/table-client/internal/config"
	"github.com/cardengine/table-client/internal/input"
	"github.com/cardengine/table-client/internal/session"
)

// OptionsFromConfig maps loaded configuration onto client options.
func OptionsFromConfig(cfg *config.Config, sessionID string) (Options, error) {
	policy, err := input.ParseCancelPolicy(cfg.Input.CancelPolicy)
	if err != nil {
		return Options{}, fmt.Errorf("invalid input config: %w", err)
	}
	return Options{
		SessionID: sessionID,
		Room:      cfg.Server.Room,
		Session: session.Options{
			SelfName: cfg.Server.PlayerName,
			Rows:     cfg.Board.Rows,
			Columns:  cfg.Board.Columns,
			Hand: session.HandLayout{
				CenterX: cfg.Hand.CenterX,
				CenterY: cfg.Hand.CenterY,
				Radius:  cfg.Hand.Radius,
			},
			StartLife: cfg.Session.StartLife,
		},
		Cancel:           policy,
		StrictInvariants: cfg.Session.StrictInvariants,
	}, nil
}

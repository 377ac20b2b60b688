package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"matchbot/internal/engine"
	"matchbot/internal/engine/providers"
	"matchbot/internal/extractor"
	"matchbot/internal/types"
)

// decideCmd runs the decision engine against a saved profile text without
// touching a device: useful for tuning criteria and prompts.
var decideCmd = &cobra.Command{
	Use:   "decide <textfile>",
	Short: "Dry-run the decision engine on a saved profile text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if cfg.Decision.APIKey == "" {
			return fmt.Errorf("decision api_key is required (set ANTHROPIC_API_KEY)")
		}

		text, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		ext := extractor.New(cfg.Session.MaxFrames, cfg.Criteria.PreferredInterests)
		rec := ext.Begin()
		capture := &types.Capture{ID: "offline", TakenAt: time.Now()}
		ext.Ingest(rec, capture, string(text), nil)

		fmt.Printf("Parsed profile: name=%q age=%d interests=%v (%d fragments)\n",
			rec.Name, rec.Age, rec.Interests, len(rec.Fragments))

		strategy := providers.NewAnthropicStrategy(cfg.Decision.APIKey, cfg.Decision.Model)
		eng := engine.New(strategy, time.Duration(cfg.Timing.AdapterRetryDelaySec)*time.Second)
		decision := eng.Decide(cmd.Context(), rec, cfg.Criteria)

		out, err := json.MarshalIndent(decision, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

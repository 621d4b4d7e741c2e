package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"asterplayer/core/charm"
	"asterplayer/model"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [traits-json | name=stage ...]",
	Short: "Classify a set of charm traits",
	Long: `Classify charm traits and print the dominant category, its disc
artwork and the per-category weights. No backend is contacted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		traits, err := parseTraitArgs(args)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(charm.DefaultCatalog().Analyze(traits))
	},
}

// parseTraitArgs accepts either one JSON array of traits or name=stage
// pairs.
func parseTraitArgs(args []string) ([]model.CharmTrait, error) {
	if len(args) == 1 && strings.HasPrefix(strings.TrimSpace(args[0]), "[") {
		var traits []model.CharmTrait
		if err := json.Unmarshal([]byte(args[0]), &traits); err != nil {
			return nil, fmt.Errorf("decode traits: %w", err)
		}
		return traits, nil
	}

	traits := make([]model.CharmTrait, 0, len(args))
	for _, arg := range args {
		name, stage, ok := strings.Cut(arg, "=")
		if !ok {
			traits = append(traits, model.CharmTrait{CharmName: arg})
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(stage))
		if err != nil {
			return nil, fmt.Errorf("invalid stage in %q", arg)
		}
		traits = append(traits, model.CharmTrait{CharmName: name, Stage: model.Stage(n)})
	}
	return traits, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Example = `  asterplayer analyze 다정함=8 "유머 감각=6" 창의성=7
  asterplayer analyze '[{"charm_name":"호기심","stage":5}]'`
}

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/algoscene/internal/config"
	"github.com/AaronLay10/algoscene/internal/fault"
	"github.com/AaronLay10/algoscene/internal/mqtt"
	"github.com/AaronLay10/algoscene/internal/orchestrator"
	"github.com/AaronLay10/algoscene/internal/scene"
	"github.com/AaronLay10/algoscene/internal/script"
)

var errValidation = errors.New("project validation failed")

func newValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the project, script and scene without running them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			problems := validateProject(cfg)
			out := cmd.OutOrStdout()
			if len(problems) == 0 {
				fmt.Fprintln(out, "project is valid")
				return nil
			}
			for _, p := range problems {
				printProblem(out, p)
			}
			return fmt.Errorf("%w: %d problem(s)", errValidation, len(problems))
		},
	}
}

// validateProject collects every problem instead of stopping at the first.
func validateProject(cfg *config.Config) []error {
	var problems []error
	if _, err := cfg.TimingModel(); err != nil {
		problems = append(problems, err)
	}
	if _, err := cfg.Static(); err != nil {
		problems = append(problems, err)
	}

	s, err := script.Load(cfg.Script)
	if err != nil {
		problems = append(problems, err)
	}
	doc, err := scene.LoadDocument(cfg.Scene)
	if err != nil {
		return append(problems, err)
	}

	var pub mqtt.Publisher
	if cfg.MQTT.Enabled {
		// Unconnected: Check only asks which types exist.
		pub = mqtt.NewClient(cfg.MQTT.Broker, cfg.MQTT.ClientID, nil)
	}
	problems = append(problems, doc.Check(newFactory(pub))...)
	if s != nil {
		problems = append(problems, doc.CheckBeats(s, orchestrator.ActionFeed)...)
	}
	return problems
}

func printProblem(w io.Writer, err error) {
	fmt.Fprintf(w, "- %v\n", err)
	if remedy := fault.RemedyOf(err); remedy != "" {
		fmt.Fprintf(w, "  fix: %s\n", remedy)
	}
}

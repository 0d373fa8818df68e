package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/draft-agent/internal/logging"
	"github.com/example/draft-agent/internal/models"
	"github.com/example/draft-agent/internal/stream"
	"github.com/example/draft-agent/internal/validation"
)

func newDraftCmd(g *globalFlags) *cobra.Command {
	var inputPath string
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Run one pipeline in-process and write its event stream to stdout",
		Example: `  draft-agent draft --input submission.json
  cat submission.json | draft-agent draft`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			// stdout carries the event stream.
			if cfg.Log.Output == "" || cfg.Log.Output == "stdout" {
				cfg.Log.Output = "stderr"
			}
			log := logging.New(cfg.Log, serviceName)

			sub, err := readSubmission(inputPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := validation.Struct(sub); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := wire(ctx, cfg, log, false)
			if err != nil {
				return err
			}
			defer a.Close()

			runID := uuid.NewString()
			log = log.WithFields(map[string]interface{}{logging.FieldRunID: runID})
			st, outcome, err := a.runner.Run(ctx, sub.Input(), stream.NewEncoder(cmd.OutOrStdout()).Emit)
			if err != nil {
				log.Error("run failed", map[string]interface{}{logging.FieldError: err})
				return err
			}
			log.Info("run finished", map[string]interface{}{"outcome": string(outcome), "errors": len(st.Errors)})
			if outcome == models.OutcomeCancelled {
				return fmt.Errorf("run %s cancelled", runID)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", `submission JSON file, "-" for stdin`)
	return cmd
}

func readSubmission(path string, stdin io.Reader) (models.Submission, error) {
	r := stdin
	if path != "-" && path != "" {
		f, err := os.Open(path)
		if err != nil {
			return models.Submission{}, err
		}
		defer f.Close()
		r = f
	}
	return models.DecodeSubmission(r)
}

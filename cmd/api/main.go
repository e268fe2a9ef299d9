package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"still-go/internal/actionable"
	"still-go/internal/aggregator"
	"still-go/internal/dataset"
	"still-go/internal/transcription"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "still",
	Short:         "Voice reflection service: transcribe a recording, return one reflection",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		transcribeCmd(),
		reflectCmd(),
		evalCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := buildApp()
			srv := a.server().HTTPServer()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.log.WithField("addr", srv.Addr).Info("listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					a.log.WithError(err).Error("server terminated")
				}
				return err
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func transcribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Run the transcription tiers on a local file and print every outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := buildApp()
			artifact, err := transcription.NewArtifact(args[0])
			if err != nil {
				return err
			}
			res, outcomes := a.orchestrator.Trace(cmd.Context(), artifact)
			for _, o := range outcomes {
				if o.Failure != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%-24s failed (%s): %v\n", o.Tier, o.Failure.Kind, o.Failure.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s ok\n", o.Tier)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n[%s] %s\n", res.Tier, res.Text)
			return nil
		},
	}
}

func reflectCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "reflect <transcript>",
		Short: "Generate a reflection for a transcript and print the JSON record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := buildApp()
			if raw {
				out, err := a.generator.Complete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			rec, err := a.generator.Generate(cmd.Context(), args[0])
			if err != nil {
				a.log.WithError(err).Warn("silence fallback returned")
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the unparsed completion instead of the record")
	return cmd
}

func evalCmd() *cobra.Command {
	var out string
	var limit int
	cmd := &cobra.Command{
		Use:   "eval <workbook.xlsx>",
		Short: "Generate reflections for every transcript in a workbook and write a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := buildApp()
			log := a.log.WithField("dataset_path", args[0])

			entries, err := dataset.Load(args[0])
			if err != nil {
				return fmt.Errorf("load dataset: %w", err)
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			log.WithField("rows", len(entries)).Info("dataset loaded")

			results := dataset.Evaluate(cmd.Context(), a.generator, entries, a.log)
			ins := aggregator.Aggregate(results)
			card := actionable.Generate(ins)

			if err := dataset.WriteReport(out, results, ins, card); err != nil {
				return err
			}
			log.WithField("report", out).
				WithField("fallbacks", ins.Fallbacks).
				WithField("mean_confidence", ins.MeanConfidence).
				Info("evaluation complete")

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"summary": ins, "action": card})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "still_eval_report.xlsx", "report workbook path")
	cmd.Flags().IntVar(&limit, "limit", 0, "evaluate at most this many rows (0 = all)")
	return cmd
}

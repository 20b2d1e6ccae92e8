// Command axpctl drives the AXP trust engine's enrichment, intent-mixing,
// soft-KPI, and verification pipelines from the shell — one subcommand per
// pipeline, JSON in and JSON out, so it doubles as an integration-test
// harness for the underlying packages.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	axphttp "github.com/axp-project/trust-engine/internal/http"
)

var rootCmd = &cobra.Command{
	Use:   "axpctl",
	Short: "AXP trust engine CLI",
	Long: `axpctl drives the AXP trust-engine pipelines: multi-provider
evidence enrichment, purchase-intent mixing, soft-KPI scoring, and
third-party trust verification.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("axpctl - AXP trust engine")
		fmt.Println("Use 'axpctl --help' to see available subcommands")
	},
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen, NoColor: !term.IsTerminal(int(os.Stderr.Fd()))}
	log.Logger = log.Output(out)

	if err := rootCmd.Execute(); err != nil {
		requestID := uuid.New().String()[:8]
		log.Error().Str("request_id", requestID).Err(err).Msg("command failed")

		resp := axphttp.ErrorResponse{
			Error:     "command_failed",
			Message:   err.Error(),
			Code:      "AXPCTL_ERROR",
			RequestID: requestID,
			Timestamp: time.Now().UTC(),
		}
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(resp)
		os.Exit(1)
	}
}

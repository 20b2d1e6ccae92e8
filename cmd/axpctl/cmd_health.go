package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	axphttp "github.com/axp-project/trust-engine/internal/http"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report registered provider status",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	orc := buildOrchestrator()
	defer orc.Close()

	resp := axphttp.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Providers: make(map[string]axphttp.ProviderHealth),
	}
	for name := range orc.Health() {
		resp.Providers[name] = axphttp.ProviderHealth{Name: name, Status: "registered"}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

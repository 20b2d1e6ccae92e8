package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/axp-project/trust-engine/internal/evidence"
	"github.com/axp-project/trust-engine/internal/trust"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run trust-verification checks (reviews, certifications, credentials, domain age)",
}

var verifyReviewCmd = &cobra.Command{
	Use:   "review <snapshot.json>",
	Short: "Run the anomaly-detector families against a review snapshot",
	Long: `Reads a JSON document with "actual" and "expected" trust.ReviewStats
and reports the snapshot-path verification result: anomalies found across
the rating, temporal, and distributional detector families, and the
resulting confidence score. This bypasses the trusted-API path (which
requires a live, authenticated provider call) and always exercises the
snapshot fallback, matching how an unverified or newly-seen review source
is evaluated.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerifyReview,
}

var verifyCertCmd = &cobra.Command{
	Use:   "cert <cert_data.json>",
	Short: "Run the generic certification fallback check",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerifyCert,
}

var verifyVCCmd = &cobra.Command{
	Use:   "vc <credential.json>",
	Short: "Verify a VerifiableCredential's structure, expiry, and issuer trust",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerifyVC,
}

var verifyDomainCmd = &cobra.Command{
	Use:   "domain <sources.json>",
	Short: "Compose domain age across WHOIS, CT-log, DNS-history, and archive sources",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerifyDomain,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.AddCommand(verifyReviewCmd, verifyCertCmd, verifyVCCmd, verifyDomainCmd)
}

type reviewSnapshotInput struct {
	Actual   trust.ReviewStats `json:"actual"`
	Expected trust.ReviewStats `json:"expected"`
}

func runVerifyReview(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read snapshot file: %w", err)
	}
	var input reviewSnapshotInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("parse snapshot file: %w", err)
	}

	result := trust.VerifyReviewSource("cli_snapshot", nil, nil,
		func() (trust.ReviewStats, map[string]interface{}, error) {
			return input.Actual, map[string]interface{}{"source": "cli"}, nil
		},
		input.Expected, time.Now().UTC())

	return encodeResult(result)
}

type certDataInput struct {
	ExpiryDate string `json:"expiry_date"`
	Revoked    bool   `json:"revoked"`
}

func runVerifyCert(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read cert data file: %w", err)
	}
	var input certDataInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("parse cert data file: %w", err)
	}

	result, err := trust.VerifyCertification("generic", "", "", nil,
		func() (map[string]interface{}, error) {
			return map[string]interface{}{"expiry_date": input.ExpiryDate}, nil
		},
		func() bool { return input.Revoked },
		time.Now().UTC())
	if err != nil {
		return err
	}

	return encodeResult(result)
}

func runVerifyVC(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read credential file: %w", err)
	}
	var vc evidence.VerifiableCredential
	if err := json.Unmarshal(raw, &vc); err != nil {
		return fmt.Errorf("parse credential file: %w", err)
	}

	result := trust.VerifyCredential(vc, trust.TrustedIssuers, time.Now().UTC())
	return encodeResult(result)
}

type domainSourcesInput struct {
	WHOIS               *time.Time `json:"whois"`
	CertTransparency    *time.Time `json:"certificate_transparency"`
	DNSHistory          *time.Time `json:"dns_history"`
	InternetArchive     *time.Time `json:"internet_archive"`
	Domain              string     `json:"domain"`
}

func runVerifyDomain(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read domain sources file: %w", err)
	}
	var input domainSourcesInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("parse domain sources file: %w", err)
	}

	result := trust.CalculateDomainAge(input.Domain, trust.DomainAgeSources{
		WHOIS:            input.WHOIS,
		CertTransparency: input.CertTransparency,
		DNSHistory:       input.DNSHistory,
		InternetArchive:  input.InternetArchive,
	}, time.Now().UTC())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func encodeResult(result trust.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

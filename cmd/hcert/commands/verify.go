// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/hcert-foundation/hcert/cmd/hcert/cli"
	"github.com/hcert-foundation/hcert/lib/certificate"
	"github.com/hcert-foundation/hcert/lib/clock"
	"github.com/hcert-foundation/hcert/lib/schema"
	"github.com/hcert-foundation/hcert/lib/truststore"
)

var (
	validBanner = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("2")).
			Padding(0, 2)

	expiredBanner = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("3")).
			Padding(0, 2)

	invalidBanner = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("1")).
			Padding(0, 2)

	fieldLabel = lipgloss.NewStyle().Faint(true).Width(12)
)

func verifyCommand() *cli.Command {
	var (
		configPath     string
		truststorePath string
		allowExpired   bool
		atText         string
		jsonOutput     bool
	)

	return &cli.Command{
		Name:    "verify",
		Summary: "Verify a certificate against the trust store",
		Description: `Verify a certificate and print the verdict with the signed content.

The input may be a barcode image, a file holding the transport
string, the transport string itself, or "-" for stdin.

An invalid certificate prints the failure reason and exits 1; a
valid one exits 0. With --allow-expired, a genuine but stale
certificate is displayed (marked EXPIRED) and still exits 0 — meant
for audit tooling, not for admission checks.

--at verifies against a fixed instant instead of the wall clock,
for reproducing past decisions.`,
		Usage: "hcert verify <input> [flags]",
		Examples: []cli.Example{
			{
				Description: "Verify a scanned barcode image",
				Command:     "hcert verify cert.png",
			},
			{
				Description: "Verify a transport string from a pipe",
				Command:     "cat cert.txt | hcert verify -",
			},
			{
				Description: "Audit an expired certificate",
				Command:     "hcert verify cert.png --allow-expired",
			},
			{
				Description: "Machine-readable verdict",
				Command:     "hcert verify cert.png --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("verify", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "configuration file path")
			flagSet.StringVar(&truststorePath, "truststore", "", "trust anchor document")
			flagSet.BoolVar(&allowExpired, "allow-expired", false, "accept genuine but stale certificates")
			flagSet.StringVar(&atText, "at", "", "verify at this RFC 3339 instant instead of now")
			flagSet.BoolVar(&jsonOutput, "json", false, "emit the verdict as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("verify takes exactly one input argument")
			}

			config, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if truststorePath == "" {
				truststorePath = config.Truststore
			}

			anchors, err := truststore.Load(truststorePath)
			if err != nil {
				return err
			}

			decoder := &certificate.Decoder{
				Anchors:      anchors.Anchors(),
				Payload:      schema.Codec{},
				AllowExpired: allowExpired,
			}
			if atText != "" {
				at, err := time.Parse(time.RFC3339, atText)
				if err != nil {
					return fmt.Errorf("--at %q: %w", atText, err)
				}
				decoder.Clock = clock.Fake(at)
			}

			text, err := readTransportText(args[0])
			if err != nil {
				return err
			}

			decoded, err := decoder.DecodeText(text)
			if err != nil {
				if jsonOutput {
					printVerdictJSON("invalid", err.Error(), nil)
				} else {
					fmt.Println(invalidBanner.Render("INVALID"))
					fmt.Printf("\n%s\n", err)
				}
				return &cli.ExitError{Code: 1}
			}

			if jsonOutput {
				status := "valid"
				if decoded.Expired {
					status = "expired"
				}
				printVerdictJSON(status, "", decoded)
			} else {
				printVerdict(decoded)
			}
			return nil
		},
	}
}

func printVerdict(decoded *certificate.Decoded) {
	if decoded.Expired {
		fmt.Println(expiredBanner.Render("EXPIRED"))
	} else {
		fmt.Println(validBanner.Render("VALID"))
	}
	fmt.Println()

	record, _ := decoded.Payload.(*schema.Certificate)
	row := func(label, value string) {
		fmt.Printf("%s %s\n", fieldLabel.Render(label), value)
	}
	if record != nil {
		row("Holder", record.DisplayName())
		if record.DateOfBirth != "" {
			row("Born", record.DateOfBirth)
		}
		row("Event", eventSummary(record))
	}
	row("Issuer", decoded.Issuer)
	row("Issued", decoded.IssuedAt.Format(time.RFC3339))
	row("Expires", decoded.Expiration.Format(time.RFC3339))
	row("Signed by", fmt.Sprintf("%s (kid %s)",
		decoded.Anchor.Subject, hex.EncodeToString(decoded.Anchor.KID)))
}

// eventSummary renders the single event group in one line.
func eventSummary(record *schema.Certificate) string {
	switch {
	case len(record.Vaccinations) == 1:
		v := record.Vaccinations[0]
		return fmt.Sprintf("vaccination %d/%d, %s, %s", v.DoseNumber, v.SeriesDoses, v.Product, v.Date)
	case len(record.Tests) == 1:
		t := record.Tests[0]
		result := "detected"
		if t.Result == "260415000" {
			result = "not detected"
		}
		return fmt.Sprintf("test %s, %s, %s", t.Type, result, t.Collected)
	case len(record.Recoveries) == 1:
		r := record.Recoveries[0]
		return fmt.Sprintf("recovery, valid %s to %s", r.ValidFrom, r.ValidUntil)
	default:
		return "none"
	}
}

type verdictJSON struct {
	Status     string              `json:"status"`
	Reason     string              `json:"reason,omitempty"`
	Holder     string              `json:"holder,omitempty"`
	Issuer     string              `json:"issuer,omitempty"`
	IssuedAt   string              `json:"issuedAt,omitempty"`
	Expiration string              `json:"expiration,omitempty"`
	SignedBy   string              `json:"signedBy,omitempty"`
	KID        string              `json:"kid,omitempty"`
	Payload    *schema.Certificate `json:"payload,omitempty"`
}

func printVerdictJSON(status, reason string, decoded *certificate.Decoded) {
	verdict := verdictJSON{Status: status, Reason: reason}
	if decoded != nil {
		if record, ok := decoded.Payload.(*schema.Certificate); ok {
			verdict.Holder = record.DisplayName()
			verdict.Payload = record
		}
		verdict.Issuer = decoded.Issuer
		verdict.IssuedAt = decoded.IssuedAt.Format(time.RFC3339)
		verdict.Expiration = decoded.Expiration.Format(time.RFC3339)
		verdict.SignedBy = decoded.Anchor.Subject
		verdict.KID = hex.EncodeToString(decoded.Anchor.KID)
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(verdict)
}

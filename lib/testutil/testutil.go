// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test fixtures: issuer credentials
// and conforming payload records. Test-only; nothing here belongs in a
// production path.
package testutil

import (
	"testing"
	"time"

	"github.com/hcert-foundation/hcert/lib/cose"
	"github.com/hcert-foundation/hcert/lib/keystore"
	"github.com/hcert-foundation/hcert/lib/schema"
	"github.com/hcert-foundation/hcert/lib/truststore"
)

// Issuer bundles everything a test needs to sign and verify: the
// credential, a configured signer, and the matching trust anchor.
type Issuer struct {
	Credential *keystore.Credential
	Signer     *cose.Signer
	Anchor     truststore.Anchor
}

// NewIssuer generates a fresh ECDSA issuer valid for two years, with
// the kid wired into the signer's protected header.
func NewIssuer(t *testing.T, name string) *Issuer {
	t.Helper()
	credential, err := keystore.Generate(name, 2*365*24*time.Hour)
	if err != nil {
		t.Fatalf("generating issuer credential: %v", err)
	}
	signer, err := cose.NewSigner(credential.Key, cose.WithKeyID(credential.KeyID()))
	if err != nil {
		t.Fatalf("creating signer: %v", err)
	}
	return &Issuer{
		Credential: credential,
		Signer:     signer,
		Anchor:     credential.Anchor(),
	}
}

// VaccinationPayload returns a conforming single-vaccination record.
func VaccinationPayload() *schema.Certificate {
	return &schema.Certificate{
		Version: "1.3.0",
		Name: schema.Name{
			Surname:              "Lindqvist",
			StandardizedSurname:  "LINDQVIST",
			Forename:             "Kalle",
			StandardizedForename: "KALLE",
		},
		DateOfBirth: "1962-07-01",
		Vaccinations: []schema.Vaccination{{
			Target:        "840539006",
			Prophylaxis:   "1119349007",
			Product:       "EU/1/20/1528",
			Manufacturer:  "ORG-100030215",
			DoseNumber:    2,
			SeriesDoses:   2,
			Date:          "2021-04-12",
			Country:       "SE",
			Issuer:        "Swedish eHealth Agency",
			CertificateID: "URN:UVCI:01:SE:EHM/100000024GI5HMGZKSMS",
		}},
	}
}

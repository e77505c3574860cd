// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"strings"
	"testing"
)

// validVaccination returns a conforming single-vaccination record.
func validVaccination() *Certificate {
	return &Certificate{
		Version: "1.3.0",
		Name: Name{
			Surname:              "Lindqvist",
			StandardizedSurname:  "LINDQVIST",
			Forename:             "Kalle",
			StandardizedForename: "KALLE",
		},
		DateOfBirth: "1962-07-01",
		Vaccinations: []Vaccination{{
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

func TestValidateAccepts(t *testing.T) {
	if err := validVaccination().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	test := &Certificate{
		Version:     "1.3.0",
		Name:        Name{StandardizedSurname: "LINDQVIST"},
		DateOfBirth: "1962-07-01",
		Tests: []Test{{
			Target:        "840539006",
			Type:          "LP6464-4",
			Result:        "260415000",
			Collected:     "2021-05-03T10:00:00Z",
			Country:       "SE",
			Issuer:        "Swedish eHealth Agency",
			CertificateID: "URN:UVCI:01:SE:EHM/T1",
		}},
	}
	if err := test.Validate(); err != nil {
		t.Fatalf("Validate (test group): %v", err)
	}

	recovery := &Certificate{
		Version: "1.3.0",
		Name:    Name{StandardizedSurname: "LINDQVIST"},
		Recoveries: []Recovery{{
			Target:        "840539006",
			FirstPositive: "2021-01-10",
			Country:       "SE",
			ValidFrom:     "2021-01-21",
			ValidUntil:    "2021-07-10",
			Issuer:        "Swedish eHealth Agency",
			CertificateID: "URN:UVCI:01:SE:EHM/R1",
		}},
	}
	if err := recovery.Validate(); err != nil {
		t.Fatalf("Validate (recovery group): %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Certificate)
		detail string
	}{
		{"missing version", func(c *Certificate) { c.Version = "" }, "schema version"},
		{"missing surname", func(c *Certificate) { c.Name.StandardizedSurname = "" }, "surname"},
		{"lowercase transliteration", func(c *Certificate) { c.Name.StandardizedSurname = "Lindqvist" }, "surname"},
		{"bad date of birth", func(c *Certificate) { c.DateOfBirth = "01/07/1962" }, "YYYY-MM-DD"},
		{"no event group", func(c *Certificate) { c.Vaccinations = nil }, "no vaccination"},
		{"two event groups", func(c *Certificate) {
			c.Tests = []Test{{}}
		}, "more than one"},
		{"two entries in group", func(c *Certificate) {
			c.Vaccinations = append(c.Vaccinations, c.Vaccinations[0])
		}, "exactly one"},
		{"dose beyond series", func(c *Certificate) { c.Vaccinations[0].DoseNumber = 3 }, "dose"},
		{"zero dose", func(c *Certificate) { c.Vaccinations[0].DoseNumber = 0 }, "dose"},
		{"bad vaccination date", func(c *Certificate) { c.Vaccinations[0].Date = "April 2021" }, "YYYY-MM-DD"},
		{"missing certificate id", func(c *Certificate) { c.Vaccinations[0].CertificateID = "" }, "certificate id"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			record := validVaccination()
			c.mutate(record)
			err := record.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("error = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), c.detail) {
				t.Errorf("error %q does not mention %q", err, c.detail)
			}
		})
	}
}

func TestValidateRejectsUnknownTestResult(t *testing.T) {
	record := &Certificate{
		Version: "1.3.0",
		Name:    Name{StandardizedSurname: "X"},
		Tests: []Test{{
			Target:        "840539006",
			Type:          "LP6464-4",
			Result:        "positive",
			Collected:     "2021-05-03T10:00:00Z",
			CertificateID: "URN:UVCI:01:SE:EHM/T1",
		}},
	}
	if err := record.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("error = %v, want ErrInvalid", err)
	}
}

func TestCodecRoundtrip(t *testing.T) {
	original := validVaccination()

	data, err := Codec{}.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := Codec{}.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	record, ok := decoded.(*Certificate)
	if !ok {
		t.Fatalf("Unmarshal returned %T", decoded)
	}
	if record.Name.StandardizedSurname != "LINDQVIST" {
		t.Errorf("surname = %q", record.Name.StandardizedSurname)
	}
	if len(record.Vaccinations) != 1 || record.Vaccinations[0].DoseNumber != 2 {
		t.Errorf("vaccination entry did not survive: %+v", record.Vaccinations)
	}
}

func TestCodecRejectsInvalidOnBothSides(t *testing.T) {
	invalid := validVaccination()
	invalid.Version = ""
	if _, err := (Codec{}).Marshal(invalid); !errors.Is(err, ErrInvalid) {
		t.Errorf("Marshal error = %v, want ErrInvalid", err)
	}

	if _, err := (Codec{}).Unmarshal([]byte{0x01}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Unmarshal error = %v, want ErrInvalid", err)
	}

	if _, err := (Codec{}).Marshal("not a certificate"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Marshal wrong type error = %v, want ErrInvalid", err)
	}
}

func TestDisplayName(t *testing.T) {
	record := validVaccination()
	if got := record.DisplayName(); got != "Kalle Lindqvist" {
		t.Errorf("DisplayName = %q", got)
	}

	record.Name.Forename = ""
	record.Name.Surname = ""
	record.Name.StandardizedForename = "KALLE<OLA"
	if got := record.DisplayName(); got != "KALLE OLA LINDQVIST" {
		t.Errorf("DisplayName (transliterated) = %q", got)
	}
}

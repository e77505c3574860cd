// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalid reports a payload that does not conform to the schema.
// Every validation and structural decode failure wraps it.
var ErrInvalid = errors.New("schema: invalid certificate payload")

// dateLayout is the calendar-date format used by dob and event dates.
const dateLayout = "2006-01-02"

// Certificate is the domain payload: who the certificate is about and
// the single health event it attests.
type Certificate struct {
	// Version is the schema version, e.g. "1.3.0".
	Version string `json:"ver"`

	// Name is the holder's name.
	Name Name `json:"nam"`

	// DateOfBirth is the holder's date of birth, YYYY-MM-DD. May be
	// empty when unknown.
	DateOfBirth string `json:"dob"`

	// Exactly one of the three groups is populated, with exactly one
	// entry.
	Vaccinations []Vaccination `json:"v,omitempty"`
	Tests        []Test        `json:"t,omitempty"`
	Recoveries   []Recovery    `json:"r,omitempty"`
}

// Name carries both the display form and the ICAO 9303
// transliteration of the holder's name. The transliterated surname is
// the matching key at verification points, so it is mandatory.
type Name struct {
	Surname              string `json:"fn,omitempty"`
	StandardizedSurname  string `json:"fnt"`
	Forename             string `json:"gn,omitempty"`
	StandardizedForename string `json:"gnt,omitempty"`
}

// Vaccination is one administered dose.
type Vaccination struct {
	Target        string `json:"tg"`
	Prophylaxis   string `json:"vp"`
	Product       string `json:"mp"`
	Manufacturer  string `json:"ma"`
	DoseNumber    int    `json:"dn"`
	SeriesDoses   int    `json:"sd"`
	Date          string `json:"dt"`
	Country       string `json:"co"`
	Issuer        string `json:"is"`
	CertificateID string `json:"ci"`
}

// Test is one test event.
type Test struct {
	Target        string `json:"tg"`
	Type          string `json:"tt"`
	Name          string `json:"nm,omitempty"`
	Result        string `json:"tr"`
	Collected     string `json:"sc"`
	Country       string `json:"co"`
	Issuer        string `json:"is"`
	CertificateID string `json:"ci"`
}

// Recovery is one recovery statement.
type Recovery struct {
	Target        string `json:"tg"`
	FirstPositive string `json:"fr"`
	Country       string `json:"co"`
	ValidFrom     string `json:"df"`
	ValidUntil    string `json:"du"`
	Issuer        string `json:"is"`
	CertificateID string `json:"ci"`
}

// Validate checks the record's structure. It returns an error wrapping
// ErrInvalid naming the first violated rule, nil for a conforming
// record.
func (c *Certificate) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("%w: missing schema version", ErrInvalid)
	}
	if c.Name.StandardizedSurname == "" {
		return fmt.Errorf("%w: missing standardized surname", ErrInvalid)
	}
	if err := validateTransliterated("surname", c.Name.StandardizedSurname); err != nil {
		return err
	}
	if c.Name.StandardizedForename != "" {
		if err := validateTransliterated("forename", c.Name.StandardizedForename); err != nil {
			return err
		}
	}
	if c.DateOfBirth != "" {
		if _, err := time.Parse(dateLayout, c.DateOfBirth); err != nil {
			return fmt.Errorf("%w: date of birth %q is not YYYY-MM-DD", ErrInvalid, c.DateOfBirth)
		}
	}

	groups := 0
	if len(c.Vaccinations) > 0 {
		groups++
	}
	if len(c.Tests) > 0 {
		groups++
	}
	if len(c.Recoveries) > 0 {
		groups++
	}
	switch groups {
	case 0:
		return fmt.Errorf("%w: no vaccination, test, or recovery entry", ErrInvalid)
	case 1:
	default:
		return fmt.Errorf("%w: more than one event group populated", ErrInvalid)
	}

	switch {
	case len(c.Vaccinations) > 1, len(c.Tests) > 1, len(c.Recoveries) > 1:
		return fmt.Errorf("%w: event group must hold exactly one entry", ErrInvalid)
	}

	if len(c.Vaccinations) == 1 {
		return c.Vaccinations[0].validate()
	}
	if len(c.Tests) == 1 {
		return c.Tests[0].validate()
	}
	return c.Recoveries[0].validate()
}

// validateTransliterated enforces the ICAO 9303 character set:
// uppercase A–Z, digits, and the filler character '<'.
func validateTransliterated(field, value string) error {
	for _, r := range value {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '<':
		default:
			return fmt.Errorf("%w: standardized %s contains %q", ErrInvalid, field, r)
		}
	}
	return nil
}

func (v *Vaccination) validate() error {
	if v.Target == "" || v.Product == "" {
		return fmt.Errorf("%w: vaccination entry missing target or product", ErrInvalid)
	}
	if v.DoseNumber < 1 || v.SeriesDoses < 1 || v.DoseNumber > v.SeriesDoses {
		return fmt.Errorf("%w: vaccination dose %d of %d", ErrInvalid, v.DoseNumber, v.SeriesDoses)
	}
	if _, err := time.Parse(dateLayout, v.Date); err != nil {
		return fmt.Errorf("%w: vaccination date %q is not YYYY-MM-DD", ErrInvalid, v.Date)
	}
	if v.CertificateID == "" {
		return fmt.Errorf("%w: vaccination entry missing certificate id", ErrInvalid)
	}
	return nil
}

func (t *Test) validate() error {
	if t.Target == "" || t.Type == "" {
		return fmt.Errorf("%w: test entry missing target or type", ErrInvalid)
	}
	// 260415000 = not detected, 260373001 = detected (SNOMED CT).
	if t.Result != "260415000" && t.Result != "260373001" {
		return fmt.Errorf("%w: unknown test result code %q", ErrInvalid, t.Result)
	}
	if _, err := time.Parse(time.RFC3339, t.Collected); err != nil {
		return fmt.Errorf("%w: sample collection time %q is not RFC 3339", ErrInvalid, t.Collected)
	}
	if t.CertificateID == "" {
		return fmt.Errorf("%w: test entry missing certificate id", ErrInvalid)
	}
	return nil
}

func (r *Recovery) validate() error {
	if r.Target == "" {
		return fmt.Errorf("%w: recovery entry missing target", ErrInvalid)
	}
	for name, value := range map[string]string{
		"first positive result": r.FirstPositive,
		"valid from":            r.ValidFrom,
		"valid until":           r.ValidUntil,
	} {
		if _, err := time.Parse(dateLayout, value); err != nil {
			return fmt.Errorf("%w: recovery %s %q is not YYYY-MM-DD", ErrInvalid, name, value)
		}
	}
	if r.CertificateID == "" {
		return fmt.Errorf("%w: recovery entry missing certificate id", ErrInvalid)
	}
	return nil
}

// DisplayName renders the holder name for human output, preferring
// the display form over the transliteration.
func (c *Certificate) DisplayName() string {
	forename := c.Name.Forename
	if forename == "" {
		forename = strings.ReplaceAll(c.Name.StandardizedForename, "<", " ")
	}
	surname := c.Name.Surname
	if surname == "" {
		surname = strings.ReplaceAll(c.Name.StandardizedSurname, "<", " ")
	}
	return strings.TrimSpace(forename + " " + surname)
}

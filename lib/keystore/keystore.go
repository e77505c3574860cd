// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/hcert-foundation/hcert/lib/truststore"
)

var (
	// ErrWrongPassphrase means the bundle is sealed and the supplied
	// passphrase does not open it (or none was supplied).
	ErrWrongPassphrase = errors.New("keystore: wrong passphrase")

	// ErrMalformed means the bundle's PEM structure is broken: missing
	// key or certificate block, or an unparseable block.
	ErrMalformed = errors.New("keystore: malformed credential bundle")
)

// Credential is an issuer's signing identity: the private key and the
// certificate that verifiers anchor on.
type Credential struct {
	Key         crypto.Signer
	Certificate *x509.Certificate
}

// KeyID returns the credential's key identifier, derived from the
// certificate the same way the trust store derives anchor kids.
func (c *Credential) KeyID() []byte {
	return truststore.KeyID(c.Certificate)
}

// Anchor returns the trust anchor form of this credential, for
// distribution to verifiers.
func (c *Credential) Anchor() truststore.Anchor {
	return truststore.NewAnchor(c.Certificate)
}

// Generate creates a fresh issuer credential: an ECDSA P-256 key and
// a self-signed certificate for subject, valid from now for the given
// duration.
func Generate(subject string, validity time.Duration) (*Credential, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating signing key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generating certificate serial: %w", err)
	}
	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: subject},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		return nil, fmt.Errorf("creating certificate: %w", err)
	}
	certificate, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parsing created certificate: %w", err)
	}

	return &Credential{Key: key, Certificate: certificate}, nil
}

// Save writes the credential to path. A non-empty passphrase seals
// the bundle with age (scrypt recipient, armored); an empty one
// writes plaintext PEM for development use.
func Save(credential *Credential, path, passphrase string) error {
	bundle, err := encodeBundle(credential)
	if err != nil {
		return err
	}

	if passphrase != "" {
		bundle, err = seal(bundle, passphrase)
		if err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, bundle, 0600); err != nil {
		return fmt.Errorf("writing credential bundle: %w", err)
	}
	return nil
}

// Load reads a credential bundle from path, unsealing it with the
// passphrase when the file is armored.
func Load(path, passphrase string) (*Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credential bundle: %w", err)
	}

	if strings.HasPrefix(strings.TrimSpace(string(data)), armor.Header) {
		data, err = unseal(data, passphrase)
		if err != nil {
			return nil, err
		}
	}
	return decodeBundle(data)
}

func encodeBundle(credential *Credential) ([]byte, error) {
	keyDER, err := x509.MarshalPKCS8PrivateKey(credential.Key)
	if err != nil {
		return nil, fmt.Errorf("encoding private key: %w", err)
	}
	var bundle bytes.Buffer
	if err := pem.Encode(&bundle, &pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}); err != nil {
		return nil, fmt.Errorf("encoding key block: %w", err)
	}
	if err := pem.Encode(&bundle, &pem.Block{Type: "CERTIFICATE", Bytes: credential.Certificate.Raw}); err != nil {
		return nil, fmt.Errorf("encoding certificate block: %w", err)
	}
	return bundle.Bytes(), nil
}

func decodeBundle(data []byte) (*Credential, error) {
	credential := &Credential{}
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		switch block.Type {
		case "PRIVATE KEY":
			parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: private key: %v", ErrMalformed, err)
			}
			signer, ok := parsed.(crypto.Signer)
			if !ok {
				return nil, fmt.Errorf("%w: key type %T cannot sign", ErrMalformed, parsed)
			}
			credential.Key = signer
		case "CERTIFICATE":
			certificate, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: certificate: %v", ErrMalformed, err)
			}
			credential.Certificate = certificate
		}
	}

	if credential.Key == nil {
		return nil, fmt.Errorf("%w: no private key block", ErrMalformed)
	}
	if credential.Certificate == nil {
		return nil, fmt.Errorf("%w: no certificate block", ErrMalformed)
	}
	return credential, nil
}

func seal(plaintext []byte, passphrase string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}

	var sealed bytes.Buffer
	armorWriter := armor.NewWriter(&sealed)
	encryptWriter, err := age.Encrypt(armorWriter, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := encryptWriter.Write(plaintext); err != nil {
		return nil, fmt.Errorf("encrypting bundle: %w", err)
	}
	if err := encryptWriter.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return nil, fmt.Errorf("finalizing armor: %w", err)
	}
	return sealed.Bytes(), nil
}

func unseal(sealed []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: bundle is sealed and no passphrase given", ErrWrongPassphrase)
	}
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	reader, err := age.Decrypt(armor.NewReader(bytes.NewReader(sealed)), identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongPassphrase, err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		// The scrypt MAC failure can surface mid-stream rather than
		// from Decrypt.
		return nil, fmt.Errorf("%w: %v", ErrWrongPassphrase, err)
	}
	return plaintext, nil
}

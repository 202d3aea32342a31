/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package tlsconfig loads a server certificate (as a PEM pair or a combined
// chain file) and builds the crypto/tls.Config used by package transport for
// the optional TLS listener. Non-blocking handshake progression lives in
// transport, not here; this package only produces the static configuration.
package tlsconfig

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/nabbar/staticd/errors"
)

// CertSource loads a *tls.Certificate from either a PEM pair (separate
// certificate and key) or a single chain file containing both.
type CertSource interface {
	Load() (*tls.Certificate, error)
}

// Pair is a certificate/key pair, each given as either a file path or raw
// PEM content.
type Pair struct {
	Cert string `mapstructure:"cert" json:"cert" yaml:"cert" validate:"required"`
	Key  string `mapstructure:"key" json:"key" yaml:"key" validate:"required"`
}

func (p Pair) Load() (*tls.Certificate, error) {
	cert, err := loadPEM(p.Cert)
	if err != nil {
		return nil, err
	}

	key, err := loadPEM(p.Key)
	if err != nil {
		return nil, err
	}

	crt, e := tls.X509KeyPair(cert, key)
	if e != nil {
		return nil, ErrorCertPairInvalid.Error(e)
	}

	return &crt, nil
}

// Chain is a single file or PEM blob carrying both certificate(s) and the
// private key, concatenated as produced by most ACME clients.
type Chain string

func (c Chain) Load() (*tls.Certificate, error) {
	raw, err := loadPEM(string(c))
	if err != nil {
		return nil, err
	}

	var crt tls.Certificate
	rest := raw

	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		if block.Type == "CERTIFICATE" {
			crt.Certificate = append(crt.Certificate, block.Bytes)
			continue
		}

		key, err := parsePrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		crt.PrivateKey = key
	}

	if len(crt.Certificate) == 0 {
		return nil, ErrorCertChainInvalid.Error(nil)
	}
	if crt.PrivateKey == nil {
		return nil, ErrorPrivateKeyInvalid.Error(nil)
	}

	return &crt, nil
}

// Config describes the server-side TLS material and policy. MinVersion
// defaults to tls.VersionTLS12 when zero.
type Config struct {
	Pair       *Pair  `mapstructure:"pair" json:"pair" yaml:"pair"`
	Chain      Chain  `mapstructure:"chain" json:"chain" yaml:"chain"`
	ClientCA   string `mapstructure:"client_ca" json:"client_ca" yaml:"client_ca"`
	MinVersion uint16 `mapstructure:"min_version" json:"min_version" yaml:"min_version"`
	RequireMTLS bool  `mapstructure:"require_mtls" json:"require_mtls" yaml:"require_mtls"`
}

// Enabled reports whether any certificate source was configured.
func (c Config) Enabled() bool {
	return c.Pair != nil || len(c.Chain) > 0
}

func (c Config) source() (CertSource, errors.Error) {
	if c.Pair != nil {
		return *c.Pair, nil
	}
	if len(c.Chain) > 0 {
		return c.Chain, nil
	}

	return nil, ErrorParamsEmpty.Error(nil)
}

// Build resolves the certificate source and returns a ready-to-use
// server-side *tls.Config.
func (c Config) Build() (*tls.Config, errors.Error) {
	src, e := c.source()
	if e != nil {
		return nil, e
	}

	crt, err := src.Load()
	if err != nil {
		if ce, ok := err.(errors.Error); ok {
			return nil, ce
		}
		return nil, ErrorCertPairInvalid.Error(err)
	}

	minVersion := c.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}

	out := &tls.Config{
		Certificates: []tls.Certificate{*crt},
		MinVersion:   minVersion,
	}

	if c.ClientCA != "" {
		pool := x509.NewCertPool()
		pem, e := loadPEM(c.ClientCA)
		if e != nil {
			return nil, e
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, ErrorCertPoolAppend.Error(nil)
		}

		out.ClientCAs = pool
		if c.RequireMTLS {
			out.ClientAuth = tls.RequireAndVerifyClientCert
		} else {
			out.ClientAuth = tls.VerifyClientCertIfGiven
		}
	}

	return out, nil
}

func loadPEM(s string) ([]byte, errors.Error) {
	b := cleanPEM([]byte(s))
	if len(b) == 0 {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	if _, err := os.Stat(s); err == nil {
		raw, err := os.ReadFile(s)
		if err != nil {
			return nil, ErrorCertFileRead.Error(err)
		}
		return cleanPEM(raw), nil
	}

	return b, nil
}

func cleanPEM(b []byte) []byte {
	b = bytes.TrimSpace(b)
	b = bytes.Trim(b, "\r\n")
	return bytes.TrimSpace(b)
}

func parsePrivateKey(der []byte) (crypto.PrivateKey, errors.Error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		switch k := key.(type) {
		case *rsa.PrivateKey, *ecdsa.PrivateKey:
			return k, nil
		default:
			return nil, ErrorPrivateKeyInvalid.Error(nil)
		}
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}

	return nil, ErrorPrivateKeyInvalid.Error(nil)
}

/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

// Package config is the external collaborator from spec.md section 6: a
// cobra root command whose flags are bound through pflag and layered
// flag > env > file > default via viper, producing a validated Config the
// supervisor builds its Listeners and Workers from.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nabbar/staticd/duration"
)

const (
	envPrefix = "STATICD"

	flagWorkerCount    = "worker-count"
	flagMaxConnections = "max-connections"
	flagBufferBytes    = "per-transfer-buffer-bytes"
	flagIPv4Bind       = "ipv4-bind-address"
	flagIPv6Bind       = "ipv6-bind-address"
	flagEnableIPv6     = "enable-ipv6"
	flagEnableTLS      = "enable-tls"
	flagHTTPPort       = "http-port"
	flagHTTPSPort      = "https-port"
	flagDocumentRoot   = "document-root"
	flagTLSCertPath    = "tls-certificate-path"
	flagTLSKeyPath     = "tls-private-key-path"
	flagReceiveTimeout = "receive-timeout"
	flagSendTimeout    = "send-timeout"
)

// Config is the fully-resolved, validated process configuration. Field
// tags mirror the teacher's httpserver.ServerConfig: mapstructure for
// viper unmarshalling, validate for go-playground/validator/v10.
type Config struct {
	WorkerCount    int    `mapstructure:"worker_count" validate:"min=1"`
	MaxConnections int    `mapstructure:"max_connections" validate:"min=1"`
	BufferBytes    int    `mapstructure:"per_transfer_buffer_bytes" validate:"min=512"`
	IPv4Bind       string `mapstructure:"ipv4_bind_address" validate:"required,ip4_addr"`
	IPv6Bind       string `mapstructure:"ipv6_bind_address" validate:"required,ip6_addr"`
	EnableIPv6     bool   `mapstructure:"enable_ipv6"`
	EnableTLS      bool   `mapstructure:"enable_tls"`
	HTTPPort       uint16 `mapstructure:"http_port" validate:"required"`
	HTTPSPort      uint16 `mapstructure:"https_port" validate:"required"`
	DocumentRoot   string `mapstructure:"document_root" validate:"required"`
	TLSCertPath    string `mapstructure:"tls_certificate_path"`
	TLSKeyPath     string `mapstructure:"tls_private_key_path"`

	// ReceiveTimeout and SendTimeout become SO_RCVTIMEO/SO_SNDTIMEO on every
	// accepted connection (see transport.ServerEndpoint); accepted as
	// duration strings such as "30s" or "5d23h15m13s".
	ReceiveTimeout duration.Duration `mapstructure:"receive_timeout"`
	SendTimeout    duration.Duration `mapstructure:"send_timeout"`
}

// Validate applies go-playground/validator/v10 struct tags and the one
// cross-field rule the tags cannot express: TLS enabled implies both PEM
// paths are set.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return ErrorValidation.Error(err)
	}

	if c.EnableTLS && (c.TLSCertPath == "" || c.TLSKeyPath == "") {
		return ErrorTLSFilesRequired.Error(nil)
	}

	return nil
}

// Default returns the documented defaults from spec.md section 6: one
// worker, 255 connections, a 1 MiB transfer buffer, wildcard binds, IPv6
// and TLS off, ports 8080/8443, and a ./www document root.
func Default() *Config {
	return &Config{
		WorkerCount:    1,
		MaxConnections: 255,
		BufferBytes:    1 << 20,
		IPv4Bind:       "0.0.0.0",
		IPv6Bind:       "::",
		EnableIPv6:     false,
		EnableTLS:      false,
		HTTPPort:       8080,
		HTTPSPort:      8443,
		DocumentRoot:   "./www",
		TLSCertPath:    "./fullchain.pem",
		TLSKeyPath:     "./privkey.pem",
		ReceiveTimeout: duration.Seconds(30),
		SendTimeout:    duration.Seconds(30),
	}
}

// NewRootCommand builds the cobra root command. run is invoked with the
// fully layered and validated Config once flags have parsed; unknown
// flags are rejected by cobra/pflag itself with a non-zero exit before run
// is ever reached.
func NewRootCommand(use string, run func(cfg *Config) error) *cobra.Command {
	def := Default()
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           use,
		Short:         use + " serves a document root over HTTP/1.1",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(v, cmd.Flags()); err != nil {
				return err
			}

			cfg := Default()
			hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
				mapstructure.TextUnmarshallerHookFunc(),
			))
			if err := v.Unmarshal(cfg, hook); err != nil {
				return fmt.Errorf("config: unmarshal failed: %w", err)
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cfg)
		},
	}

	flags := cmd.Flags()
	flags.Int(flagWorkerCount, def.WorkerCount, "number of I/O worker threads")
	flags.Int(flagMaxConnections, def.MaxConnections, "maximum concurrent connections across all listeners")
	flags.Int(flagBufferBytes, def.BufferBytes, "per-connection transfer buffer size in bytes")
	flags.String(flagIPv4Bind, def.IPv4Bind, "IPv4 address to bind")
	flags.String(flagIPv6Bind, def.IPv6Bind, "IPv6 address to bind")
	flags.Bool(flagEnableIPv6, def.EnableIPv6, "listen on the IPv6 bind address in addition to IPv4")
	flags.Bool(flagEnableTLS, def.EnableTLS, "serve HTTPS in addition to HTTP")
	flags.Uint16(flagHTTPPort, def.HTTPPort, "HTTP listen port")
	flags.Uint16(flagHTTPSPort, def.HTTPSPort, "HTTPS listen port")
	flags.String(flagDocumentRoot, def.DocumentRoot, "root directory served")
	flags.String(flagTLSCertPath, def.TLSCertPath, "PEM certificate chain path")
	flags.String(flagTLSKeyPath, def.TLSKeyPath, "PEM private key path")
	flags.String(flagReceiveTimeout, def.ReceiveTimeout.String(), "per-connection socket receive timeout (e.g. 30s, 1h)")
	flags.String(flagSendTimeout, def.SendTimeout.String(), "per-connection socket send timeout (e.g. 30s, 1h)")

	return cmd
}

// flagConfigKeys maps each dashed flag name to the struct's underscored
// mapstructure tag; viper has no notion of a flag's own name translating
// to a different config key, so each pflag is bound individually under
// the key Unmarshal actually expects.
var flagConfigKeys = map[string]string{
	flagWorkerCount:    "worker_count",
	flagMaxConnections: "max_connections",
	flagBufferBytes:    "per_transfer_buffer_bytes",
	flagIPv4Bind:       "ipv4_bind_address",
	flagIPv6Bind:       "ipv6_bind_address",
	flagEnableIPv6:     "enable_ipv6",
	flagEnableTLS:      "enable_tls",
	flagHTTPPort:       "http_port",
	flagHTTPSPort:      "https_port",
	flagDocumentRoot:   "document_root",
	flagTLSCertPath:    "tls_certificate_path",
	flagTLSKeyPath:     "tls_private_key_path",
	flagReceiveTimeout: "receive_timeout",
	flagSendTimeout:    "send_timeout",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for flagName, key := range flagConfigKeys {
		f := flags.Lookup(flagName)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

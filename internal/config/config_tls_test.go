package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tlsConfig(tls TLSConfig) *Config {
	return &Config{Server: ServerConfig{TLS: tls}}
}

func TestValidateTLSMode(t *testing.T) {
	tests := []struct {
		name        string
		tls         TLSConfig
		expectError string
	}{
		{name: "disabled needs nothing", tls: TLSConfig{Mode: "disabled"}},
		{name: "server with files", tls: TLSConfig{Mode: "server", CertFile: "c.pem", KeyFile: "k.pem"}},
		{name: "server with content", tls: TLSConfig{Mode: "server", CertContent: "c", KeyContent: "k"}},
		{name: "unknown mode", tls: TLSConfig{Mode: "optional"}, expectError: "invalid TLS mode"},
		{name: "empty mode", tls: TLSConfig{}, expectError: "invalid TLS mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tlsConfig(tt.tls).ValidateTLSConfig()
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateCertAndKeyRequired(t *testing.T) {
	tests := []struct {
		name string
		tls  TLSConfig
	}{
		{name: "no cert", tls: TLSConfig{Mode: "server", KeyFile: "k.pem"}},
		{name: "no key", tls: TLSConfig{Mode: "server", CertFile: "c.pem"}},
		{name: "nothing in mutual", tls: TLSConfig{Mode: "mutual", CAFile: "ca.pem"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tlsConfig(tt.tls).ValidateTLSConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "certificate and key are required")
		})
	}
}

func TestValidateNoDuplicateCertSources(t *testing.T) {
	tests := []struct {
		name  string
		tls   TLSConfig
		field string
	}{
		{
			name:  "cert file and content",
			tls:   TLSConfig{Mode: "server", CertFile: "c.pem", CertContent: "c", KeyFile: "k.pem"},
			field: "certFile",
		},
		{
			name:  "key file and content",
			tls:   TLSConfig{Mode: "server", CertFile: "c.pem", KeyFile: "k.pem", KeyContent: "k"},
			field: "keyFile",
		},
		{
			name:  "ca file and content",
			tls:   TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem", CAFile: "ca.pem", CAContent: "ca"},
			field: "caFile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tlsConfig(tt.tls).ValidateTLSConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateMutualModeTLS(t *testing.T) {
	base := TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem"}

	err := tlsConfig(base).ValidateTLSConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CA certificate is required")

	withCA := base
	withCA.CAContent = "ca-pem"
	assert.NoError(t, tlsConfig(withCA).ValidateTLSConfig())

	for _, policy := range []string{"require", "request", "verify", ""} {
		withPolicy := withCA
		withPolicy.ClientAuthPolicy = policy
		assert.NoError(t, tlsConfig(withPolicy).ValidateTLSConfig(), "policy %q", policy)
	}

	badPolicy := withCA
	badPolicy.ClientAuthPolicy = "sometimes"
	err = tlsConfig(badPolicy).ValidateTLSConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clientAuthPolicy")
}

func TestValidateTLSVersion(t *testing.T) {
	for _, version := range []string{"", "1.2", "1.3"} {
		tls := TLSConfig{Mode: "server", CertFile: "c.pem", KeyFile: "k.pem", MinVersion: version}
		assert.NoError(t, tlsConfig(tls).ValidateTLSConfig(), "version %q", version)
	}

	for _, version := range []string{"1.0", "1.1", "tls13"} {
		tls := TLSConfig{Mode: "server", CertFile: "c.pem", KeyFile: "k.pem", MinVersion: version}
		err := tlsConfig(tls).ValidateTLSConfig()
		require.Error(t, err, "version %q", version)
		assert.Contains(t, err.Error(), "minVersion")
	}
}

package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TemporalEnabled reports whether a Temporal frontend is configured. Without
// one the API server watches publish jobs in-process.
func (c *Config) TemporalEnabled() bool {
	return c.Temporal.Address != ""
}

// TemporalTLS returns nil, nil in plaintext mode.
func (c *Config) TemporalTLS() (*tls.Config, error) {
	t := c.Temporal
	if t.TLSCert == "" && t.TLSKey == "" {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(t.TLSCert, t.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("load temporal client cert: %w", err)
	}
	out := &tls.Config{
		Certificates: []tls.Certificate{cert},
		ServerName:   t.TLSServerName,
	}

	if t.TLSCACert != "" {
		caPEM, err := os.ReadFile(t.TLSCACert)
		if err != nil {
			return nil, fmt.Errorf("read temporal CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse temporal CA cert")
		}
		out.RootCAs = pool
	}
	return out, nil
}

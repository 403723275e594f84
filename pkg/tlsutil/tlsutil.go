// Package tlsutil builds TLS configurations for outbound connector traffic.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/c360/datalink/errors"
)

// ClientConfig describes TLS for outbound HTTP connections. The system CA
// bundle is always trusted; CAFiles are additional trusted CAs.
type ClientConfig struct {
	// CAFiles list PEM files appended to the system trust pool, for
	// endpoints signed by a private CA.
	CAFiles []string `json:"ca_files,omitempty"`

	// CertFile and KeyFile hold a client certificate pair, for endpoints
	// that require mutual TLS. Set both or neither.
	CertFile string `json:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty"`

	// InsecureSkipVerify disables server certificate verification. DEV/TEST ONLY
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty"`

	// MinVersion is "1.2" or "1.3". Empty or unknown falls back to 1.2.
	MinVersion string `json:"min_version,omitempty"`
}

// Client creates a tls.Config from cfg.
func Client(cfg ClientConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: parseVersion(cfg.MinVersion),
	}

	// Start with the system CA pool
	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		// If the system pool is unavailable, create an empty pool
		rootCAs = x509.NewCertPool()
	}

	for _, caFile := range cfg.CAFiles {
		caPEM, err := os.ReadFile(caFile)
		if err != nil {
			return nil, errors.WrapInvalid(err, "tlsutil", "Client",
				fmt.Sprintf("read CA file %s", caFile))
		}
		if !rootCAs.AppendCertsFromPEM(caPEM) {
			return nil, errors.WrapInvalid(
				fmt.Errorf("invalid PEM data"),
				"tlsutil", "Client",
				fmt.Sprintf("parse CA certificate from %s", caFile),
			)
		}
	}
	tlsConfig.RootCAs = rootCAs

	if cfg.CertFile != "" || cfg.KeyFile != "" {
		if cfg.CertFile == "" || cfg.KeyFile == "" {
			return nil, errors.WrapInvalid(
				fmt.Errorf("cert_file and key_file must be set together"),
				"tlsutil", "Client", "load client certificate")
		}
		clientCert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, errors.WrapInvalid(err, "tlsutil", "Client", "load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{clientCert}
	}

	if cfg.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
	}

	return tlsConfig, nil
}

// parseVersion converts a version string to a crypto/tls constant.
// Returns tls.VersionTLS12 if empty or unknown.
func parseVersion(version string) uint16 {
	switch version {
	case "1.3":
		return tls.VersionTLS13
	case "1.2":
		return tls.VersionTLS12
	default:
		return tls.VersionTLS12
	}
}

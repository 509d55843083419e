package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNoCertsFound is returned when no certificates are found in a PEM file.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM file")

	// ErrIncompleteKeyPair is returned when only one of cert/key is set.
	ErrIncompleteKeyPair = errors.New("tlsroots: cert_file and key_file must be set together")
)

// Config selects the trust roots and client identity.
type Config struct {
	// CAFile is a PEM file (or a directory of .pem/.crt/.cer files) added
	// to the system roots.
	CAFile string `koanf:"ca_file"`
	// CertFile and KeyFile hold the client certificate for mutual TLS.
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
	// ServerName overrides the name checked against the server certificate.
	ServerName string `koanf:"server_name"`
}

// IsZero reports whether c leaves the default TLS behaviour unchanged.
func (c Config) IsZero() bool {
	return c == Config{}
}

// Pool manages a pool of trusted root certificates.
type Pool struct {
	certPool *x509.CertPool
}

// NewPool creates a new certificate pool with system roots.
// If system roots cannot be loaded, it creates an empty pool.
func NewPool() *Pool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	return &Pool{certPool: pool}
}

// NewEmptyPool creates a new empty certificate pool without system roots.
func NewEmptyPool() *Pool {
	return &Pool{certPool: x509.NewCertPool()}
}

// AddCertFile adds certificates from a PEM file.
// Multiple certificates in the same file are supported.
func (p *Pool) AddCertFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read cert file %s: %w", path, err)
	}
	return p.AddCertPEM(data)
}

// AddCertPEM adds certificates from PEM-encoded data.
func (p *Pool) AddCertPEM(pemData []byte) error {
	var certsAdded int

	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		p.certPool.AddCert(cert)
		certsAdded++
	}

	if certsAdded == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// AddCertDir adds all PEM files from a directory.
// Files must have .pem, .crt, or .cer extension; at least one must load.
func (p *Pool) AddCertDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("tlsroots: read dir %s: %w", dir, err)
	}

	var loaded int
	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".pem", ".crt", ".cer":
			if err := p.AddCertFile(filepath.Join(dir, entry.Name())); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			loaded++
		}
	}

	if loaded == 0 {
		if firstErr != nil {
			return firstErr
		}
		return ErrNoCertsFound
	}
	return nil
}

// Pool returns the underlying x509.CertPool.
func (p *Pool) Pool() *x509.CertPool {
	return p.certPool
}

// ClientTLSConfig builds a client TLS config from cfg. A zero cfg gives the
// system roots with a TLS 1.2 floor.
func ClientTLSConfig(cfg Config) (*tls.Config, error) {
	pool := NewPool()
	if cfg.CAFile != "" {
		info, err := os.Stat(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("tlsroots: %w", err)
		}
		if info.IsDir() {
			err = pool.AddCertDir(cfg.CAFile)
		} else {
			err = pool.AddCertFile(cfg.CAFile)
		}
		if err != nil {
			return nil, err
		}
	}

	tlsCfg := &tls.Config{
		RootCAs:    pool.certPool,
		ServerName: cfg.ServerName,
		MinVersion: tls.VersionTLS12,
	}

	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, ErrIncompleteKeyPair
	}
	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("tlsroots: load key pair: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

// HTTPTransport clones the default transport with cfg applied.
func HTTPTransport(cfg Config) (*http.Transport, error) {
	tlsCfg, err := ClientTLSConfig(cfg)
	if err != nil {
		return nil, err
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = tlsCfg
	return tr, nil
}

package config

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/aegisline/corectl/internal/xerr"
)

// ServerTLSConfig builds the *tls.Config vaultd's gRPC listener serves
// with when MTLS.Enable is set: its own cert/key pair, and a client-cert
// pool built from CAPath so RequireAndVerifyClientCert actually has
// something to check a peer against.
func (m MTLSConfig) ServerTLSConfig() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(m.CertPath, m.KeyPath)
	if err != nil {
		return nil, xerr.Wrap(xerr.Internal, err, "load server TLS certificate")
	}
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}}
	if m.CAPath == "" {
		return cfg, nil
	}
	pool, err := loadCAPool(m.CAPath)
	if err != nil {
		return nil, err
	}
	cfg.ClientCAs = pool
	cfg.ClientAuth = tls.RequireAndVerifyClientCert
	return cfg, nil
}

// ClientTLSConfig builds the *tls.Config a caller dials vaultd with: its
// own cert/key pair (presented as the client certificate under mutual
// TLS) and a root pool built from CAPath to verify vaultd's certificate.
func (m MTLSConfig) ClientTLSConfig() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(m.CertPath, m.KeyPath)
	if err != nil {
		return nil, xerr.Wrap(xerr.Internal, err, "load client TLS certificate")
	}
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}}
	if m.CAPath == "" {
		return cfg, nil
	}
	pool, err := loadCAPool(m.CAPath)
	if err != nil {
		return nil, err
	}
	cfg.RootCAs = pool
	return cfg, nil
}

func loadCAPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, xerr.Wrap(xerr.Internal, err, "read CA certificate")
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, xerr.New(xerr.Internal, "CA certificate file contains no usable certificates").WithDetail(path)
	}
	return pool, nil
}

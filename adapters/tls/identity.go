// Package tls loads the TLS identity a gateway presents to the distribution
// layer.
package tls

import (
	cryptotls "crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/artpar/hsdsgate/config"
)

// ErrIdentityMismatch is returned when the identity certificate names a
// different publisher than the configured source id.
var ErrIdentityMismatch = errors.New("certificate common name does not match source id")

// Identity is the loaded TLS identity of the gateway.
type Identity struct {
	Certificate cryptotls.Certificate
	Leaf        *x509.Certificate
	RootCAs     *x509.CertPool
}

// LoadIdentity reads the identity material named by sec and checks that it
// belongs to sourceID. Every file in the security section must be readable.
func LoadIdentity(sec config.SecurityConfig, sourceID string) (*Identity, error) {
	for _, path := range []string{sec.PermissionsCA, sec.Permissions, sec.Governance} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("security file: %w", err)
		}
	}

	cert, err := cryptotls.LoadX509KeyPair(sec.IdentityCert, sec.IdentityKey)
	if err != nil {
		return nil, fmt.Errorf("load identity certificate: %w", err)
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("parse identity certificate: %w", err)
	}
	if cn := leaf.Subject.CommonName; cn != "" && cn != sourceID {
		return nil, fmt.Errorf("%w: %q != %q", ErrIdentityMismatch, cn, sourceID)
	}

	caPEM, err := os.ReadFile(sec.IdentityCA)
	if err != nil {
		return nil, fmt.Errorf("read identity CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("identity CA %s: no certificates found", sec.IdentityCA)
	}

	return &Identity{Certificate: cert, Leaf: leaf, RootCAs: pool}, nil
}

package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/hsdsgate/config"
)

func writeIdentity(t *testing.T, commonName string) config.SecurityConfig {
	t.Helper()
	dir := t.TempDir()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(42),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	return config.SecurityConfig{
		Enabled:       true,
		IdentityCA:    write("identity_ca.pem", certPEM),
		IdentityCert:  write("identity_cert.pem", certPEM),
		IdentityKey:   write("identity_key.pem", pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})),
		PermissionsCA: write("permissions_ca.pem", certPEM),
		Permissions:   write("permissions.xml", []byte("<permissions/>")),
		Governance:    write("governance.xml", []byte("<governance/>")),
	}
}

func TestLoadIdentity(t *testing.T) {
	sec := writeIdentity(t, "gw-1")

	id, err := LoadIdentity(sec, "gw-1")
	if err != nil {
		t.Fatalf("LoadIdentity: %v", err)
	}
	if id.Leaf.Subject.CommonName != "gw-1" {
		t.Errorf("CommonName = %q", id.Leaf.Subject.CommonName)
	}
	if id.RootCAs == nil {
		t.Error("RootCAs not loaded")
	}
}

func TestLoadIdentity_CommonNameMismatch(t *testing.T) {
	sec := writeIdentity(t, "gw-1")

	_, err := LoadIdentity(sec, "gw-2")
	if !errors.Is(err, ErrIdentityMismatch) {
		t.Errorf("err = %v, want ErrIdentityMismatch", err)
	}
}

func TestLoadIdentity_EmptyCommonNameAccepted(t *testing.T) {
	sec := writeIdentity(t, "")

	if _, err := LoadIdentity(sec, "gw-1"); err != nil {
		t.Errorf("LoadIdentity: %v", err)
	}
}

func TestLoadIdentity_MissingFiles(t *testing.T) {
	sec := writeIdentity(t, "gw-1")
	sec.Governance = filepath.Join(t.TempDir(), "missing.xml")

	if _, err := LoadIdentity(sec, "gw-1"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing governance: err = %v", err)
	}

	sec = writeIdentity(t, "gw-1")
	if err := os.WriteFile(sec.IdentityCA, []byte("not pem"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadIdentity(sec, "gw-1"); err == nil {
		t.Error("garbage CA accepted")
	}
}

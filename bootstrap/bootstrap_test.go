package bootstrap_test

import (
	"context"
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
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/hsdsgate/adapters/channel/memory"
	tlsid "github.com/artpar/hsdsgate/adapters/tls"
	"github.com/artpar/hsdsgate/bootstrap"
	"github.com/artpar/hsdsgate/config"
	"github.com/artpar/hsdsgate/core/registry"
	"github.com/artpar/hsdsgate/domain/record"
)

const testToken = "tok"

// writeConfig writes a config file for driver plus any extra top-level
// YAML sections and returns its path.
func writeConfig(t *testing.T, dir, driver, level, extra string) string {
	t.Helper()

	data := fmt.Sprintf(`gateway:
  source_id: gw-test
server:
  host: 127.0.0.1
  port: 18080
  auth_token: %s
  shutdown_timeout: 5s
distribution:
  driver: %s
  sqlite:
    path: %s
data:
  heartbeat_interval: 1s
logging:
  level: %s
  format: json
  console: true
%s`, testToken, driver, filepath.Join(dir, "spool.db"), level, extra)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

func start(t *testing.T, opts bootstrap.Options) *bootstrap.App {
	t.Helper()

	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Listener == nil {
		opts.Listener = listen(t)
	}

	a, err := bootstrap.New(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { a.Shutdown() })

	require.NoError(t, a.Start(context.Background()))
	return a
}

func post(t *testing.T, a *bootstrap.App, path, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, "http://"+a.Addr()+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestApp_PublishesThroughInjectedFactory(t *testing.T) {
	dir := t.TempDir()
	bus := memory.NewBus(zerolog.Nop())

	a := start(t, bootstrap.Options{
		ConfigPath: writeConfig(t, dir, "memory", "INFO", ""),
		Factory:    bus,
	})

	resp := post(t, a, "/api/v1/hsds/organization", `{"id":"org-1","name":"Food Bank"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, resp.Close, "keep-alives must be disabled")

	msgs := bus.Messages("Organization")
	require.Len(t, msgs, 1)
	assert.Equal(t, "gw-test", msgs[0].SourceID)
	assert.Equal(t, "org-1", msgs[0].Record["id"])

	require.NoError(t, a.Shutdown())
	assert.Equal(t, registry.StateShutDown, a.Registry.State())
	assert.Zero(t, bus.OpenChannels())

	_, err := http.Get("http://" + a.Addr() + "/api/v1/health")
	assert.Error(t, err, "server still accepting after shutdown")
}

func TestShutdown_WaitsForInFlightPublish(t *testing.T) {
	bus := memory.NewBus(zerolog.Nop())
	entered := make(chan struct{})
	unblock := make(chan struct{})
	bus.Subscribe("Organization", func(context.Context, record.Envelope) error {
		close(entered)
		<-unblock
		return nil
	})

	a := start(t, bootstrap.Options{
		ConfigPath: writeConfig(t, t.TempDir(), "memory", "INFO", ""),
		Factory:    bus,
	})

	type result struct {
		status int
		err    error
	}
	inFlight := make(chan result, 1)
	go func() {
		req, err := http.NewRequest(http.MethodPost, "http://"+a.Addr()+"/api/v1/hsds/organization",
			strings.NewReader(`{"id":"org-1","name":"Food Bank"}`))
		if err != nil {
			inFlight <- result{err: err}
			return
		}
		req.Header.Set("Authorization", "Bearer "+testToken)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			inFlight <- result{err: err}
			return
		}
		resp.Body.Close()
		inFlight <- result{status: resp.StatusCode}
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("publish never reached the subscriber")
	}

	shutdownErr := make(chan error, 1)
	go func() { shutdownErr <- a.Shutdown() }()

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, a.Catalog.Len(), bus.OpenChannels(), "channels released while a request was in flight")
	select {
	case err := <-shutdownErr:
		t.Fatalf("Shutdown returned before the in-flight request finished: %v", err)
	default:
	}

	close(unblock)

	select {
	case r := <-inFlight:
		require.NoError(t, r.err)
		assert.Equal(t, http.StatusCreated, r.status)
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight request never completed")
	}
	select {
	case err := <-shutdownErr:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Shutdown did not return")
	}
	assert.Zero(t, bus.OpenChannels())
	assert.Len(t, bus.Messages("Organization"), 1)
}

func TestApp_SourceIDOverride(t *testing.T) {
	bus := memory.NewBus(zerolog.Nop())

	a := start(t, bootstrap.Options{
		ConfigPath: writeConfig(t, t.TempDir(), "memory", "INFO", ""),
		SourceID:   "override-gw",
		Factory:    bus,
	})

	resp := post(t, a, "/api/v1/hsds/taxonomy", `{"id":"t1","name":"Open Eligibility"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	msgs := bus.Messages("Taxonomy")
	require.Len(t, msgs, 1)
	assert.Equal(t, "override-gw", msgs[0].SourceID)
	assert.Equal(t, "override-gw", a.Registry.Identity())
}

func TestApp_SQLiteDriverSpoolsRecords(t *testing.T) {
	dir := t.TempDir()

	a := start(t, bootstrap.Options{
		ConfigPath: writeConfig(t, dir, "sqlite", "INFO", ""),
	})
	require.NotNil(t, a.Distribution)
	require.NotNil(t, a.Distribution.Spool)

	resp := post(t, a, "/api/v1/hsds/organization", `{"name":"Food Bank"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	n, err := a.Distribution.Spool.Count(context.Background(), "Organization")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	stored, err := a.Distribution.Spool.Since(context.Background(), "Organization", 0, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "gw-test", stored[0].SourceID)
	assert.True(t, strings.HasPrefix(stored[0].RecordID, "auto_"), "record id %q", stored[0].RecordID)

	require.NoError(t, a.Shutdown())
}

func TestApp_HeartbeatLoop(t *testing.T) {
	bus := memory.NewBus(zerolog.Nop())

	start(t, bootstrap.Options{
		ConfigPath: writeConfig(t, t.TempDir(), "memory", "INFO", ""),
		Factory:    bus,
	})

	require.Eventually(t, func() bool {
		return len(bus.Heartbeats()) > 0
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, "gw-test", bus.Heartbeats()[0].SourceID)
}

func TestApp_MetricsEndpoint(t *testing.T) {
	bus := memory.NewBus(zerolog.Nop())

	a := start(t, bootstrap.Options{
		ConfigPath: writeConfig(t, t.TempDir(), "memory", "INFO", "metrics:\n  enabled: true\n"),
		Factory:    bus,
	})
	require.NotNil(t, a.Metrics)

	resp := post(t, a, "/api/v1/hsds/organization", `{"id":"org-1","name":"Food Bank"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	mresp, err := http.Get("http://" + a.Addr() + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	body, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, mresp.StatusCode)
	assert.Contains(t, string(body), `hsdsgate_records_published_total{topic="Organization"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNew_ChannelFailureIsFatal(t *testing.T) {
	bus := memory.NewBus(zerolog.Nop())
	bus.FailCreate("Schedule", errors.New("boom"))

	_, err := bootstrap.New(context.Background(), bootstrap.Options{
		ConfigPath: writeConfig(t, t.TempDir(), "memory", "INFO", ""),
		Factory:    bus,
		Stdout:     io.Discard,
	})

	var startup *registry.StartupError
	require.ErrorAs(t, err, &startup)
	assert.Equal(t, "schedule", startup.Type)
	assert.Zero(t, bus.OpenChannels())
}

func TestNew_InvalidIdentity(t *testing.T) {
	_, err := bootstrap.New(context.Background(), bootstrap.Options{
		ConfigPath: writeConfig(t, t.TempDir(), "memory", "INFO", ""),
		SourceID:   "bad id",
		Factory:    memory.NewBus(zerolog.Nop()),
		Stdout:     io.Discard,
	})
	assert.ErrorIs(t, err, registry.ErrInvalidIdentity)
}

func TestNew_MissingConfig(t *testing.T) {
	t.Setenv("HSDSGATE_AUTH_TOKEN", "")

	_, err := bootstrap.New(context.Background(), bootstrap.Options{
		ConfigPath: filepath.Join(t.TempDir(), "absent.yaml"),
		Stdout:     io.Discard,
	})
	assert.ErrorContains(t, err, "no configuration found")
}

func TestStart_ListenFailureIsFatal(t *testing.T) {
	busy := listen(t)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	cfg := loadConfig(t, writeConfig(t, t.TempDir(), "memory", "INFO", ""))
	cfg.Server.Port = port

	a, err := bootstrap.New(context.Background(), bootstrap.Options{
		Config:  &cfg,
		Factory: memory.NewBus(zerolog.Nop()),
		Stdout:  io.Discard,
	})
	require.NoError(t, err)
	defer a.Shutdown()

	err = a.Start(context.Background())
	assert.ErrorContains(t, err, "listen")
}

func TestRun_StopsWhenContextDone(t *testing.T) {
	bus := memory.NewBus(zerolog.Nop())
	a, err := bootstrap.New(context.Background(), bootstrap.Options{
		ConfigPath: writeConfig(t, t.TempDir(), "memory", "INFO", ""),
		Factory:    bus,
		Listener:   listen(t),
		Stdout:     io.Discard,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + a.Addr() + "/api/v1/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Zero(t, bus.OpenChannels())
}

func TestConfigReload_AppliesLogLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	dir := t.TempDir()
	a, err := bootstrap.New(context.Background(), bootstrap.Options{
		ConfigPath: writeConfig(t, dir, "memory", "INFO", ""),
		Factory:    memory.NewBus(zerolog.Nop()),
		Stdout:     io.Discard,
	})
	require.NoError(t, err)
	defer a.Shutdown()
	require.NotNil(t, a.Holder)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), a.Holder.Path())
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	writeConfig(t, dir, "memory", "DEBUG", "")
	require.NoError(t, a.Holder.Reload())
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	writeConfig(t, dir, "memory", "LOUD", "")
	assert.Error(t, a.Holder.Reload())
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func loadConfig(t *testing.T, path string) config.Config {
	t.Helper()
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return *cfg
}

// writeIdentity creates a self-signed identity for commonName plus the
// permission documents, and returns the security section naming them.
func writeIdentity(t *testing.T, dir, commonName string) config.SecurityConfig {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0o600))
		return path
	}

	return config.SecurityConfig{
		Enabled:       true,
		IdentityCA:    write("identity_ca.pem", certPEM),
		IdentityCert:  write("identity_cert.pem", certPEM),
		IdentityKey:   write("identity_key.pem", keyPEM),
		PermissionsCA: write("permissions_ca.pem", certPEM),
		Permissions:   write("permissions.xml", []byte("<permissions/>")),
		Governance:    write("governance.xml", []byte("<governance/>")),
	}
}

func TestNew_SecurityChecksCommonName(t *testing.T) {
	dir := t.TempDir()
	sec := writeIdentity(t, dir, "another-gw")

	cfg := loadConfig(t, writeConfig(t, dir, "memory", "INFO", ""))
	cfg.Security = sec

	_, err := bootstrap.New(context.Background(), bootstrap.Options{
		Config:  &cfg,
		Factory: memory.NewBus(zerolog.Nop()),
		Stdout:  io.Discard,
	})
	assert.ErrorIs(t, err, tlsid.ErrIdentityMismatch)
}

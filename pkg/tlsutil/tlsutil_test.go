package tlsutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateTestCert creates a self-signed certificate for testing
func generateTestCert(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Test Org"},
			CommonName:   "localhost",
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: certDER,
	})
	keyPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	return certPEM, keyPEM
}

// setupTestFiles creates temporary cert/key files for testing
func setupTestFiles(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()

	tmpDir := t.TempDir()
	certPEM, keyPEM := generateTestCert(t)

	certFile = filepath.Join(tmpDir, "cert.pem")
	keyFile = filepath.Join(tmpDir, "key.pem")
	caFile = filepath.Join(tmpDir, "ca.pem")

	require.NoError(t, os.WriteFile(certFile, certPEM, 0644))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0600))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0644)) // Use same cert as CA for testing

	return certFile, keyFile, caFile
}

func TestLoadServerTLSConfig(t *testing.T) {
	certFile, keyFile, _ := setupTestFiles(t)

	tests := []struct {
		name    string
		cfg     ServerConfig
		wantNil bool
		wantErr bool
	}{
		{
			name:    "disabled",
			cfg:     ServerConfig{Enabled: false},
			wantNil: true,
		},
		{
			name: "enabled with valid cert",
			cfg: ServerConfig{
				Enabled:    true,
				CertFile:   certFile,
				KeyFile:    keyFile,
				MinVersion: "1.3",
			},
		},
		{
			name: "missing cert file",
			cfg: ServerConfig{
				Enabled:  true,
				CertFile: "/nonexistent/cert.pem",
				KeyFile:  "/nonexistent/key.pem",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadServerTLSConfig(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, cfg)
				return
			}
			require.NotNil(t, cfg)
			assert.Len(t, cfg.Certificates, 1)
		})
	}
}

func TestLoadServerTLSConfig_MinVersion(t *testing.T) {
	certFile, keyFile, _ := setupTestFiles(t)

	tests := []struct {
		version string
		want    uint16
	}{
		{"1.3", tls.VersionTLS13},
		{"1.2", tls.VersionTLS12},
		{"", tls.VersionTLS12},
		{"garbage", tls.VersionTLS12},
	}

	for _, tt := range tests {
		t.Run("version_"+tt.version, func(t *testing.T) {
			cfg, err := LoadServerTLSConfig(ServerConfig{
				Enabled:    true,
				CertFile:   certFile,
				KeyFile:    keyFile,
				MinVersion: tt.version,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.MinVersion)
		})
	}
}

func TestLoadClientTLSConfig(t *testing.T) {
	_, _, caFile := setupTestFiles(t)

	t.Run("default config", func(t *testing.T) {
		cfg, err := LoadClientTLSConfig(ClientConfig{})
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.False(t, cfg.InsecureSkipVerify)
	})

	t.Run("additional CA", func(t *testing.T) {
		cfg, err := LoadClientTLSConfig(ClientConfig{CAFiles: []string{caFile}})
		require.NoError(t, err)
		require.NotNil(t, cfg.RootCAs)
	})

	t.Run("missing CA file", func(t *testing.T) {
		_, err := LoadClientTLSConfig(ClientConfig{CAFiles: []string{"/nonexistent/ca.pem"}})
		assert.Error(t, err)
	})

	t.Run("invalid CA PEM", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.pem")
		require.NoError(t, os.WriteFile(bad, []byte("not a pem"), 0644))
		_, err := LoadClientTLSConfig(ClientConfig{CAFiles: []string{bad}})
		assert.Error(t, err)
	})

	t.Run("insecure skip verify", func(t *testing.T) {
		cfg, err := LoadClientTLSConfig(ClientConfig{InsecureSkipVerify: true})
		require.NoError(t, err)
		assert.True(t, cfg.InsecureSkipVerify)
	})
}

package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
)

// Credential is the material a CredentialProvider hands back for a named
// identity. The transport layer never reads files itself; it only
// assembles a *tls.Config from whatever the provider returns.
type Credential struct {
	CertChain []tls.Certificate
	CABundle  *x509.CertPool
}

// CredentialProvider resolves a named identity to TLS material. Kept as
// an interface so the core never owns certificate lifecycle, per §6's
// "the core never loads files itself."
type CredentialProvider interface {
	Credential(ctx context.Context, identity string) (Credential, error)
}

// buildTLSConfig assembles a client-cert-capable *tls.Config from a
// resolved Credential, pinned to TLS 1.2 minimum with 1.3 preferred.
func buildTLSConfig(cred Credential, serverName string) *tls.Config {
	return &tls.Config{
		Certificates: cred.CertChain,
		RootCAs:      cred.CABundle,
		ServerName:   serverName,
		MinVersion:   tls.VersionTLS12,
		MaxVersion:   tls.VersionTLS13,
	}
}

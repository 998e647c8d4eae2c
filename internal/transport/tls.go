package transport

import (
	"context"
	"crypto/tls"
	"net"
)

// NewTLSClient builds a TLS variant. identity names the credential the
// provider should resolve at connect time; the handshake happens inside
// Connect so a credential rotation between connect attempts is picked up
// automatically.
func NewTLSClient(cfg Config, provider CredentialProvider, identity string) *TCPClient {
	c := &TCPClient{
		cfg:     cfg,
		network: "tcp",
		frames:  make(chan Frame, 64),
	}
	c.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		cred, err := provider.Credential(ctx, identity)
		if err != nil {
			return nil, err
		}
		tlsCfg := buildTLSConfig(cred, cfg.Endpoint.Host)
		dialer := tls.Dialer{Config: tlsCfg}
		return dialer.DialContext(ctx, network, addr)
	}
	return c
}

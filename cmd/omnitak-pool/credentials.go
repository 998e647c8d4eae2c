package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"

	"github.com/engindearing-projects/omniTAK-sub001/internal/transport"
)

// fileCredentialProvider resolves a named identity to certificate
// material loaded from disk, one time per identity, per the transport
// package's contract that only the outer layer owns file lifecycle.
type fileCredentialProvider struct {
	mu    sync.Mutex
	cache map[string]transport.Credential
	specs map[string]tlsFiles
}

type tlsFiles struct {
	CertFile string
	KeyFile  string
	CAFile   string
}

func newFileCredentialProvider() *fileCredentialProvider {
	return &fileCredentialProvider{
		cache: make(map[string]transport.Credential),
		specs: make(map[string]tlsFiles),
	}
}

// register records the file paths for identity before it is ever
// dialed; Credential lazily loads and caches them on first use.
func (p *fileCredentialProvider) register(identity string, files tlsFiles) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.specs[identity] = files
}

func (p *fileCredentialProvider) Credential(ctx context.Context, identity string) (transport.Credential, error) {
	p.mu.Lock()
	if cred, ok := p.cache[identity]; ok {
		p.mu.Unlock()
		return cred, nil
	}
	files, ok := p.specs[identity]
	p.mu.Unlock()
	if !ok {
		return transport.Credential{}, fmt.Errorf("no TLS material registered for identity %q", identity)
	}

	var chain []tls.Certificate
	if files.CertFile != "" && files.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(files.CertFile, files.KeyFile)
		if err != nil {
			return transport.Credential{}, fmt.Errorf("loading client cert for %q: %w", identity, err)
		}
		chain = []tls.Certificate{cert}
	}

	var pool *x509.CertPool
	if files.CAFile != "" {
		pem, err := os.ReadFile(files.CAFile)
		if err != nil {
			return transport.Credential{}, fmt.Errorf("reading CA bundle for %q: %w", identity, err)
		}
		pool = x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return transport.Credential{}, fmt.Errorf("no certificates parsed from CA bundle for %q", identity)
		}
	}

	cred := transport.Credential{CertChain: chain, CABundle: pool}
	p.mu.Lock()
	p.cache[identity] = cred
	p.mu.Unlock()
	return cred, nil
}

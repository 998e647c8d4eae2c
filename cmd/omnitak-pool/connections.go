package main

import (
	"context"
	"fmt"
	"time"

	"github.com/engindearing-projects/omniTAK-sub001/internal/clock"
	"github.com/engindearing-projects/omniTAK-sub001/internal/config"
	"github.com/engindearing-projects/omniTAK-sub001/internal/health"
	"github.com/engindearing-projects/omniTAK-sub001/internal/pool"
	"github.com/engindearing-projects/omniTAK-sub001/internal/transport"
)

// buildClient constructs the transport.Client and derived pool metadata
// for one ConnectionSpec, dispatching on its declared variant.
func buildClient(spec config.ConnectionSpec, creds *fileCredentialProvider, clk clock.Clock) (transport.Client, transport.Variant, error) {
	endpoint := transport.Endpoint{Host: spec.Host, Port: spec.Port}
	base := transport.Config{
		Endpoint:        endpoint,
		WriteTimeout:    5 * time.Second,
		ReadTimeout:     30 * time.Second,
		MaxFrameLength:  1 << 20,
		UseLengthPrefix: false,
		Clock:           clk,
	}

	switch spec.Variant {
	case "tcp", "":
		return transport.NewTCPClient(base), transport.VariantTCP, nil
	case "udp":
		return transport.NewUDPClient(base), transport.VariantUDPUnicast, nil
	case "tls":
		// buildTLSConfig pins ServerName to cfg.Endpoint.Host; a distinct
		// spec.ServerName is only meaningful if it equals the dial host,
		// so non-empty-but-different values are rejected up front rather
		// than silently dialing the wrong SNI name.
		if spec.ServerName != "" && spec.ServerName != spec.Host {
			return nil, 0, fmt.Errorf("tls connection %q: server_name %q must match host %q or be omitted", spec.ID, spec.ServerName, spec.Host)
		}
		creds.register(spec.ID, tlsFiles{CertFile: spec.CertFile, KeyFile: spec.KeyFile, CAFile: spec.CAFile})
		client := transport.NewTLSClient(base, creds, spec.ID)
		return client, transport.VariantTLS, nil
	case "websocket":
		return transport.NewWebSocketClient(base, nil), transport.VariantWebSocket, nil
	default:
		return nil, 0, fmt.Errorf("unknown connection variant %q", spec.Variant)
	}
}

func egressPolicy(name string) pool.BackpressurePolicy {
	switch name {
	case "drop_oldest":
		return pool.BackpressurePolicy{Kind: pool.DropOldest}
	case "block":
		return pool.BackpressurePolicy{Kind: pool.BlockWithTimeout, Timeout: time.Second}
	case "drop_on_full", "":
		return pool.BackpressurePolicy{Kind: pool.DropOnFull}
	default:
		return pool.BackpressurePolicy{Kind: pool.DropOnFull}
	}
}

func ingressPolicy(cfg config.PoolConfig) pool.BackpressurePolicy {
	p := egressPolicy(cfg.IngressPolicy)
	if p.Kind == pool.BlockWithTimeout && cfg.IngressTimeout > 0 {
		p.Timeout = cfg.IngressTimeout
	}
	return p
}

// poolLister adapts Pool.ListConnections to health.Lister.
type poolLister struct {
	pool *pool.Pool
}

func (l poolLister) ListHealth() []health.ConnectionInfo {
	snapshots := l.pool.ListConnections()
	out := make([]health.ConnectionInfo, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, health.ConnectionInfo{
			ID:           s.ID,
			Connected:    s.State == transport.Connected,
			LastActivity: time.Unix(0, s.Metrics.LastActivityUnixNano),
		})
	}
	return out
}

// poolReconnector rebuilds and re-admits a connection by id when the
// health monitor's circuit breaker allows another attempt. It holds
// just enough of the original spec to redial; the pool itself owns the
// live connection once admitted.
type poolReconnector struct {
	pool  *pool.Pool
	specs map[string]connSpec
	creds *fileCredentialProvider
	clk   clock.Clock
}

type connSpec struct {
	ConnectionSpec config.ConnectionSpec
	Priority       int
}

func newPoolReconnector(p *pool.Pool, creds *fileCredentialProvider, clk clock.Clock) *poolReconnector {
	return &poolReconnector{pool: p, specs: make(map[string]connSpec), creds: creds, clk: clk}
}

func (r *poolReconnector) register(spec config.ConnectionSpec) {
	r.specs[spec.ID] = connSpec{ConnectionSpec: spec, Priority: spec.Priority}
}

func (r *poolReconnector) Reconnect(ctx context.Context, id string) error {
	cs, ok := r.specs[id]
	if !ok {
		return fmt.Errorf("reconnect: no registered spec for %q", id)
	}
	_ = r.pool.RemoveConnection(id)

	client, variant, err := buildClient(cs.ConnectionSpec, r.creds, r.clk)
	if err != nil {
		return err
	}

	_, err = r.pool.AddConnection(ctx, pool.Spec{
		ID:           cs.ConnectionSpec.ID,
		Name:         cs.ConnectionSpec.Name,
		Endpoint:     transport.Endpoint{Host: cs.ConnectionSpec.Host, Port: cs.ConnectionSpec.Port},
		Variant:      variant,
		Priority:     cs.Priority,
		Client:       client,
		EgressDepth:  cs.ConnectionSpec.EgressDepth,
		EgressPolicy: egressPolicy(cs.ConnectionSpec.EgressPolicy),
	})
	return err
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConnectionSpec describes one upstream TAK connection to pre-register
// at startup.
type ConnectionSpec struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Variant  string `yaml:"variant"` // "tcp" | "udp" | "tls" | "websocket"
	Priority int    `yaml:"priority"`

	// TLS-only; cmd/omnitak-pool loads these paths itself, per the
	// transport package's "the core never loads files itself" contract.
	CertFile   string `yaml:"cert_file,omitempty"`
	KeyFile    string `yaml:"key_file,omitempty"`
	CAFile     string `yaml:"ca_file,omitempty"`
	ServerName string `yaml:"server_name,omitempty"`

	EgressDepth  int    `yaml:"egress_depth,omitempty"`
	EgressPolicy string `yaml:"egress_policy,omitempty"` // "drop_on_full" | "drop_oldest" | "block"
}

// RouteSpec describes one destination route and the filter rule
// expression to compile for it.
type RouteSpec struct {
	DestinationID string     `yaml:"destination_id"`
	Priority      int        `yaml:"priority"`
	Filter        FilterSpec `yaml:"filter"`
}

// FilterSpec is a declarative, recursive description of a FilterRule
// tree loaded from YAML; cmd/omnitak-pool compiles it into the
// distributor package's concrete rule types.
type FilterSpec struct {
	Kind string `yaml:"kind"` // always_send|never_send|by_type|by_affiliation|by_dimension|by_geo_bbox|by_team|by_group|by_uid|not|all|any

	Prefixes     []string `yaml:"prefixes,omitempty"`
	Affiliations []string `yaml:"affiliations,omitempty"`
	Dimensions   []string `yaml:"dimensions,omitempty"`
	Teams        []string `yaml:"teams,omitempty"`
	Groups       []string `yaml:"groups,omitempty"`
	Uids         []string `yaml:"uids,omitempty"`
	UseBloom     bool     `yaml:"use_bloom,omitempty"`
	BloomFPRate  float64  `yaml:"bloom_fp_rate,omitempty"`

	MinLat float64 `yaml:"min_lat,omitempty"`
	MaxLat float64 `yaml:"max_lat,omitempty"`
	MinLon float64 `yaml:"min_lon,omitempty"`
	MaxLon float64 `yaml:"max_lon,omitempty"`

	Rule  *FilterSpec  `yaml:"rule,omitempty"`  // for "not"
	Rules []FilterSpec `yaml:"rules,omitempty"` // for "all"/"any"
}

// ConnectionsDocument is the top-level shape of a -connections-file.
type ConnectionsDocument struct {
	Connections []ConnectionSpec `yaml:"connections"`
	Routes      []RouteSpec      `yaml:"routes"`
}

func LoadConnectionsFile(path string) (ConnectionsDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ConnectionsDocument{}, fmt.Errorf("reading connections file: %w", err)
	}
	var doc ConnectionsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ConnectionsDocument{}, fmt.Errorf("parsing connections file: %w", err)
	}
	return doc, nil
}

// Package distributor evaluates per-destination filter rules against
// each unique inbound message and enqueues matching copies onto the
// Pool's egress channels.
package distributor

import (
	"strings"

	"github.com/engindearing-projects/omniTAK-sub001/internal/cot"
)

// Decision is a filter's verdict on one view.
type Decision int

const (
	Block Decision = iota
	Pass
)

// FilterRule is the shared evaluation contract every filter kind
// implements; composite rules (All/Any/Not) hold children by reference
// rather than re-implementing dispatch.
type FilterRule interface {
	Evaluate(v cot.View) Decision
	Describe() string
}

// AlwaysSend passes every message, including one with a zero View from
// a parse failure — the one rule that must never block on absent
// fields.
type AlwaysSend struct{}

func (AlwaysSend) Evaluate(cot.View) Decision { return Pass }
func (AlwaysSend) Describe() string           { return "AlwaysSend" }

// NeverSend blocks every message unconditionally.
type NeverSend struct{}

func (NeverSend) Evaluate(cot.View) Decision { return Block }
func (NeverSend) Describe() string           { return "NeverSend" }

// ByType passes if the CoT type string starts with any listed prefix.
type ByType struct {
	Prefixes []string
}

func (r ByType) Evaluate(v cot.View) Decision {
	if v.Type.Raw == "" {
		return Block
	}
	for _, p := range r.Prefixes {
		if strings.HasPrefix(v.Type.Raw, p) {
			return Pass
		}
	}
	return Block
}

func (r ByType) Describe() string {
	return "ByType(" + strings.Join(r.Prefixes, ",") + ")"
}

// ByAffiliation passes if the CoT type's affiliation character is in the
// configured set. Evaluate uses cot.ParseType's byte-indexed table
// internally, so this rule never allocates on the hot path per §4.5.
type ByAffiliation struct {
	Allowed map[cot.Affiliation]struct{}
}

func NewByAffiliation(allowed ...cot.Affiliation) ByAffiliation {
	m := make(map[cot.Affiliation]struct{}, len(allowed))
	for _, a := range allowed {
		m[a] = struct{}{}
	}
	return ByAffiliation{Allowed: m}
}

func (r ByAffiliation) Evaluate(v cot.View) Decision {
	if v.Type.Raw == "" {
		return Block
	}
	if _, ok := r.Allowed[v.Type.Affiliation]; ok {
		return Pass
	}
	return Block
}

func (r ByAffiliation) Describe() string { return "ByAffiliation" }

// ByDimension passes if the CoT type's dimension character is in the
// configured set. Not named in the distilled rule set but a direct peer
// of ByAffiliation using the same parsed field, added to round out
// dimension-based routing (e.g. "air track feed only").
type ByDimension struct {
	Allowed map[cot.Dimension]struct{}
}

func NewByDimension(allowed ...cot.Dimension) ByDimension {
	m := make(map[cot.Dimension]struct{}, len(allowed))
	for _, d := range allowed {
		m[d] = struct{}{}
	}
	return ByDimension{Allowed: m}
}

func (r ByDimension) Evaluate(v cot.View) Decision {
	if v.Type.Raw == "" {
		return Block
	}
	if _, ok := r.Allowed[v.Type.Dimension]; ok {
		return Pass
	}
	return Block
}

func (r ByDimension) Describe() string { return "ByDimension" }

// ByGeoBBox passes iff the view's coordinates fall inside the inclusive
// bounding box. A view with no position always blocks.
type ByGeoBBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

func (r ByGeoBBox) Evaluate(v cot.View) Decision {
	if !v.HasPosition {
		return Block
	}
	if v.Lat >= r.MinLat && v.Lat <= r.MaxLat && v.Lon >= r.MinLon && v.Lon <= r.MaxLon {
		return Pass
	}
	return Block
}

func (r ByGeoBBox) Describe() string { return "ByGeoBBox" }

// ByTeam passes on an exact match against the view's team field.
type ByTeam struct {
	Teams map[string]struct{}
}

func NewByTeam(teams ...string) ByTeam {
	m := make(map[string]struct{}, len(teams))
	for _, t := range teams {
		m[t] = struct{}{}
	}
	return ByTeam{Teams: m}
}

func (r ByTeam) Evaluate(v cot.View) Decision {
	if v.Team == "" {
		return Block
	}
	if _, ok := r.Teams[v.Team]; ok {
		return Pass
	}
	return Block
}

func (r ByTeam) Describe() string { return "ByTeam" }

// ByGroup passes on an exact match against the view's group field.
type ByGroup struct {
	Groups map[string]struct{}
}

func NewByGroup(groups ...string) ByGroup {
	m := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		m[g] = struct{}{}
	}
	return ByGroup{Groups: m}
}

func (r ByGroup) Evaluate(v cot.View) Decision {
	if v.Group == "" {
		return Block
	}
	if _, ok := r.Groups[v.Group]; ok {
		return Pass
	}
	return Block
}

func (r ByGroup) Describe() string { return "ByGroup" }

// ByUid passes on an exact match against the view's uid. Large sets may
// opt into a bloom filter fast-reject path; a bloom miss is a definite
// block, a bloom hit still falls through to the exact set for
// correctness.
type ByUid struct {
	Uids  map[string]struct{}
	bloom *uidBloomFilter
}

func NewByUid(uids ...string) ByUid {
	m := make(map[string]struct{}, len(uids))
	for _, u := range uids {
		m[u] = struct{}{}
	}
	return ByUid{Uids: m}
}

// NewByUidWithBloom builds a ByUid rule that fast-rejects non-members of
// large uid sets via a bloom filter before falling back to the exact
// map, per §4.5's "optional bloom filter for ByUid with large sets".
func NewByUidWithBloom(falsePositiveRate float64, uids ...string) ByUid {
	r := NewByUid(uids...)
	bloom := newUIDBloomFilter(len(uids), falsePositiveRate)
	for _, u := range uids {
		bloom.insert(u)
	}
	r.bloom = bloom
	return r
}

func (r ByUid) Evaluate(v cot.View) Decision {
	if v.UID == "" {
		return Block
	}
	if r.bloom != nil && !r.bloom.maybeContains(v.UID) {
		return Block
	}
	if _, ok := r.Uids[v.UID]; ok {
		return Pass
	}
	return Block
}

func (r ByUid) Describe() string { return "ByUid" }

// Not inverts its child: passes iff the child blocks. A child that
// blocks because its input field is absent still inverts to Pass, per
// §4.5's explicit rule.
type Not struct {
	Rule FilterRule
}

func (r Not) Evaluate(v cot.View) Decision {
	if r.Rule.Evaluate(v) == Block {
		return Pass
	}
	return Block
}

func (r Not) Describe() string { return "Not(" + r.Rule.Describe() + ")" }

// All passes iff every subrule passes; an empty list passes.
type All struct {
	Rules []FilterRule
}

func (r All) Evaluate(v cot.View) Decision {
	for _, child := range r.Rules {
		if child.Evaluate(v) == Block {
			return Block
		}
	}
	return Pass
}

func (r All) Describe() string { return "All" }

// Any passes iff some subrule passes; an empty list blocks.
type Any struct {
	Rules []FilterRule
}

func (r Any) Evaluate(v cot.View) Decision {
	for _, child := range r.Rules {
		if child.Evaluate(v) == Pass {
			return Pass
		}
	}
	return Block
}

func (r Any) Describe() string { return "Any" }

package main

import (
	"fmt"

	"github.com/engindearing-projects/omniTAK-sub001/internal/config"
	"github.com/engindearing-projects/omniTAK-sub001/internal/cot"
	"github.com/engindearing-projects/omniTAK-sub001/internal/distributor"
)

// compileFilter turns a declarative FilterSpec loaded from a
// connections file into the concrete FilterRule tree the distributor
// evaluates. This is the one place the YAML schema and the rule types
// meet, keeping internal/config free of a distributor import.
func compileFilter(spec config.FilterSpec) (distributor.FilterRule, error) {
	switch spec.Kind {
	case "", "always_send":
		return distributor.AlwaysSend{}, nil
	case "never_send":
		return distributor.NeverSend{}, nil
	case "by_type":
		if len(spec.Prefixes) == 0 {
			return nil, fmt.Errorf("by_type filter requires at least one prefix")
		}
		return distributor.ByType{Prefixes: spec.Prefixes}, nil
	case "by_affiliation":
		affiliations, err := compileAffiliations(spec.Affiliations)
		if err != nil {
			return nil, err
		}
		return distributor.NewByAffiliation(affiliations...), nil
	case "by_dimension":
		dimensions, err := compileDimensions(spec.Dimensions)
		if err != nil {
			return nil, err
		}
		return distributor.NewByDimension(dimensions...), nil
	case "by_geo_bbox":
		return distributor.ByGeoBBox{
			MinLat: spec.MinLat,
			MaxLat: spec.MaxLat,
			MinLon: spec.MinLon,
			MaxLon: spec.MaxLon,
		}, nil
	case "by_team":
		return distributor.NewByTeam(spec.Teams...), nil
	case "by_group":
		return distributor.NewByGroup(spec.Groups...), nil
	case "by_uid":
		if spec.UseBloom {
			rate := spec.BloomFPRate
			if rate <= 0 {
				rate = 0.01
			}
			return distributor.NewByUidWithBloom(rate, spec.Uids...), nil
		}
		return distributor.NewByUid(spec.Uids...), nil
	case "not":
		if spec.Rule == nil {
			return nil, fmt.Errorf("not filter requires a nested rule")
		}
		child, err := compileFilter(*spec.Rule)
		if err != nil {
			return nil, err
		}
		return distributor.Not{Rule: child}, nil
	case "all":
		children, err := compileFilters(spec.Rules)
		if err != nil {
			return nil, err
		}
		return distributor.All{Rules: children}, nil
	case "any":
		children, err := compileFilters(spec.Rules)
		if err != nil {
			return nil, err
		}
		return distributor.Any{Rules: children}, nil
	default:
		return nil, fmt.Errorf("unknown filter kind %q", spec.Kind)
	}
}

func compileFilters(specs []config.FilterSpec) ([]distributor.FilterRule, error) {
	rules := make([]distributor.FilterRule, 0, len(specs))
	for _, s := range specs {
		rule, err := compileFilter(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func compileAffiliations(names []string) ([]cot.Affiliation, error) {
	out := make([]cot.Affiliation, 0, len(names))
	for _, n := range names {
		a, ok := affiliationByName[n]
		if !ok {
			return nil, fmt.Errorf("unknown affiliation %q", n)
		}
		out = append(out, a)
	}
	return out, nil
}

func compileDimensions(names []string) ([]cot.Dimension, error) {
	out := make([]cot.Dimension, 0, len(names))
	for _, n := range names {
		d, ok := dimensionByName[n]
		if !ok {
			return nil, fmt.Errorf("unknown dimension %q", n)
		}
		out = append(out, d)
	}
	return out, nil
}

var affiliationByName = map[string]cot.Affiliation{
	"pending":        cot.AffiliationPending,
	"unknown":        cot.AffiliationUnknown,
	"assumed_friend": cot.AffiliationAssumedFriend,
	"friend":         cot.AffiliationFriend,
	"neutral":        cot.AffiliationNeutral,
	"suspect":        cot.AffiliationSuspect,
	"hostile":        cot.AffiliationHostile,
	"joker":          cot.AffiliationJoker,
	"faker":          cot.AffiliationFaker,
}

var dimensionByName = map[string]cot.Dimension{
	"space":          cot.DimensionSpace,
	"air":            cot.DimensionAir,
	"ground":         cot.DimensionGround,
	"sea_surface":    cot.DimensionSeaSurface,
	"sea_subsurface": cot.DimensionSeaSubsurface,
	"sof":            cot.DimensionSOF,
	"other":          cot.DimensionOther,
}

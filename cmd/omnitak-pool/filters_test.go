package main

import (
	"testing"

	"github.com/engindearing-projects/omniTAK-sub001/internal/config"
	"github.com/engindearing-projects/omniTAK-sub001/internal/cot"
)

func TestCompileFilterAlwaysAndNever(t *testing.T) {
	always, err := compileFilter(config.FilterSpec{Kind: "always_send"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	never, err := compileFilter(config.FilterSpec{Kind: "never_send"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if never.Evaluate(cot.EmptyView()) != 0 {
		t.Fatalf("never_send should always block")
	}
	if always.Evaluate(cot.EmptyView()) != 1 {
		t.Fatalf("always_send should always pass")
	}
}

func TestCompileFilterByAffiliationRejectsUnknownName(t *testing.T) {
	_, err := compileFilter(config.FilterSpec{Kind: "by_affiliation", Affiliations: []string{"bogus"}})
	if err == nil {
		t.Fatal("expected error for unknown affiliation name")
	}
}

func TestCompileFilterByUidWithBloom(t *testing.T) {
	rule, err := compileFilter(config.FilterSpec{Kind: "by_uid", Uids: []string{"a", "b"}, UseBloom: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view := cot.EmptyView()
	view.UID = "a"
	if rule.Evaluate(view) != 1 {
		t.Fatalf("expected member uid to pass")
	}
}

func TestCompileFilterNotRequiresNestedRule(t *testing.T) {
	_, err := compileFilter(config.FilterSpec{Kind: "not"})
	if err == nil {
		t.Fatal("expected error when not filter has no nested rule")
	}
}

func TestCompileFilterAllComposesChildren(t *testing.T) {
	spec := config.FilterSpec{
		Kind: "all",
		Rules: []config.FilterSpec{
			{Kind: "by_type", Prefixes: []string{"a-f"}},
			{Kind: "by_affiliation", Affiliations: []string{"friend"}},
		},
	}
	rule, err := compileFilter(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view := cot.EmptyView()
	view.Type.Raw = "a-f-G"
	view.Type.Affiliation = cot.AffiliationFriend
	if rule.Evaluate(view) != 1 {
		t.Fatalf("expected composite rule to pass when both children pass")
	}
}

func TestCompileFilterUnknownKind(t *testing.T) {
	_, err := compileFilter(config.FilterSpec{Kind: "bogus"})
	if err == nil {
		t.Fatal("expected error for unknown filter kind")
	}
}

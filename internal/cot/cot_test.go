package cot

import "testing"

func TestParseTypeFull(t *testing.T) {
	ct := ParseType("a-f-G-E-V-C")
	if ct.Atoms != 'a' {
		t.Fatalf("atoms = %q, want 'a'", ct.Atoms)
	}
	if ct.Affiliation != AffiliationFriend {
		t.Fatalf("affiliation = %v, want Friend", ct.Affiliation)
	}
	if ct.Dimension != DimensionGround {
		t.Fatalf("dimension = %v, want Ground", ct.Dimension)
	}
	if ct.Function != "E-V-C" {
		t.Fatalf("function = %q, want %q", ct.Function, "E-V-C")
	}
}

func TestParseTypeCaseInsensitive(t *testing.T) {
	ct := ParseType("a-H-A")
	if ct.Affiliation != AffiliationHostile {
		t.Fatalf("affiliation = %v, want Hostile", ct.Affiliation)
	}
	if ct.Dimension != DimensionAir {
		t.Fatalf("dimension = %v, want Air", ct.Dimension)
	}
}

func TestParseTypeShort(t *testing.T) {
	ct := ParseType("a-u")
	if ct.Affiliation != AffiliationUnknown {
		t.Fatalf("affiliation = %v, want Unknown", ct.Affiliation)
	}
	if ct.Dimension != DimensionUnset {
		t.Fatalf("dimension = %v, want Unset on missing segment", ct.Dimension)
	}
	if ct.Function != "" {
		t.Fatalf("function = %q, want empty", ct.Function)
	}
}

func TestParseTypeEmpty(t *testing.T) {
	ct := ParseType("")
	if ct.Affiliation != AffiliationUnset {
		t.Fatalf("expected zero-value affiliation for empty type, got %v", ct.Affiliation)
	}
	if ct.Dimension != DimensionUnset {
		t.Fatalf("expected zero-value dimension for empty type, got %v", ct.Dimension)
	}
}

func TestAffiliationHelpers(t *testing.T) {
	if !AffiliationFriend.IsFriendly() || AffiliationFriend.IsHostile() {
		t.Fatal("Friend should be friendly, not hostile")
	}
	if !AffiliationHostile.IsHostile() || AffiliationHostile.IsFriendly() {
		t.Fatal("Hostile should be hostile, not friendly")
	}
	if AffiliationNeutral.IsFriendly() || AffiliationNeutral.IsHostile() {
		t.Fatal("Neutral should be neither")
	}
}

func TestParseAndView(t *testing.T) {
	payload := []byte(`<event version="2.0" uid="ANDROID-1" type="a-f-G-U-C" time="2024-01-01T00:00:00Z" start="2024-01-01T00:00:00Z" stale="2024-01-01T00:05:00Z" how="m-g">
		<point lat="40.5" lon="-74.0" hae="10.0" ce="5.0" le="5.0"/>
		<detail>
			<contact callsign="RAIDER-1"/>
			<group name="Blue" role="Team Member"/>
		</detail>
	</event>`)

	ev, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ev.UID != "ANDROID-1" {
		t.Fatalf("uid = %q", ev.UID)
	}

	v := NewView(ev)
	if v.Callsign != "RAIDER-1" {
		t.Fatalf("callsign = %q", v.Callsign)
	}
	if v.Group != "Blue" || v.Team != "Blue" {
		t.Fatalf("group/team = %q/%q", v.Group, v.Team)
	}
	if !v.HasPosition || v.Lat != 40.5 || v.Lon != -74.0 {
		t.Fatalf("position = %+v", v)
	}
	if v.Type.Affiliation != AffiliationFriend {
		t.Fatalf("affiliation = %v", v.Type.Affiliation)
	}
}

func TestParseMalformedFallsBackToEmptyView(t *testing.T) {
	_, err := Parse([]byte("not xml at all"))
	if err == nil {
		t.Fatal("expected parse error for malformed payload")
	}
	v := EmptyView()
	if v.UID != "" || v.HasPosition {
		t.Fatalf("expected zero-value view, got %+v", v)
	}
}

package cot

// Affiliation is the MIL-STD-2525 affiliation code parsed out of a CoT
// type's second dash-separated segment.
type Affiliation byte

const (
	AffiliationUnset Affiliation = iota
	AffiliationPending
	AffiliationUnknown
	AffiliationAssumedFriend
	AffiliationFriend
	AffiliationNeutral
	AffiliationSuspect
	AffiliationHostile
	AffiliationJoker
	AffiliationFaker
)

func (a Affiliation) String() string {
	switch a {
	case AffiliationPending:
		return "Pending"
	case AffiliationUnknown:
		return "Unknown"
	case AffiliationAssumedFriend:
		return "AssumedFriend"
	case AffiliationFriend:
		return "Friend"
	case AffiliationNeutral:
		return "Neutral"
	case AffiliationSuspect:
		return "Suspect"
	case AffiliationHostile:
		return "Hostile"
	case AffiliationJoker:
		return "Joker"
	case AffiliationFaker:
		return "Faker"
	default:
		return "Unset"
	}
}

// Dimension is the MIL-STD-2525 dimension code parsed out of a CoT type's
// third dash-separated segment.
type Dimension byte

const (
	DimensionUnset Dimension = iota
	DimensionSpace
	DimensionAir
	DimensionGround
	DimensionSeaSurface
	DimensionSeaSubsurface
	DimensionSOF
	DimensionOther
)

func (d Dimension) String() string {
	switch d {
	case DimensionSpace:
		return "Space"
	case DimensionAir:
		return "Air"
	case DimensionGround:
		return "Ground"
	case DimensionSeaSurface:
		return "SeaSurface"
	case DimensionSeaSubsurface:
		return "SeaSubsurface"
	case DimensionSOF:
		return "SOF"
	case DimensionOther:
		return "Other"
	default:
		return "Unset"
	}
}

// affiliationTable is a 256-entry, byte-indexed lookup table so
// ByAffiliation filter evaluation never allocates and never branches on a
// multi-way character comparison, per spec.md §4.5's hot-path requirement.
var affiliationTable = buildAffiliationTable()

func buildAffiliationTable() [256]Affiliation {
	var t [256]Affiliation
	set := func(c byte, a Affiliation) {
		t[c] = a
		t[c-('a'-'A')] = a // also set the uppercase variant when c is lowercase
	}
	set('p', AffiliationPending)
	set('u', AffiliationUnknown)
	set('a', AffiliationAssumedFriend)
	set('f', AffiliationFriend)
	set('n', AffiliationNeutral)
	set('s', AffiliationSuspect)
	set('h', AffiliationHostile)
	set('j', AffiliationJoker)
	set('k', AffiliationFaker)
	return t
}

var dimensionTable = buildDimensionTable()

func buildDimensionTable() [256]Dimension {
	var t [256]Dimension
	for i := range t {
		t[i] = DimensionOther
	}
	set := func(c byte, d Dimension) {
		t[c] = d
		t[c-('a'-'A')] = d
	}
	set('p', DimensionSpace)
	set('a', DimensionAir)
	set('g', DimensionGround)
	set('s', DimensionSeaSurface)
	set('u', DimensionSeaSubsurface)
	set('f', DimensionSOF)
	return t
}

// CotType is the parsed view of a CoT type string such as "a-f-G-E-V-C".
type CotType struct {
	Raw         string
	Atoms       byte // 0 if absent
	Affiliation Affiliation
	Dimension   Dimension
	Function    string // remainder after the 3rd '-', "" if absent
}

// ParseType parses a CoT type string with no allocation beyond the
// returned struct. Missing segments leave the corresponding field at its
// zero value instead of failing; callers treat zero as "absent" and block
// per spec.md §4.5.
func ParseType(typeStr string) CotType {
	var ct CotType
	ct.Raw = typeStr

	seg := 0
	start := 0
	for i := 0; i <= len(typeStr); i++ {
		if i < len(typeStr) && typeStr[i] != '-' {
			continue
		}
		part := typeStr[start:i]
		switch seg {
		case 0:
			if len(part) > 0 {
				ct.Atoms = part[0]
			}
		case 1:
			if len(part) > 0 {
				ct.Affiliation = affiliationTable[part[0]]
			}
		case 2:
			if len(part) > 0 {
				ct.Dimension = dimensionTable[part[0]]
			} else {
				ct.Dimension = DimensionUnset
			}
			if i < len(typeStr) {
				ct.Function = typeStr[i+1:]
			}
			return ct
		}
		seg++
		start = i + 1
	}
	return ct
}

// IsFriendly reports whether the affiliation is one of Friend, AssumedFriend,
// or Joker (friendly-for-exercise).
func (a Affiliation) IsFriendly() bool {
	return a == AffiliationFriend || a == AffiliationAssumedFriend || a == AffiliationJoker
}

// IsHostile reports whether the affiliation is one of Hostile, Suspect, or
// Faker (hostile-for-exercise).
func (a Affiliation) IsHostile() bool {
	return a == AffiliationHostile || a == AffiliationSuspect || a == AffiliationFaker
}

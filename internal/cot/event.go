package cot

import (
	"encoding/xml"
	"strconv"
)

// Event is a CoT 2.0 event document. Fields mirror the wire schema's
// attribute names; Detail is kept as raw XML since the schema for the
// detail subtree is open-ended and most filters never look inside it.
type Event struct {
	XMLName xml.Name `xml:"event"`
	Version string   `xml:"version,attr"`
	UID     string   `xml:"uid,attr"`
	Type    string   `xml:"type,attr"`
	Time    string   `xml:"time,attr"`
	Start   string   `xml:"start,attr"`
	Stale   string   `xml:"stale,attr"`
	How     string   `xml:"how,attr"`
	Point   Point    `xml:"point"`
	Detail  *Detail  `xml:"detail"`
}

// Point is the event's location and accuracy.
type Point struct {
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
	Hae float64 `xml:"hae,attr"`
	Ce  float64 `xml:"ce,attr"`
	Le  float64 `xml:"le,attr"`
}

// Detail carries the subset of the detail subtree that filters and
// callers commonly key off; everything else round-trips through Raw.
type Detail struct {
	Contact *Contact `xml:"contact"`
	Group   *Group   `xml:"group"`
	Raw     []byte   `xml:",innerxml"`
}

type Contact struct {
	Callsign string `xml:"callsign,attr"`
}

type Group struct {
	Name string `xml:"name,attr"`
	Role string `xml:"role,attr"`
}

// View is the flattened, filter-friendly projection of an Event used by
// distributor.FilterRule evaluation. A missing or unparseable field is
// left at its zero value; the caller never observes why a field is
// absent, only that it is.
type View struct {
	UID         string
	Type        CotType
	Callsign    string
	Group       string
	Team        string
	Lat         float64
	Lon         float64
	Hae         float64
	HasPosition bool
}

// Parse decodes a CoT XML payload into an Event. Parse never panics; a
// malformed document returns a non-nil error and the Aggregator falls
// back to hashing the raw payload for deduplication instead of rejecting
// the message, per the no-reject-on-parse-failure rule.
func Parse(payload []byte) (Event, error) {
	var ev Event
	if err := xml.Unmarshal(payload, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// NewView projects an Event into a View. It never fails: a zero Event
// produces a zero View, which every FilterRule other than AlwaysSend
// treats as non-matching.
func NewView(ev Event) View {
	v := View{
		UID:  ev.UID,
		Type: ParseType(ev.Type),
		Lat:  ev.Point.Lat,
		Lon:  ev.Point.Lon,
		Hae:  ev.Point.Hae,
	}
	if ev.Point.Lat != 0 || ev.Point.Lon != 0 {
		v.HasPosition = true
	}
	if ev.Detail != nil {
		if ev.Detail.Contact != nil {
			v.Callsign = ev.Detail.Contact.Callsign
		}
		if ev.Detail.Group != nil {
			v.Group = ev.Detail.Group.Name
			v.Team = ev.Detail.Group.Name
		}
	}
	return v
}

// EmptyView returns the zero View produced for a payload that failed to
// parse. Kept as a named constructor so callers read intent at the call
// site instead of an unexplained View{}.
func EmptyView() View {
	return View{}
}

// FormatFloat renders a coordinate the way CoT documents expect: fixed
// point, no exponent, trimmed to a sane number of decimal places.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 7, 64)
}

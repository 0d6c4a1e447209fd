package canon

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var rePunct = regexp.MustCompile(`[^A-Za-z0-9\s]`)

// Address is a normalized US address plus its stable property key.
type Address struct {
	Line1 string
	City  string
	State string
	Zip   string
	Key   string
}

// Canonicalize normalizes an address and computes a stable property key.
// Unit/suite designators are dropped so every unit of a parcel shares a key.
func Canonicalize(line1, city, state, zip string) Address {
	n1 := strings.ToUpper(strings.TrimSpace(line1))
	n1 = stripUnit(n1)
	n1 = rePunct.ReplaceAllString(n1, " ")
	n1 = abbreviate(strings.Fields(n1))

	c := strings.Join(strings.Fields(rePunct.ReplaceAllString(strings.ToUpper(strings.TrimSpace(city)), " ")), " ")
	st := strings.Join(strings.Fields(strings.ToUpper(state)), " ")
	if len(st) > 2 {
		st = stateAbbrev(st)
	}
	z := trimZIP(zip)

	return Address{
		Line1: n1,
		City:  c,
		State: st,
		Zip:   z,
		Key:   strings.ToLower(n1 + "|" + c + "|" + st + "|" + z),
	}
}

// Display renders a canonical address for humans: "531 NE Beck Rd, Belfair, WA 98528".
// Directionals and the state stay upper case.
func (a Address) Display() string {
	titler := cases.Title(language.AmericanEnglish) // Casers are stateful, one per call
	words := strings.Fields(a.Line1)
	for i, w := range words {
		if _, dir := directionals[w]; !dir {
			words[i] = titler.String(w)
		}
	}
	out := strings.Join(words, " ")
	if a.City != "" {
		out += ", " + titler.String(a.City)
	}
	if a.State != "" || a.Zip != "" {
		out += ", " + strings.TrimSpace(a.State+" "+a.Zip)
	}
	return out
}

func trimZIP(z string) string {
	z = strings.TrimSpace(z)
	if len(z) >= 5 {
		return z[:5]
	}
	return z
}

func stripUnit(s string) string {
	toks := []string{" APT ", " UNIT ", " STE ", " SUITE ", " #"}
	up := " " + s + " "
	cut := len(up)
	for _, t := range toks {
		if i := strings.Index(up, t); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.TrimSpace(up[:cut])
}

var directionals = map[string]struct{}{
	"N": {}, "S": {}, "E": {}, "W": {}, "NE": {}, "NW": {}, "SE": {}, "SW": {},
}

var longDirectionals = map[string]string{
	"NORTH": "N", "SOUTH": "S", "EAST": "E", "WEST": "W",
	"NORTHEAST": "NE", "NORTHWEST": "NW", "SOUTHEAST": "SE", "SOUTHWEST": "SW",
}

// USPS-style street suffixes
var suffixes = map[string]string{
	"STREET":    "ST",
	"ROAD":      "RD",
	"AVENUE":    "AVE",
	"BOULEVARD": "BLVD",
	"DRIVE":     "DR",
	"LANE":      "LN",
	"COURT":     "CT",
	"CIRCLE":    "CIR",
	"TERRACE":   "TER",
	"PLACE":     "PL",
	"PARKWAY":   "PKWY",
	"HIGHWAY":   "HWY",
}

// abbreviate rewrites whole words only, so "ROADWAY" stays as is. The leading
// house number is never touched, and a directional is only shortened when it
// precedes or follows the street name rather than being the name itself.
func abbreviate(words []string) string {
	for i, w := range words {
		if v, ok := suffixes[w]; ok && i > 0 {
			words[i] = v
			continue
		}
		if v, ok := longDirectionals[w]; ok && len(words) > 3 && (i == 1 || i == len(words)-1) {
			words[i] = v
		}
	}
	return strings.Join(words, " ")
}

var states = map[string]string{
	"ALABAMA": "AL", "ALASKA": "AK", "ARIZONA": "AZ", "ARKANSAS": "AR", "CALIFORNIA": "CA", "COLORADO": "CO",
	"CONNECTICUT": "CT", "DELAWARE": "DE", "DISTRICT OF COLUMBIA": "DC", "FLORIDA": "FL", "GEORGIA": "GA",
	"HAWAII": "HI", "IDAHO": "ID", "ILLINOIS": "IL", "INDIANA": "IN", "IOWA": "IA", "KANSAS": "KS",
	"KENTUCKY": "KY", "LOUISIANA": "LA", "MAINE": "ME", "MARYLAND": "MD", "MASSACHUSETTS": "MA",
	"MICHIGAN": "MI", "MINNESOTA": "MN", "MISSISSIPPI": "MS", "MISSOURI": "MO", "MONTANA": "MT",
	"NEBRASKA": "NE", "NEVADA": "NV", "NEW HAMPSHIRE": "NH", "NEW JERSEY": "NJ", "NEW MEXICO": "NM",
	"NEW YORK": "NY", "NORTH CAROLINA": "NC", "NORTH DAKOTA": "ND", "OHIO": "OH", "OKLAHOMA": "OK",
	"OREGON": "OR", "PENNSYLVANIA": "PA", "RHODE ISLAND": "RI", "SOUTH CAROLINA": "SC", "SOUTH DAKOTA": "SD",
	"TENNESSEE": "TN", "TEXAS": "TX", "UTAH": "UT", "VERMONT": "VT", "VIRGINIA": "VA", "WASHINGTON": "WA",
	"WEST VIRGINIA": "WV", "WISCONSIN": "WI", "WYOMING": "WY",
}

func stateAbbrev(s string) string {
	if v, ok := states[s]; ok {
		return v
	}
	return s
}

package tree

import "strings"

// EscapeMarker prefixes every escape sequence. Strings that already contain
// the marker do not survive an Encode/Decode round trip.
const EscapeMarker = "~"

var encoder = strings.NewReplacer(
	"%", "~25",
	"&", "~26",
	`"`, "~22",
	`\`, "~5C",
	"<", "~3C",
	">", "~3E",
	"\n", "~0A",
	"'", "~27",
)

// decoder reverses every sequence except ~25, which Decode handles last.
var decoder = strings.NewReplacer(
	"~26", "&",
	"~22", `"`,
	"~5C", `\`,
	"~3C", "<",
	"~3E", ">",
	"~0A", "\n",
	"~27", "'",
)

// Encode escapes a text payload before it is stored as an attribute.
func Encode(s string) string {
	return encoder.Replace(s)
}

// Decode reverses Encode. The percent sequence is restored after all
// others so an encoded "%26" does not turn into "&".
func Decode(s string) string {
	if !strings.Contains(s, EscapeMarker) {
		return s
	}
	return strings.ReplaceAll(decoder.Replace(s), "~25", "%")
}

package vcfio

import "strings"

// parseAngleFields parses the ID=...,Number=...,Type=...,Description="..."
// contents of a ##INFO=<...> / ##FORMAT=<...> line's <...> body into a
// map, honoring quoted commas inside Description. Adapted from the
// quote-aware scanning approach of elprep's StringScanner.ParseMetaField,
// simplified to a single pass since XCF's own header never needs the
// full VCF meta-field grammar (arrays of structured Meta entries).
func parseAngleFields(body string) map[string]string {
	m := make(map[string]string)
	var key strings.Builder
	var val strings.Builder
	inVal := false
	inQuote := false
	flush := func() {
		k := strings.TrimSpace(key.String())
		if k != "" {
			m[k] = val.String()
		}
		key.Reset()
		val.Reset()
		inVal = false
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case inQuote:
			if c == '"' {
				inQuote = false
				continue
			}
			val.WriteByte(c)
		case c == '"':
			inQuote = true
		case !inVal && c == '=':
			inVal = true
		case c == ',' && !inQuote:
			flush()
		default:
			if inVal {
				val.WriteByte(c)
			} else {
				key.WriteByte(c)
			}
		}
	}
	flush()
	return m
}

// angleBody extracts the contents between the first '<' and the last
// '>' in a ##line's value.
func angleBody(value string) (string, bool) {
	start := strings.IndexByte(value, '<')
	end := strings.LastIndexByte(value, '>')
	if start < 0 || end <= start {
		return "", false
	}
	return value[start+1 : end], true
}

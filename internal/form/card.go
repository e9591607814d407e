package form

import "strings"

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatCardNumber keeps at most 16 digits and groups them in fours:
// "4242424242424242" → "4242 4242 4242 4242". Fewer than four digits are
// returned as typed digits.
func FormatCardNumber(s string) string {
	v := digits(s)
	if len(v) < 4 {
		return v
	}
	if len(v) > 16 {
		v = v[:16]
	}
	parts := make([]string, 0, 4)
	for i := 0; i < len(v); i += 4 {
		parts = append(parts, v[i:min(i+4, len(v))])
	}
	return strings.Join(parts, " ")
}

// FormatExpiry renders typed digits as MM/YY: "1226" → "12/26", "1" → "1".
func FormatExpiry(s string) string {
	v := digits(s)
	if len(v) < 2 {
		return v
	}
	return v[:2] + "/" + v[2:min(4, len(v))]
}

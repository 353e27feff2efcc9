package usage

import "strconv"

const (
	KeyUsageCount = "usage_count"
	KeyProStatus  = "pro_status"
	// KeyLegacyProStatus is read as a fallback and never written.
	KeyLegacyProStatus = "legacy_pro_status"
)

// parseCount reads the leading decimal integer of s. Anything unparseable or
// negative is 0.
func parseCount(s string) int {
	end := 0
	for end < len(s) && (s[end] == ' ' || s[end] == '\t' || s[end] == '\n' || s[end] == '\r') {
		end++
	}
	start := end
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}

	n, err := strconv.Atoi(s[start:end])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func formatCount(n int) string {
	return strconv.Itoa(n)
}

// parseFlag accepts only the literal "true".
func parseFlag(s string) bool {
	return s == "true"
}

func formatFlag(b bool) string {
	return strconv.FormatBool(b)
}

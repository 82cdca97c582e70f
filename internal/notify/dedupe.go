package notify

import "strings"

// Dedupe lower-cases and trims addresses, drops empties and keeps the first
// occurrence of each, preserving order.
func Dedupe(addrs ...string) []string {
	seen := make(map[string]bool, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

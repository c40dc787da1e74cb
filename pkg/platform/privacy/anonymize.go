// Package privacy masks personal identifiers before they reach logs.
package privacy

import (
	"fmt"
	"net/netip"
	"strings"
)

// AnonymizeIP truncates an IP address to its network portion: IPv4 keeps the
// /24 ("192.168.1.47" -> "192.168.1.0"), IPv6 keeps the /48.
// Returns "invalid" for unparseable input and "unknown" for empty input.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()

	if addr.Is4() {
		prefix, _ := addr.Prefix(24) //nolint:errcheck // 24 is always valid for IPv4
		return prefix.Addr().String()
	}
	b := addr.As16()
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::", b[0], b[1], b[2], b[3], b[4], b[5])
}

// MaskLegalID keeps only the last four characters of a legal ID number
// ("12345678901" -> "*******8901"). Short values are fully masked.
func MaskLegalID(legalID string) string {
	if legalID == "" {
		return ""
	}
	if len(legalID) <= 4 {
		return strings.Repeat("*", len(legalID))
	}
	return strings.Repeat("*", len(legalID)-4) + legalID[len(legalID)-4:]
}

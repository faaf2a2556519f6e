package scorecard

import (
	"net"
	"strings"

	"wifiscore/internal/model"
)

// NormalizeBSSID returns the lower-case colon form of a 48-bit hardware
// address. Accepts colon, dash, dot and bare-hex spellings, including
// single-digit octets ("1:2:3:4:5:6").
func NormalizeBSSID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	n := strings.NewReplacer("-", ":", ".", ":").Replace(s)
	if !strings.Contains(n, ":") && len(n) == 12 {
		var b strings.Builder
		for i := 0; i < 12; i += 2 {
			if i > 0 {
				b.WriteByte(':')
			}
			b.WriteString(n[i : i+2])
		}
		n = b.String()
	}
	if parts := strings.Split(n, ":"); len(parts) == 6 {
		for i, p := range parts {
			if len(p) == 1 {
				parts[i] = "0" + p
			}
		}
		n = strings.Join(parts, ":")
	}
	hw, err := net.ParseMAC(n)
	if err != nil || len(hw) != 6 {
		return "", false
	}
	return hw.String(), true
}

// UsableBSSID reports whether a normalized address identifies a real access point.
func UsableBSSID(bssid string) bool {
	return bssid != "" && bssid != model.DefaultBSSID && bssid != "00:00:00:00:00:00"
}

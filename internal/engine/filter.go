package engine

import (
	"strings"

	"wifiscore/internal/config"
	"wifiscore/internal/model"
	"wifiscore/internal/scorecard"
)

// ObservationFilter holds the configured ignore lists. A nil filter ignores
// nothing.
type ObservationFilter struct {
	BSSIDs map[string]struct{}
	SSIDs  map[string]struct{}
}

func buildFilter(cfg *config.Config) *ObservationFilter {
	f := &ObservationFilter{
		BSSIDs: buildBSSIDSet(cfg.Scorecard.IgnoredBSSIDs),
		SSIDs:  buildSSIDSet(cfg.Scorecard.IgnoredSSIDs),
	}
	if f.BSSIDs == nil && f.SSIDs == nil {
		return nil
	}
	return f
}

func buildBSSIDSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		bssid, ok := scorecard.NormalizeBSSID(v)
		if !ok {
			continue
		}
		set[bssid] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func buildSSIDSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		ssid := scorecard.CleanSSID(v)
		if ssid == "" {
			continue
		}
		set[strings.ToLower(ssid)] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// Ignored reports whether obs names an ignored BSSID or SSID. SSIDs match
// case-insensitively.
func (f *ObservationFilter) Ignored(obs model.Observation) bool {
	if f == nil {
		return false
	}
	if f.BSSIDs != nil {
		if bssid, ok := scorecard.NormalizeBSSID(obs.BSSID); ok {
			if _, hit := f.BSSIDs[bssid]; hit {
				return true
			}
		}
	}
	if f.SSIDs != nil {
		if ssid := scorecard.CleanSSID(obs.SSID); ssid != "" {
			if _, hit := f.SSIDs[strings.ToLower(ssid)]; hit {
				return true
			}
		}
	}
	return false
}

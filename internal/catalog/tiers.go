package catalog

import "sort"

// VRAMTiers buckets the per-set VRAM sizes (GB) into S/M/L tiers.
var VRAMTiers = map[string][]int{
	"S": {8, 12},
	"M": {16},
	"L": {24, 32},
}

// TierFor returns the tier a VRAM size belongs to, or "" if none.
func TierFor(vramGB int) string {
	for tier, sizes := range VRAMTiers {
		for _, s := range sizes {
			if s == vramGB {
				return tier
			}
		}
	}
	return ""
}

// TierNames returns all known tiers in order.
func TierNames() []string {
	names := make([]string, 0, len(VRAMTiers))
	for t := range VRAMTiers {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}

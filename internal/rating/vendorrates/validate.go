package vendorrates

import (
	"fmt"
	"sort"
)

// IssueKind classifies a rate header diagnostic.
type IssueKind string

const (
	IssueInvalidWindow IssueKind = "INVALID_WINDOW"
	IssueSlabOverlap   IssueKind = "SLAB_OVERLAP"
	IssueSlabGap       IssueKind = "SLAB_GAP"
	IssueInvertedSlab  IssueKind = "INVERTED_SLAB"
)

// Issue is one finding produced by header validation.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Detail string    `json:"detail"`
}

// ValidateHeader inspects a header and its lines. Overlapping slabs and
// inverted windows make slab selection non-deterministic and are rejected
// at write time; gaps between consecutive slabs are reported but allowed.
func ValidateHeader(header RateHeader) []Issue {
	var issues []Issue

	if header.ValidUpto.Before(header.ValidFrom) {
		issues = append(issues, Issue{
			Kind: IssueInvalidWindow,
			Detail: fmt.Sprintf("valid_from %s is after valid_upto %s",
				header.ValidFrom.Format("2006-01-02"), header.ValidUpto.Format("2006-01-02")),
		})
	}

	byCharge := make(map[int64][]RateLine)
	for _, line := range header.Lines {
		if !line.IsActive && line.ID != 0 {
			continue
		}
		if line.SlabMaxKG < line.SlabMinKG {
			issues = append(issues, Issue{
				Kind:   IssueInvertedSlab,
				Detail: fmt.Sprintf("charge %d slab [%g, %g] has max below min", line.ChargeID, line.SlabMinKG, line.SlabMaxKG),
			})
			continue
		}
		byCharge[line.ChargeID] = append(byCharge[line.ChargeID], line)
	}

	chargeIDs := make([]int64, 0, len(byCharge))
	for id := range byCharge {
		chargeIDs = append(chargeIDs, id)
	}
	sort.Slice(chargeIDs, func(i, j int) bool { return chargeIDs[i] < chargeIDs[j] })

	for _, chargeID := range chargeIDs {
		lines := byCharge[chargeID]
		sort.Slice(lines, func(i, j int) bool { return lines[i].SlabMinKG < lines[j].SlabMinKG })
		for i := 0; i < len(lines)-1; i++ {
			cur, next := lines[i], lines[i+1]
			if cur.SlabMaxKG >= next.SlabMinKG {
				issues = append(issues, Issue{
					Kind: IssueSlabOverlap,
					Detail: fmt.Sprintf("charge %d slabs [%g, %g] and [%g, %g] overlap",
						chargeID, cur.SlabMinKG, cur.SlabMaxKG, next.SlabMinKG, next.SlabMaxKG),
				})
			} else if cur.SlabMaxKG < next.SlabMinKG-1 {
				issues = append(issues, Issue{
					Kind: IssueSlabGap,
					Detail: fmt.Sprintf("charge %d has a gap between %g and %g",
						chargeID, cur.SlabMaxKG, next.SlabMinKG),
				})
			}
		}
	}
	return issues
}

// blocking reports whether an issue set contains findings that must reject
// a write. Gaps are advisory.
func blocking(issues []Issue) []Issue {
	var out []Issue
	for _, issue := range issues {
		if issue.Kind != IssueSlabGap {
			out = append(out, issue)
		}
	}
	return out
}

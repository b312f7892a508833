package state

import "sort"

// MergeSuperStep applies every Update produced by one super-step to base
// and returns the new merged State. Per SPEC_FULL.md §4.3: every key in a
// partial update assigns directly into the result, except
// StreamingUpdates, which is the pre-step value concatenated with the
// union of per-stage appended tails in stage-name lexicographic order.
//
// Updates are also applied to scalar/slice fields in stage-name
// lexicographic order, so that merging the same super-step's updates
// twice (in any goroutine scheduling order upstream) is deterministic.
func MergeSuperStep(base State, updates []Update) State {
	ordered := make([]Update, len(updates))
	copy(ordered, updates)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Stage < ordered[j].Stage })

	next := base

	for _, u := range ordered {
		if u.Disciplines != nil {
			next.Disciplines = *u.Disciplines
		}
		if u.Mode != nil {
			next.Mode = *u.Mode
		}
		if u.RoutingHint != nil {
			next.RoutingHint = *u.RoutingHint
		}
		if u.IterationCount != nil {
			next.IterationCount = *u.IterationCount
		}
		if u.Verses != nil {
			next.Verses = *u.Verses
		}
		if u.TafseerContext != nil {
			next.TafseerContext = *u.TafseerContext
		}
		if u.LinguisticAnalysis != nil {
			next.LinguisticAnalysis = *u.LinguisticAnalysis
		}
		if u.ScienceFindings != nil {
			next.ScienceFindings = *u.ScienceFindings
		}
		if u.TafseerFindings != nil {
			next.TafseerFindings = *u.TafseerFindings
		}
		if u.HumanitiesFindings != nil {
			next.HumanitiesFindings = *u.HumanitiesFindings
		}
		if u.Synthesis != nil {
			next.Synthesis = *u.Synthesis
		}
		if u.ConfidenceTier != nil {
			next.ConfidenceTier = *u.ConfidenceTier
		}
		if u.QualityScore != nil {
			next.QualityScore = *u.QualityScore
			next.QualityScoreSet = true
		}
		if u.QualityIssues != nil {
			next.QualityIssues = *u.QualityIssues
		}
		if u.DiscoveryID != nil {
			next.DiscoveryID = *u.DiscoveryID
		}
		if u.ShouldDeepen != nil {
			next.ShouldDeepen = *u.ShouldDeepen
		}
	}

	tail := make([]ProgressRecord, 0)
	for _, u := range ordered {
		tail = append(tail, u.StreamingAppend...)
	}
	if len(tail) > 0 {
		merged := make([]ProgressRecord, 0, len(base.StreamingUpdates)+len(tail))
		merged = append(merged, base.StreamingUpdates...)
		merged = append(merged, tail...)
		next.StreamingUpdates = merged
	}

	return next
}

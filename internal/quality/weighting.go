package quality

import "patternbank/internal/pattern"

// ApplyTier raises each pattern's confidence to its source-strength tier
// floor. Confidence earned above the floor — through observed success, for
// instance — is never lowered. Applied by the orchestrator before Curate.
func ApplyTier(in []pattern.Discovered) []pattern.Discovered {
	for i := range in {
		floor := float64(pattern.TierFor(in[i].Source))
		if in[i].Confidence < floor {
			in[i].Confidence = floor
		}
	}
	return in
}

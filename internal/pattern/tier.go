package pattern

// Tier is the baseline trust assigned to an extraction source.
type Tier float64

const (
	TierStrong Tier = 0.85
	TierMedium Tier = 0.75
	TierWeak   Tier = 0.60
)

// Well-known source tags produced by the orchestrator's phases.
const (
	SourceBaseline     = "baseline"
	SourceCodeElements = "code-elements"
	SourceTemplates    = "templates"
	SourcePack         = "framework-pack"
	SourceI18n         = "i18n"
	SourceAnalytics    = "analytics"
	SourceFeatureFlags = "feature-flags"
)

var sourceTiers = map[string]Tier{
	SourceBaseline:     TierStrong,
	SourceCodeElements: TierMedium,
	SourceTemplates:    TierMedium,
	SourcePack:         TierMedium,
	SourceI18n:         TierMedium,
	SourceAnalytics:    TierWeak,
	SourceFeatureFlags: TierWeak,
}

// TierFor maps a source tag to its strength tier. Unknown sources are weak.
func TierFor(source string) Tier {
	if t, ok := sourceTiers[source]; ok {
		return t
	}
	return TierWeak
}

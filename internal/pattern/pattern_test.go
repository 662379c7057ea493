package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewClampsConfidence(t *testing.T) {
	p := New("Click Save", Click, 1.7, SourceBaseline)
	assert.Equal(t, 1.0, p.Confidence)

	p = New("Click Save", Click, -0.3, SourceBaseline)
	assert.Equal(t, 0.0, p.Confidence)

	p = New("Click Save", Click, 0.42, SourceBaseline)
	assert.Equal(t, 0.42, p.Confidence)
	assert.NotEmpty(t, p.ID)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "click save", Normalize("  Click   SAVE \n"))
	assert.Equal(t, "open the menu", Normalize("Open the\tmenu"))
	assert.Equal(t, "", Normalize("   "))
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, TierStrong, TierFor(SourceBaseline))
	assert.Equal(t, TierMedium, TierFor(SourceI18n))
	assert.Equal(t, TierWeak, TierFor(SourceAnalytics))
	assert.Equal(t, TierWeak, TierFor("somebody-elses-miner"))
}

func TestAttempted(t *testing.T) {
	p := New("click save", Click, 0.8, SourceBaseline)
	assert.False(t, p.Attempted())
	p.Failures = 1
	assert.True(t, p.Attempted())
}

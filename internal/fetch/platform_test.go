package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://job-boards.greenhouse.io/doordashusa/jobs/7063751", PlatformGreenhouse},
		{"https://boards.greenhouse.io/company/jobs/123", PlatformGreenhouse},
		{"https://jobs.lever.co/company/abc", PlatformLever},
		{"https://acme.wd5.myworkdayjobs.com/en-US/careers/job/123", PlatformWorkday},
		{"https://jobs.ashbyhq.com/acme/123", PlatformAshby},
		{"https://www.linkedin.com/jobs/view/123", PlatformLinkedIn},
		{"https://notgreenhouse.io.example.com/jobs", PlatformUnknown},
		{"https://example.com/careers", PlatformUnknown},
		{"::not a url", PlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPlatform(tt.url))
		})
	}
}

func TestContentSelectors(t *testing.T) {
	greenhouse := ContentSelectors(PlatformGreenhouse)
	assert.Equal(t, ".job__description", greenhouse[0])
	assert.Contains(t, greenhouse, "main")

	unknown := ContentSelectors(PlatformUnknown)
	assert.Equal(t, ".job-description", unknown[0])

	// callers may append without touching the shared tables
	_ = append(unknown, "extra")
	assert.NotContains(t, ContentSelectors(PlatformUnknown), "extra")
}

func TestNoiseSelectors(t *testing.T) {
	lever := NoiseSelectors(PlatformLever)
	assert.Contains(t, lever, "form")
	assert.Contains(t, lever, ".posting-apply")

	unknown := NoiseSelectors(PlatformUnknown)
	assert.Contains(t, unknown, "form")
	assert.NotContains(t, unknown, ".posting-apply")
}

func TestRendersClientSide(t *testing.T) {
	assert.True(t, RendersClientSide(PlatformWorkday))
	assert.True(t, RendersClientSide(PlatformAshby))
	assert.False(t, RendersClientSide(PlatformGreenhouse))
	assert.False(t, RendersClientSide(PlatformUnknown))
}

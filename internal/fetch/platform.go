package fetch

import (
	"net/url"
	"strings"
)

// Platform is a job board whose pages get dedicated selectors.
type Platform string

// Known job boards
const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformAshby      Platform = "ashby"
	PlatformLinkedIn   Platform = "linkedin"
	PlatformUnknown    Platform = "unknown"
)

type board struct {
	platform Platform
	hosts    []string
	content  []string
	noise    []string
	// spa boards render the posting client side.
	spa bool
}

var boards = []board{
	{
		platform: PlatformGreenhouse,
		hosts:    []string{"greenhouse.io"},
		content:  []string{".job__description", "#content", ".job-post-container"},
		noise:    []string{".application--wrapper", "#usa_self_id_section", ".post-apply"},
	},
	{
		platform: PlatformLever,
		hosts:    []string{"lever.co"},
		content:  []string{".posting-page", ".posting-description", ".content"},
		noise:    []string{".apply-section", ".posting-apply"},
	},
	{
		platform: PlatformWorkday,
		hosts:    []string{"myworkdayjobs.com", "workday.com"},
		content:  []string{"[data-automation-id='jobPostingDescription']", "[data-automation-id='jobDescription']"},
		noise:    []string{"[data-automation-id='applyButton']"},
		spa:      true,
	},
	{
		platform: PlatformAshby,
		hosts:    []string{"ashbyhq.com"},
		content:  []string{"._descriptionText", "[class*='descriptionText']", "main"},
		spa:      true,
	},
	{
		platform: PlatformLinkedIn,
		hosts:    []string{"linkedin.com"},
		content:  []string{".description__text", ".show-more-less-html__markup"},
		noise:    []string{".sign-in-modal", ".contextual-sign-in-modal"},
	},
}

// genericContent is tried on pages of unknown boards.
var genericContent = []string{
	".job-description",
	"#job-description",
	".job-details",
	"[data-testid='job-description']",
	".posting-content",
	"main",
	"article",
	"#content",
}

// commonNoise is removed from every posting page.
var commonNoise = []string{
	"form",
	".application-form",
	".apply-button-container",
	".eeo-statement",
	".voluntary-disclosure",
	".social-share",
	".cookie-consent",
	".gdpr-notice",
}

// DetectPlatform identifies the job board from a URL's host.
func DetectPlatform(rawURL string) Platform {
	if b, ok := lookup(rawURL); ok {
		return b.platform
	}
	return PlatformUnknown
}

func lookup(rawURL string) (board, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return board{}, false
	}
	host := strings.ToLower(u.Hostname())
	for _, b := range boards {
		for _, h := range b.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return b, true
			}
		}
	}
	return board{}, false
}

// ContentSelectors returns the selectors for the posting body on p, most
// specific first, followed by the generic ones.
func ContentSelectors(p Platform) []string {
	for _, b := range boards {
		if b.platform == p {
			return append(append([]string{}, b.content...), genericContent...)
		}
	}
	return append([]string{}, genericContent...)
}

// NoiseSelectors returns the elements removed from a posting on p.
func NoiseSelectors(p Platform) []string {
	out := append([]string{}, commonNoise...)
	for _, b := range boards {
		if b.platform == p {
			return append(out, b.noise...)
		}
	}
	return out
}

// RendersClientSide reports whether p is known to need a browser.
func RendersClientSide(p Platform) bool {
	for _, b := range boards {
		if b.platform == p {
			return b.spa
		}
	}
	return false
}

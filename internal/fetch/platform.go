package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known job board.
type Platform string

// Known job boards
const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformLinkedIn   Platform = "linkedin"
	PlatformIndeed     Platform = "indeed"
	PlatformUnknown    Platform = "unknown"
)

var platformHosts = []struct {
	suffix   string
	platform Platform
}{
	{"greenhouse.io", PlatformGreenhouse},
	{"lever.co", PlatformLever},
	{"myworkdayjobs.com", PlatformWorkday},
	{"workday.com", PlatformWorkday},
	{"linkedin.com", PlatformLinkedIn},
	{"indeed.com", PlatformIndeed},
}

// DetectPlatform identifies the job board from a posting URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	for _, h := range platformHosts {
		if host == h.suffix || strings.HasSuffix(host, "."+h.suffix) {
			return h.platform
		}
	}
	return PlatformUnknown
}

// PlatformContentSelectors returns containers to try before the generic job selectors.
func PlatformContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformGreenhouse:
		return []string{".job__description.body", ".job__description", ".job-post-container"}
	case PlatformLever:
		return []string{".posting-page", ".posting-description", ".section-wrapper.page-full-width"}
	case PlatformWorkday:
		return []string{"[data-automation-id='jobDescription']", ".gwt-HTML"}
	case PlatformLinkedIn:
		return []string{".show-more-less-html__markup", ".description__text"}
	case PlatformIndeed:
		return []string{"#jobDescriptionText", ".jobsearch-jobDescriptionText"}
	default:
		return nil
	}
}

// PlatformNoiseSelectors returns elements removed before text extraction.
func PlatformNoiseSelectors(platform Platform) []string {
	common := []string{
		"form",
		".application-form",
		".apply-button-container",
		".eeo-statement",
		".voluntary-disclosure",
		".social-share",
		".cookie-banner",
		".cookie-consent",
	}

	switch platform {
	case PlatformGreenhouse:
		return append(common, ".application--wrapper", "#usa_self_id_section")
	case PlatformLever:
		return append(common, ".posting-apply", ".apply-section")
	case PlatformWorkday:
		return append(common, "[data-automation-id='applyButton']")
	case PlatformLinkedIn:
		return append(common, ".top-card-layout__cta-container", ".similar-jobs")
	default:
		return common
	}
}

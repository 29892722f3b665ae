// Package security implements the heuristic anti-spam checks applied to
// inbound profile and message data. Analysis is a pure function over its
// inputs so it can be exercised directly by tests.
package security

import (
	"fmt"
	"regexp"
	"strings"
)

// Report is the outcome of analyzing a single inbound event.
type Report struct {
	High   []string
	Medium []string
}

// Triggered reports whether any signal of any severity matched.
func (r Report) Triggered() bool {
	return len(r.High) > 0 || len(r.Medium) > 0
}

// ShouldBlock reports whether at least one high-risk signal matched.
func (r Report) ShouldBlock() bool {
	return len(r.High) > 0
}

// Reasons returns all matched reasons, high-risk first.
func (r Report) Reasons() []string {
	reasons := make([]string, 0, len(r.High)+len(r.Medium))
	reasons = append(reasons, r.High...)
	reasons = append(reasons, r.Medium...)
	return reasons
}

var (
	// Invite and deep links to Telegram itself are the strongest spam signal.
	inviteLinkPattern = regexp.MustCompile(`(?i)\b(?:https?://)?(?:t(?:elegram)?\.me|telegram\.dog)/\S+`)

	// Impersonation of service staff via brand words in the profile.
	serviceKeywords = []string{"telegram", "support", "admin", "moderator", "official"}

	genericURLPattern = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)
)

// Analyze runs the fixed pattern battery against the sender's display name,
// username, and message text. The display name and username are held to a
// stricter standard than the message body: ordinary users paste ordinary
// links in messages, so a generic URL only counts when it appears in the
// profile fields.
func Analyze(fullName, username, messageText string) Report {
	var report Report

	for _, field := range []string{fullName, username, messageText} {
		if match := inviteLinkPattern.FindString(field); match != "" {
			report.High = append(report.High, fmt.Sprintf("ссылка %s", match))
		}
	}

	profile := strings.ToLower(fullName + " " + strings.TrimPrefix(username, "@"))
	for _, keyword := range serviceKeywords {
		if strings.Contains(profile, keyword) {
			report.High = append(report.High, fmt.Sprintf("сервисное слово %q в профиле", keyword))
		}
	}

	if strings.Contains(fullName, "@") {
		report.Medium = append(report.Medium, "символ @ в имени")
	}

	for _, field := range []string{fullName, strings.TrimPrefix(username, "@")} {
		if match := genericURLPattern.FindString(field); match != "" && !inviteLinkPattern.MatchString(match) {
			report.Medium = append(report.Medium, fmt.Sprintf("ссылка %s в профиле", match))
		}
	}

	return report
}

var keywordPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(serviceKeywords))
	for _, keyword := range serviceKeywords {
		patterns = append(patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(keyword)))
	}
	return patterns
}()

// SanitizeDisplayName strips every token the analyzer's pattern set would
// match from a display name. Stripping repeats until the result is stable, so
// removing one token can never uncover another. When nothing displayable
// remains, the placeholder is returned verbatim.
func SanitizeDisplayName(name, placeholder string) string {
	sanitized := name
	for {
		next := inviteLinkPattern.ReplaceAllString(sanitized, " ")
		next = genericURLPattern.ReplaceAllString(next, " ")
		for _, pattern := range keywordPatterns {
			next = pattern.ReplaceAllString(next, " ")
		}
		next = strings.ReplaceAll(next, "@", " ")
		next = strings.Join(strings.Fields(next), " ")
		if next == sanitized {
			break
		}
		sanitized = next
	}

	sanitized = strings.Trim(sanitized, " -_.,:;|")
	if sanitized == "" {
		return placeholder
	}
	return sanitized
}

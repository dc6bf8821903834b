package compose

import (
	"regexp"
	"strings"

	"inboxiq/core/domain"
)

var (
	commandPhrase = regexp.MustCompile(`(?i)\b(?:please\s+)?(?:send|compose|draft|write)\s+(?:an?\s+)?(?:e-?mail|mail|message)\s+to\b[^.!?\n]*[.!?]?`)
	spaceBeforeP  = regexp.MustCompile(`\s+([,.;:!?])`)
	emptyParens   = regexp.MustCompile(`\(\s*\)|<\s*>`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
)

// SanitizeBody strips leftover command phrasing and bare addresses from
// generated text. Removals repeat until nothing changes, since cutting one
// span can join its neighbours into a new match. The result may be empty.
func SanitizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	for {
		prev := body
		body = domain.EmailPattern.ReplaceAllString(body, "")
		body = commandPhrase.ReplaceAllString(body, "")
		body = emptyParens.ReplaceAllString(body, "")
		if body == prev {
			break
		}
	}

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		line = spaceBeforeP.ReplaceAllString(line, "$1")
		if strings.Trim(line, ",.;:!? ") == "" {
			line = ""
		}
		lines[i] = line
	}
	body = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(body)
}

// SanitizeSubject applies the body rules to a single line.
func SanitizeSubject(subject string) string {
	subject = strings.ReplaceAll(subject, "\n", " ")
	subject = SanitizeBody(subject)
	return strings.TrimSpace(strings.TrimRight(subject, " -:,;"))
}

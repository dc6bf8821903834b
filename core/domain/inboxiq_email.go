package domain

import (
	"net/mail"
	"regexp"
	"strings"
)

// atext is the RFC 5322 local-part character set, plus the dot.
const atext = "A-Za-z0-9!#$%&'*+/=?^_`{|}~.\\-"

// EmailPattern finds address-shaped tokens inside free text. Matches can
// start mid-token; FindEmail rejects those.
var EmailPattern = regexp.MustCompile(`[` + atext + `]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

var strictEmail = regexp.MustCompile(`^[` + atext + `]+@[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)*\.[A-Za-z]{2,}$`)

// IsValidEmail is a structural check only; deliverability is not verified.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 254 || !strictEmail.MatchString(s) {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// FindEmail returns the first whole address in text, or "".
func FindEmail(text string) string {
	if found := FindEmails(text); len(found) > 0 {
		return found[0]
	}
	return ""
}

// FindEmails returns every whole address in text in order. A match glued
// to a preceding local-part character or '@' is a fragment and is skipped.
// Quote marks wrapping an address are not part of it.
func FindEmails(text string) []string {
	var found []string
	for _, loc := range EmailPattern.FindAllStringIndex(text, -1) {
		if loc[0] > 0 && isLocalPartByte(text[loc[0]-1]) {
			continue
		}
		m := strings.TrimRight(text[loc[0]:loc[1]], ".")
		if loc[1] < len(text) && text[loc[1]] == '\'' {
			m = strings.TrimLeft(m, "'")
		}
		m = strings.TrimLeft(m, "`")
		if IsValidEmail(m) {
			found = append(found, m)
		}
	}
	return found
}

func isLocalPartByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	return strings.IndexByte("!#$%&'*+/=?^_`{|}~.-@", b) >= 0
}

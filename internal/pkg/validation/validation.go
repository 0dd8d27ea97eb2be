package validation

import (
	"net/url"
	"regexp"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Names: letters in any script, with accents and the usual separators.
var fullnameRe = regexp.MustCompile(`^[\p{L}\p{M}\s\-'.]+$`)

// Phone numbers in loose international form: optional +, then digits with spaces,
// dashes or parentheses, 7 to 15 digits overall.
var phoneRe = regexp.MustCompile(`^\+?[0-9\s\-()]{7,20}$`)
var digitRe = regexp.MustCompile(`[0-9]`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

func IsValidFullname(fullname string) bool {
	return fullname != "" && fullnameRe.MatchString(fullname)
}

func IsValidPhone(phone string) bool {
	if !phoneRe.MatchString(phone) {
		return false
	}
	n := len(digitRe.FindAllString(phone, -1))
	return n >= 7 && n <= 15
}

// IsValidHTTPURL accepts absolute http(s) URLs with a host.
func IsValidHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

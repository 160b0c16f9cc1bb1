package discovery

import (
	"regexp"
	"strings"
)

var placeholderValues = []string{
	"not publicly listed",
	"not available",
	"not listed in search results",
	"contact via platform",
	"n/a",
	"[not publicly available]",
	"[no official website found]",
}

var (
	leadingJunk  = regexp.MustCompile(`^[-:\s]+`)
	trailingJunk = regexp.MustCompile(`[.\s]+$`)
	hasDigit     = regexp.MustCompile(`\d`)
)

// ParseListing extracts candidates from free text of the form
//
//	**Company Name**
//	- Contact Email: sales@example.com
//	- Phone Number: +91 ...
//
// Entries without any contact detail are dropped.
func ParseListing(text string) []Candidate {
	var blocks []string
	for _, b := range strings.Split(text, "**") {
		if strings.TrimSpace(b) != "" {
			blocks = append(blocks, b)
		}
	}

	var out []Candidate
	for i := 0; i+1 < len(blocks); i += 2 {
		name := strings.TrimSpace(blocks[i])
		details := strings.TrimSpace(blocks[i+1])
		if name == "" || details == "" {
			continue
		}
		c := Candidate{
			Name:        name,
			Email:       firstField(details, "Contact Email:", "Email:"),
			Phone:       firstField(details, "Phone Number:", "Phone:"),
			Address:     firstField(details, "Address:"),
			Website:     firstField(details, "Website:"),
			LogoURL:     firstField(details, "Logo URL:"),
			Description: firstField(details, "Description:"),
		}
		if c.Email != "" || c.Phone != "" || c.Address != "" {
			out = append(out, c)
		}
	}
	return out
}

func firstField(text string, labels ...string) string {
	for _, l := range labels {
		if v := extractField(text, l); v != "" {
			return v
		}
	}
	return ""
}

func extractField(text, label string) string {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*([^\n]+)`)
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		value := strings.TrimSpace(m[1])
		value = leadingJunk.ReplaceAllString(value, "")
		value = trailingJunk.ReplaceAllString(value, "")
		if value == "" || isPlaceholder(value) {
			continue
		}

		lower := strings.ToLower(label)
		switch {
		case strings.Contains(lower, "email"):
			if strings.Contains(value, "@") && len(value) >= 5 {
				return value
			}
		case strings.Contains(lower, "phone"):
			compact := strings.ReplaceAll(value, " ", "")
			if hasDigit.MatchString(compact) && len(compact) >= 8 {
				return value
			}
		default:
			if len(value) > 3 {
				return value
			}
		}
	}
	return ""
}

func isPlaceholder(v string) bool {
	lower := strings.ToLower(v)
	for _, p := range placeholderValues {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

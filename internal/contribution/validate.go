package contribution

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"finitefield.org/gift-registry/internal/catalog"
)

// Byte limits of the free-text fields. The flow travels in the session cookie, so these keep a
// filled-in draft well under the 4096 byte cookie ceiling.
const (
	MaxNameBytes         = 80
	MaxEmailBytes        = 254
	MaxRelationshipBytes = 80
	MaxMessageBytes      = 400
)

// sanitizeRounds bounds how many layers of entity-encoded markup cleanMessage peels off.
const sanitizeRounds = 8

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	messagePolicy = bluemonday.StrictPolicy()
	angleBrackets = strings.NewReplacer("<", "", ">", "")
)

// Validate checks form against item and returns the draft fields. Rules are checked in order
// and the first failure wins.
func Validate(form FormValues, item catalog.Item, minimum int64) (Draft, error) {
	name := strings.TrimSpace(form.SubmitterName)
	email := strings.TrimSpace(form.ContactEmail)
	relationship := strings.TrimSpace(form.Relationship)
	rawAmount := strings.TrimSpace(form.AmountContribute)
	message := strings.TrimSpace(form.Message)

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"submitterName", name},
		{"contactEmail", email},
		{"relationship", relationship},
		{"amountContribute", rawAmount},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return Draft{}, &ValidationError{Rule: RuleMissingField, Fields: missing}
	}

	for _, f := range []struct {
		name  string
		value string
		limit int
	}{
		{"submitterName", name, MaxNameBytes},
		{"contactEmail", email, MaxEmailBytes},
		{"relationship", relationship, MaxRelationshipBytes},
		{"message", message, MaxMessageBytes},
	} {
		if len(f.value) > f.limit {
			return Draft{}, &ValidationError{Rule: RuleTooLong, Fields: []string{f.name}, Limit: int64(f.limit)}
		}
	}

	if !emailPattern.MatchString(email) {
		return Draft{}, &ValidationError{Rule: RuleInvalidEmail, Fields: []string{"contactEmail"}}
	}

	amount, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil {
		return Draft{}, &ValidationError{Rule: RuleInvalidAmount, Fields: []string{"amountContribute"}}
	}
	if amount < minimum {
		return Draft{}, &ValidationError{Rule: RuleBelowMinimum, Fields: []string{"amountContribute"}, Limit: minimum}
	}
	if remaining := item.RemainingAmount(); amount > remaining {
		return Draft{}, &ValidationError{Rule: RuleAboveRemaining, Fields: []string{"amountContribute"}, Limit: remaining}
	}

	return Draft{
		ItemID:           item.ID,
		Item:             item.Name,
		SubmitterName:    name,
		Relationship:     relationship,
		AmountContribute: amount,
		Message:          cleanMessage(message),
		ContactEmail:     email,
	}, nil
}

// cleanMessage reduces the free-text message to plain text. Markup is stripped repeatedly so
// entity-encoded tags cannot survive unescaping, and control characters other than newlines
// and tabs are dropped.
func cleanMessage(msg string) string {
	text := msg
	stable := false
	for i := 0; i < sanitizeRounds; i++ {
		next := html.UnescapeString(messagePolicy.Sanitize(text))
		if next == text {
			stable = true
			break
		}
		text = next
	}
	if !stable {
		text = angleBrackets.Replace(text)
	}
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(text)
}

// clipForm bounds the values kept for redisplay after a failed validation.
func clipForm(form FormValues) FormValues {
	return FormValues{
		SubmitterName:    clip(form.SubmitterName, MaxNameBytes),
		ContactEmail:     clip(form.ContactEmail, MaxEmailBytes),
		Relationship:     clip(form.Relationship, MaxRelationshipBytes),
		AmountContribute: clip(form.AmountContribute, 32),
		Message:          clip(form.Message, MaxMessageBytes),
	}
}

// clip cuts s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

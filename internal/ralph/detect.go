package ralph

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// promiseTagRe captures <promise>…</promise> declarations, case-insensitive
// and across newlines.
var promiseTagRe = regexp.MustCompile(`(?is)<promise>(.*?)</promise>`)

// idlePatterns match responses that just wait for input.
var idlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\.*$`),
	regexp.MustCompile(`(?i)^standing by\.?$`),
	regexp.MustCompile(`(?i)^ready\.?$`),
	regexp.MustCompile(`(?i)^ready when you are\.?$`),
	regexp.MustCompile(`(?i)^awaiting.*input\.?$`),
	regexp.MustCompile(`(?i)^listening\.?$`),
	regexp.MustCompile(`(?i)^waiting\.?$`),
}

// PromiseFulfilled reports whether text declares the completion promise,
// either inside a <promise> tag (content trimmed, case-insensitive) or as
// bare text anywhere in the response. An empty promise never fulfills.
func PromiseFulfilled(text, promise string) bool {
	if promise == "" {
		return false
	}
	want := strings.ToUpper(promise)
	for _, m := range promiseTagRe.FindAllStringSubmatch(text, -1) {
		if strings.ToUpper(strings.TrimSpace(m[1])) == want {
			return true
		}
	}
	return strings.Contains(strings.ToUpper(text), want)
}

// IsIdle reports whether a response indicates the agent is waiting for
// input rather than working: a known idle phrase, or anything under 20
// characters that is not markup.
func IsIdle(text string) bool {
	text = strings.TrimSpace(text)
	for _, re := range idlePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return utf8.RuneCountInString(text) < 20 && !strings.HasPrefix(text, "<")
}

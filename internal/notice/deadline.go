package notice

import (
	"fmt"
	"regexp"
)

var deadlinePattern = regexp.MustCompile(`(?i)\bwithin\s+(\d+)\s+days`)

// ExtractDeadline returns "Within N days" for the first explicit deadline phrase.
func ExtractDeadline(text string) string {
	m := deadlinePattern.FindStringSubmatch(text)
	if len(m) != 2 {
		return DeadlineNotFound
	}
	return fmt.Sprintf("Within %s days", m[1])
}

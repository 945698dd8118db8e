package dsw

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"dswagg-backend/lib/htmlutil"
	"dswagg-backend/lib/timezone"
)

var headerDateRegex = regexp.MustCompile(`\d{4}\.\d{2}\.\d{2}`)
var timeTokenRegex = regexp.MustCompile(`\d{1,2}:\d{2}`)

var dashReplacer = strings.NewReplacer("–", "-", "—", "-")

// timeTokens returns every H:MM / HH:MM token in `text`, in order,
// ignoring matches glued to surrounding digits.
func timeTokens(text string) []string {
	var tokens []string
	for _, loc := range timeTokenRegex.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && isDigit(text[start-1]) {
			continue
		}
		if end < len(text) && isDigit(text[end]) {
			continue
		}
		tokens = append(tokens, text[start:end])
	}
	return tokens
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// eventISO combines the `YYYY.MM.DD` token of a grid header row with a
// start/end time pair into RFC3339 instants in the Warsaw timezone.
// A shift crossing midnight gets its end pushed to the next calendar
// day. DST offsets fall out of the timezone database.
func eventISO(headerText, startTok, endTok string) (string, string, error) {
	cleaned := htmlutil.CleanString(dashReplacer.Replace(headerText))

	day := headerDateRegex.FindString(cleaned)
	if day == "" {
		return "", "", fmt.Errorf("no date token in header %q", cleaned)
	}

	start, err := time.ParseInLocation("2006.01.02 15:04", day+" "+startTok, timezone.Location)
	if err != nil {
		return "", "", fmt.Errorf("parse start: %w", err)
	}
	end, err := time.ParseInLocation("2006.01.02 15:04", day+" "+endTok, timezone.Location)
	if err != nil {
		return "", "", fmt.Errorf("parse end: %w", err)
	}
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}

	return start.Format(time.RFC3339), end.Format(time.RFC3339), nil
}

package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Bucket keyword sets. Buckets are checked in a fixed priority order: event
// first, then expense, then navigation, then query. The first bucket with a
// keyword hit wins, even when a later bucket would also match.
var (
	eventKeywords      = []string{"schedule", "meeting", "event", "appointment", "calendar", "remind"}
	expenseKeywords    = []string{"expense", "spent", "spend", "paid", "bought", "purchase", "cost"}
	navigationKeywords = []string{"go to", "open", "navigate", "show me", "take me"}
	queryKeywords      = []string{"what", "when", "where", "how", "who", "tell me"}
)

// slotKeywords terminate free-text slot values: "title team meeting,
// description weekly standup" cuts the title at "description". Extraction by
// "keyword up to the next keyword" is inherently ambiguous when keywords
// appear out of the expected order; that ambiguity is part of the contract.
var slotKeywords = []string{"title", "description", "location", "date", "time", "category", "amount"}

var (
	timePattern     = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(AM|PM|am|pm)\b`)
	datePattern     = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}(?:/\d{2,4})?)\b`)
	amountPattern   = regexp.MustCompile(`\$?(\d+(?:\.\d+)?)`)
	slotKeywordExpr = buildSlotKeywordExpr()
)

var relativeDates = []string{"today", "tomorrow", "next week"}

var knownCategories = []string{"food", "groceries", "transport", "travel", "entertainment", "utilities", "shopping", "health"}

func buildSlotKeywordExpr() *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(` + strings.Join(slotKeywords, "|") + `)\b`)
}

// Extract turns free-text transcription into a structured Intent. It is pure
// and deterministic: identical input always yields an identical Intent, and
// unmatched input degrades to ActionUnknown instead of failing.
func Extract(text string) Intent {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, eventKeywords):
		return extractEvent(text, lower)
	case containsAny(lower, expenseKeywords):
		return extractExpense(text, lower)
	case containsAny(lower, navigationKeywords):
		return extractNavigation(text, lower)
	case containsAny(lower, queryKeywords):
		return Intent{Action: ActionQuery, Confidence: 0.6}
	default:
		return Intent{Action: ActionUnknown, Confidence: 0.2}
	}
}

func extractEvent(text, lower string) Intent {
	it := Intent{Action: ActionCreateEvent}

	// Slot extraction runs on the raw text to preserve proper nouns.
	it.Title = afterKeyword(text, "title")
	it.Description = afterKeyword(text, "description")
	it.Location = afterKeyword(text, "location")
	it.Time = extractTime(text)
	it.Date = extractDate(lower)
	it.IsAllDay = strings.Contains(lower, "all day") || strings.Contains(lower, "all-day")

	it.Confidence = 0.9
	if it.Title == "" {
		it.Confidence = 0.7
	}
	return it
}

func extractExpense(text, lower string) Intent {
	it := Intent{Action: ActionAddExpense}

	it.Amount = extractAmount(text)
	it.Category = extractCategory(text, lower)
	it.Description = afterKeyword(text, "description")
	it.Date = extractDate(lower)

	it.Confidence = 0.9
	if it.Amount == "" {
		it.Confidence = 0.7
	}
	return it
}

func extractNavigation(text, lower string) Intent {
	it := Intent{Action: ActionNavigate}

	for _, kw := range navigationKeywords {
		idx := strings.Index(lower, kw)
		if idx < 0 {
			continue
		}
		it.Location = cutAtSlotKeyword(strings.TrimSpace(text[idx+len(kw):]))
		break
	}

	it.Confidence = 0.85
	if it.Location == "" {
		it.Confidence = 0.6
	}
	return it
}

// afterKeyword returns the words following the keyword, up to the next slot
// keyword or the end of the string.
func afterKeyword(text, keyword string) string {
	expr := regexp.MustCompile(`(?i)\b` + keyword + `\b`)
	loc := expr.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	return cutAtSlotKeyword(text[loc[1]:])
}

func cutAtSlotKeyword(rest string) string {
	if loc := slotKeywordExpr.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	return strings.Trim(rest, " ,.")
}

// extractTime parses the first 12-hour clock reference. Minutes default to
// zero when omitted: "2 PM" yields "02:00 PM".
func extractTime(text string) string {
	m := timePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}

	hours, err := strconv.Atoi(m[1])
	if err != nil || hours < 1 || hours > 12 {
		return ""
	}

	minutes := 0
	if m[2] != "" {
		minutes, err = strconv.Atoi(m[2])
		if err != nil || minutes > 59 {
			return ""
		}
	}

	return fmt.Sprintf("%02d:%02d %s", hours, minutes, strings.ToUpper(m[3]))
}

// extractDate checks relative keywords before the absolute M/D[/YYYY]
// pattern; a relative keyword wins when both are present.
func extractDate(lower string) string {
	for _, rel := range relativeDates {
		if strings.Contains(lower, rel) {
			return rel
		}
	}
	if m := datePattern.FindStringSubmatch(lower); m != nil {
		return m[1]
	}
	return ""
}

func extractAmount(text string) string {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

func extractCategory(text, lower string) string {
	if explicit := afterKeyword(text, "category"); explicit != "" {
		// Keep only the first word: "category food for lunch" means food.
		return strings.Fields(explicit)[0]
	}
	for _, cat := range knownCategories {
		if strings.Contains(lower, cat) {
			return cat
		}
	}
	return ""
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

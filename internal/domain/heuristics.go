package domain

import (
	"fmt"
	"strings"
	"time"
)

var categoryKeywords = []struct {
	category TicketCategory
	words    []string
}{
	{TicketCategoryBilling, []string{"payment", "charge", "refund", "fare", "invoice", "billing", "card"}},
	{TicketCategoryTechnical, []string{"app", "crash", "login", "cancel", "error", "bug", "gps", "unable"}},
	{TicketCategoryComplaint, []string{"rude", "late", "unsafe", "complaint", "driver", "behavior", "dirty"}},
}

// InferCategory guesses a category from free text. It exists for backfilling
// rows created before categories were chosen explicitly.
func InferCategory(text string) TicketCategory {
	lower := strings.ToLower(text)
	for _, entry := range categoryKeywords {
		for _, word := range entry.words {
			if strings.Contains(lower, word) {
				return entry.category
			}
		}
	}
	return TicketCategoryGeneral
}

var priorityKeywords = []struct {
	priority TicketPriority
	words    []string
}{
	{TicketPriorityUrgent, []string{"accident", "emergency", "assault", "injury", "police", "danger", "sos"}},
	{TicketPriorityHigh, []string{"unsafe", "harass", "threat", "stranded", "lost item", "overcharged"}},
	{TicketPriorityLow, []string{"feedback", "suggestion", "question"}},
}

// SuggestPriority derives a display-only priority hint from keywords in the
// subject and message.
func SuggestPriority(subject, message string) TicketPriority {
	lower := strings.ToLower(subject + " " + message)
	for _, entry := range priorityKeywords {
		for _, word := range entry.words {
			if strings.Contains(lower, word) {
				return entry.priority
			}
		}
	}
	return TicketPriorityNormal
}

// TimeAgo renders the elapsed time between then and now as "Nm ago",
// "Nh ago" or "Nd ago".
func TimeAgo(then, now time.Time) string {
	minutes := int(now.Sub(then).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	switch {
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case minutes < 1440:
		return fmt.Sprintf("%dh ago", minutes/60)
	default:
		return fmt.Sprintf("%dd ago", minutes/1440)
	}
}

// WaitDuration renders how long a contact has waited as "7m" or "1h 5m".
func WaitDuration(startedAt, now time.Time) string {
	minutes := int(now.Sub(startedAt).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

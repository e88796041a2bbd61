package consolidation

import (
	"fmt"
	"strings"

	"github.com/aicfd/aicfd/internal/model"
)

// renderMarkdown produces the .ai/ companion document for a ConversationRecord:
// a short human-readable summary mirroring the AICF record's fields.
func renderMarkdown(record model.ConversationRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Conversation %s\n\n", record.ConversationID)
	fmt.Fprintf(&b, "- Started: %s\n", record.TimestampStart.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(&b, "- Ended: %s\n", record.TimestampEnd.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(&b, "- Platforms: %s\n", strings.Join(record.Platforms, ", "))
	fmt.Fprintf(&b, "- Messages: %d\n\n", record.MessageCount)

	fmt.Fprintf(&b, "## Working State\n\n%s\n\n", record.WorkingState)

	if len(record.Decisions) > 0 {
		b.WriteString("## Decisions\n\n")
		for _, d := range record.Decisions {
			fmt.Fprintf(&b, "- %s\n", d.Text)
		}
		b.WriteString("\n")
	}

	if len(record.UserIntents) > 0 {
		b.WriteString("## User Intents\n\n")
		for _, i := range record.UserIntents {
			fmt.Fprintf(&b, "- %s (confidence %.2f)\n", i.Text, i.Confidence)
		}
		b.WriteString("\n")
	}

	if len(record.TechnicalWork) > 0 {
		b.WriteString("## Technical Work\n\n")
		for _, w := range record.TechnicalWork {
			fmt.Fprintf(&b, "- [%s] %s\n", w.Category, w.Text)
		}
		b.WriteString("\n")
	}

	return b.String()
}

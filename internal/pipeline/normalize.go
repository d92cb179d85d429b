package pipeline

import "strings"

const truncationMarker = "\n\n[... content truncated ...]"

// NormalizeContent merges the report body with any extracted attachment
// text and bounds the whole to maxChars. Every stage reads this single
// normalized view instead of the raw submission.
func NormalizeContent(reportText, attachmentsText string, maxChars int) string {
	content := strings.TrimSpace(reportText)
	if attachments := strings.TrimSpace(attachmentsText); attachments != "" {
		content += "\n\n[ATTACHMENTS]\n" + attachments
	}
	return TruncateText(content, maxChars)
}

// TruncateText bounds text to maxChars, appending a marker when content
// was dropped. A non-positive maxChars disables truncation.
func TruncateText(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + truncationMarker
}

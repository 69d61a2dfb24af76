package conversation

import "fmt"

const (
	msgMenuAudio       = "🎙️ Please listen and reply with a number (1–9) to select your language."
	msgInvalidOption   = "❌ Invalid option. Please reply with a valid number."
	msgVoiceReady      = "🎤 You can now send voice notes to ask questions about the prescription."
	noSummaryAvailable = "No summary available"
)

func msgTranscribed(transcript string) string {
	return fmt.Sprintf("🗨️ Transcribed: %s\n\n💡 Processing your question...", transcript)
}

func msgAnswerAudio(label string) string {
	return fmt.Sprintf("🤖 Here's the answer to your question in %s:", label)
}

func msgAnswerText(label, answer string) string {
	return fmt.Sprintf("🤖 Here's the answer to your question in %s:\n\n%s", label, answer)
}

func msgSummaryAudio(label string) string {
	return fmt.Sprintf("🎧 Here's your summary audio in %s:", label)
}

func msgSummaryText(label, summary string) string {
	return fmt.Sprintf("📝 Here's your summary in %s:\n\n%s", label, summary)
}

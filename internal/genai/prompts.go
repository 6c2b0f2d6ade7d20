package genai

// SystemPrompt steers SDK providers toward short travel answers. The HTTP
// provider sends the user's text as is.
const SystemPrompt = `You are a friendly travel assistant inside a LINE chat.
Answer the user's travel question in the language they used.
Keep the answer short and practical: a few sentences or a short list.
Plain text only, no markdown tables or headings.`

// Fixed texts returned by the Gateway. The Thai wording is user-facing.
const (
	mockPrefix     = "(Mock) ตอบกลับจาก Gemini สำหรับ: "
	fallbackPrefix = "(Mock) Gemini ไม่พร้อมใช้งาน: "
)

// MockAnswer is returned when no provider is configured.
func MockAnswer(prompt string) string {
	return mockPrefix + prompt
}

// FallbackAnswer is returned when every provider failed.
func FallbackAnswer(diagnostic string) string {
	return fallbackPrefix + diagnostic
}

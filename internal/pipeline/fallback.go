package pipeline

const (
	HandlerFallback = "unknown"

	HelpText = `I'm not sure how to handle that question. I can help you with:

🌤️ **Weather queries**: Ask about weather in any city
   Example: 'What's the weather in Tokyo?'

📄 **Document questions**: Ask about uploaded PDF content
   Example: 'What does the document say about X?'

Please try rephrasing your question!`
)

// HandleFallback returns the help text. It makes no calls and never succeeds.
func HandleFallback(string) Outcome {
	return Outcome{
		Response:    HelpText,
		Sources:     []string{},
		HandlerUsed: HandlerFallback,
	}
}

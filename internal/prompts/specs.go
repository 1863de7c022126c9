package prompts

const classifySpec = `Respond with a JSON object matching this exact structure:

{
  "category": "<weather|document|unknown>",
  "rationale": "<explanation>",
  "entity": "<city or topic>"
}

Field constraints:
- category: exactly one of "weather", "document", or "unknown".
- rationale: brief explanation of why this category was chosen.
- entity: the city name for weather queries, the main topic for document
  queries, and an empty string otherwise.

Always respond with valid JSON, no markdown fencing.`

const weatherSpec = `Provide a natural, conversational response that answers the question using the weather data.
Include relevant emojis to make the response engaging.
If the question asks for something not in the data, politely explain what information is available.`

const documentSpec = `Instructions:
1. Answer the question based ONLY on the provided context
2. If the context doesn't contain enough information to answer fully, say so
3. Quote relevant parts of the context when helpful
4. Be concise but thorough
5. If the question cannot be answered from the context, explain what information is available instead`

var specs = map[Stage]string{
	StageClassify: classifySpec,
	StageWeather:  weatherSpec,
	StageDocument: documentSpec,
}

// Spec returns the fixed output specification for a stage. Specs are not overridable.
func Spec(stage Stage) (string, error) {
	text, ok := specs[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}

package prompts

const classifyInstructions = `You are a query router that classifies user questions into categories.

Analyze the user's question and determine if it's asking about:
1. weather: current weather, temperature, forecast, or climate conditions for a location.
   Examples: "What's the weather in London?", "Is it raining in Tokyo?", "Temperature in Paris"
2. document: a document, asking to find information, summarize content, or answer from uploaded files.
   Examples: "What does the document say about X?", "Summarize the PDF", "Find information about Y in the file"
3. unknown: questions that fit neither category or are unclear.

For weather queries, extract the city or location name.
For document queries, extract the main topic or keywords.`

const weatherInstructions = `You are a helpful weather assistant. Based on the weather data provided,
answer the user's question in a friendly and informative way.`

const documentInstructions = `You are a helpful assistant that answers questions based on the provided context from uploaded documents.`

var instructions = map[Stage]string{
	StageClassify: classifyInstructions,
	StageWeather:  weatherInstructions,
	StageDocument: documentInstructions,
}

// Instructions returns the built-in instructions for a stage.
func Instructions(stage Stage) (string, error) {
	text, ok := instructions[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}

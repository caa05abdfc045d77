// Package prompt builds message sequences for the upstream provider
// using one of three prompting techniques. It is a pure string-building
// utility with no I/O.
package prompt

import "github.com/promptgate-ai/promptgate/pkg/models"

// Supported prompting techniques.
const (
	TechniqueFewShot        = "few_shot"
	TechniqueSimple         = "simple"
	TechniqueChainOfThought = "chain_of_thought"
)

const systemPrompt = `You are a helpful assistant that answers questions accurately and concisely. Always respond with a JSON object containing your answer.`

// Build returns messages for the given question using the requested
// technique. Unknown techniques fall back to few-shot.
func Build(question, technique string) []models.ChatMessage {
	switch technique {
	case TechniqueSimple:
		return buildSimple(question)
	case TechniqueChainOfThought:
		return buildChainOfThought(question)
	default:
		return buildFewShot(question)
	}
}

// buildFewShot seeds the conversation with worked examples so the model
// keeps the `{"answer": ...}` output shape.
func buildFewShot(question string) []models.ChatMessage {
	return []models.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: "What is the capital of France?"},
		{Role: "assistant", Content: `{"answer": "Paris"}`},
		{Role: "user", Content: "What is 2 + 2?"},
		{Role: "assistant", Content: `{"answer": "4"}`},
		{Role: "user", Content: "Who wrote Romeo and Juliet?"},
		{Role: "assistant", Content: `{"answer": "William Shakespeare"}`},
		{Role: "user", Content: question},
	}
}

func buildSimple(question string) []models.ChatMessage {
	return []models.ChatMessage{
		{Role: "system", Content: systemPrompt + "\nRespond with JSON in this format: {\"answer\": \"your answer here\"}"},
		{Role: "user", Content: question},
	}
}

func buildChainOfThought(question string) []models.ChatMessage {
	enhanced := systemPrompt + "\n\nWhen answering complex questions, break down your reasoning step by step.\nAlways provide your final answer in JSON format: {\"answer\": \"your answer\", \"reasoning\": \"brief explanation\"}"
	return []models.ChatMessage{
		{Role: "system", Content: enhanced},
		{Role: "user", Content: question},
	}
}

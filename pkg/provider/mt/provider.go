// Package mt defines the machine-translation provider interface used by the
// translate pipeline.
package mt

import (
	"context"
	"fmt"
)

// Translator renders recognized text into another language. Implementations
// live in subpackages and are selected by name through the provider registry
// at startup.
type Translator interface {
	// Translate returns text rendered in the target language. source and
	// target are language names or codes (e.g., "en", "Spanish"); an empty
	// source lets the backend detect the input language. Errors are treated
	// as recoverable per-utterance by the caller.
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// SystemPrompt builds the translation instruction shared by the LLM-backed
// translators. The model must answer with the translation alone so the output
// can be spoken verbatim.
func SystemPrompt(source, target string) string {
	if source == "" {
		return fmt.Sprintf("You are a professional translator. Translate the user's text into %s. "+
			"Reply with the translation only, no explanations or quotation marks.", target)
	}
	return fmt.Sprintf("You are a professional translator. Translate the user's text from %s into %s. "+
		"Reply with the translation only, no explanations or quotation marks.", source, target)
}

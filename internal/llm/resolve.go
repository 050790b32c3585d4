package llm

import "fmt"

// Resolve selects a provider by name. An unknown provider is a configuration
// error: it surfaces before any workflow state is constructed.
func Resolve(name string) (Provider, error) {
	switch name {
	case "anthropic":
		return NewAnthropic()
	case "openai":
		return NewOpenAI()
	default:
		return nil, fmt.Errorf("invalid provider %q: must be one of anthropic, openai", name)
	}
}

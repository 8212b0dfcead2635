// Package domain contains the core business entities and value objects.
// These structs are framework-agnostic and represent the heart of the application.
package domain

// ProviderType identifies an LLM backend the pipeline can talk to.
type ProviderType string

const (
	ProviderLocal  ProviderType = "local"
	ProviderGemini ProviderType = "gemini"
	ProviderAzure  ProviderType = "azure"
	ProviderOpenAI ProviderType = "openai"
)

// SelectionOrder is the order in which providers are considered at startup.
// Free/local first, then fastest-to-configure, then production-grade, then last resort.
var SelectionOrder = []ProviderType{
	ProviderLocal,
	ProviderGemini,
	ProviderAzure,
	ProviderOpenAI,
}

// String implements fmt.Stringer.
func (p ProviderType) String() string {
	return string(p)
}

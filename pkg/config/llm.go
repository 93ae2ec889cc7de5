package config

// LLMConfig holds the model identifiers passed to the LLM collaborator.
// Kept as a pair, not a single default, so ContextMode fully determines
// both the prompt templates and the model (DESIGN NOTES, "Full-context
// toggle").
type LLMConfig struct {
	ModelDefault     string `yaml:"model_default"`
	ModelFullContext string `yaml:"model_full_context"`

	// SidecarAddr is the gRPC address of the out-of-core LLM vendor
	// sidecar (see pkg/llm).
	SidecarAddr string `yaml:"sidecar_addr"`
}

// DefaultLLMConfig returns the built-in LLM defaults.
func DefaultLLMConfig() *LLMConfig {
	return &LLMConfig{
		ModelDefault:     "gemini-2.0-flash",
		ModelFullContext: "gemini-2.0-flash-exp",
		SidecarAddr:      "localhost:50051",
	}
}

// Package constants holds stable identifiers and default endpoints for the
// services aism tracks.
package constants

// Stable service identifiers. These are the keys used in the status map, the
// configuration file, and the HTTP API. They never change; display names may.
const (
	ServiceLLM      = "llm"
	ServiceMCP      = "mcp"
	ServiceTTS      = "tts"
	ServiceImageGen = "imagegen"
	ServiceVEBridge = "vebridge"
)

// Default endpoints for locally-installed services. Each can be overridden in
// the configuration file.
const (
	DefaultLLMEndpoint      = "http://localhost:11434"
	DefaultMCPEndpoint      = "http://localhost:8080"
	DefaultTTSEndpoint      = "http://localhost:5002"
	DefaultImageGenEndpoint = "http://localhost:7860"
	DefaultVEBridgeEndpoint = "http://localhost:9777"
)

// Package llm wraps the generation provider's chat completion API.
//
// The client speaks the OpenAI-compatible chat schema (OpenRouter by
// default): Complete for prose, CompleteJSON for structured responses with
// response_format json_object. Bounded retry covers transient HTTP
// failures (429/5xx/timeouts) honoring Retry-After; everything else fails
// fast so the pipeline's scene- and job-level recovery stays in charge.
//
// DecodeLLMJSON tolerates the formatting quirks models actually produce:
// fenced code blocks, prose wrapping, and either object or list top-level
// shapes.
package llm

// Package langchain adapts langchaingo models to the ai interfaces.
//
// Both the Ollama and the OpenAI-compatible providers are thin
// constructors around this package: they build a langchaingo client for
// their backend and hand it to NewEmbedder and NewGenerator. Error
// classification lives here too, so every backend reports unreachable
// services and missing models the same way.
package langchain

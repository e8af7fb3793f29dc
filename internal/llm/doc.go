// Package llm provides chat-completion clients for the language models that
// turn ledger questions into structured intents. It supports Groq, OpenAI and
// Anthropic over plain HTTPS, with rate limiting and bounded retries for
// transient failures.
package llm

package scholar

import "errors"

var (
	// ErrSessionNotFound is returned when a session ID does not exist.
	ErrSessionNotFound = errors.New("scholar: session not found")

	// ErrNoDocuments is returned when a task needs uploaded documents and the
	// session has none.
	ErrNoDocuments = errors.New("scholar: no documents in session")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("scholar: unsupported document format")

	// ErrParsingFailed is returned when document parsing fails.
	ErrParsingFailed = errors.New("scholar: parsing failed")

	// ErrEmbeddingFailed is returned when embedding generation fails.
	ErrEmbeddingFailed = errors.New("scholar: embedding generation failed")

	// ErrLLMRequestFailed is returned when an LLM request fails.
	ErrLLMRequestFailed = errors.New("scholar: LLM request failed")

	// ErrUnknownTask is returned for task names outside the agent catalogue.
	ErrUnknownTask = errors.New("scholar: unknown task")

	// ErrQuestionRequired is returned when the chat task is run without a
	// question.
	ErrQuestionRequired = errors.New("scholar: chat needs a question")

	// ErrNoOutput is returned when translation is requested before any agent
	// task produced output in the session.
	ErrNoOutput = errors.New("scholar: no agent output to translate")

	// ErrNoInsights is returned when a session holds no visual insights.
	ErrNoInsights = errors.New("scholar: no visual insights")

	// ErrNoResults is returned when retrieval yields no matching chunks.
	ErrNoResults = errors.New("scholar: no results found")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("scholar: invalid configuration")
)

// Package chat answers questions within a conversation using retrieved
// document content.
//
// For every question the Orchestrator retrieves the most relevant chunks,
// renders them into a reference block, adds the recent history of the
// session and asks the generation provider for an answer. The question and
// the answer, with the documents it drew on, are appended to the session
// together. Answers are available whole (Ask) or as a stream of events
// (AskStream).
package chat

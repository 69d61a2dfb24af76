// Package assistant is the language-model boundary. It summarizes a
// prescription image into plain spoken instructions, optionally refines the
// summary through a structuring service, and answers follow-up questions
// with the stored summary as context. Any OpenAI-compatible endpoint works;
// the default base URL points at Groq.
package assistant

// Package transcription implements the speech-to-text client and the
// Transcriber used for voice-query turns. The client uploads a normalized
// WAV file as multipart form data, retries transient failures with
// exponential backoff and bounds concurrent requests with a semaphore. The
// Transcriber treats a missing transcript as a soft failure and substitutes
// a fixed fallback sentence.
package transcription

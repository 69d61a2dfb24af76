// Package text prepares reply text for speech synthesis.
// It splits arbitrary-length text into sentence-respecting chunks bounded by
// the TTS engine's input limit, and rewrites ASCII digits into the native
// numeral script of the target language.
package text

// Package speech turns reply text into a single playable audio artifact.
//
// The Synthesizer localizes digits, splits the text into chunks the TTS
// engine accepts, synthesizes every chunk in order, encodes each returned
// segment to MP3, concatenates the segments into one file and publishes it.
// Any failure aborts the whole job; a partial artifact is never published.
package speech

// Package audio handles the audio byte formats that flow between the speech
// services and the transcoder. It unwraps WAV payloads returned by TTS engines
// into raw PCM and probes staged WAV inputs and final MP3 artifacts.
package audio

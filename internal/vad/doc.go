// Package vad implements voice activity detection over staged voice notes,
// so silent recordings can be answered without a speech-to-text call.
package vad

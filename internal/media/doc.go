// Package media stages inbound media for the speech services. It downloads
// gateway media to private work files, drives the external ffmpeg process that
// normalizes, encodes and concatenates audio, and reports failures as
// FetchError or TranscodeError.
package media

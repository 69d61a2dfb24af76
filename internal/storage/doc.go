// Package storage defines the FileStore interface used to hold synthesized
// audio artifacts and the Publisher that turns a stored artifact into a URL
// the messaging gateway can fetch.
//
// Two backends exist: Local, a directory the HTTP server exposes under
// /static/, and S3Store, any S3-compatible bucket behind a public base URL.
package storage

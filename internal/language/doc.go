// Package language resolves the numeric language menu and translates
// summaries into the selected language. Translation failures never block a
// turn: the Translator hands back the original text instead.
package language

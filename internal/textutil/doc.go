// Package textutil holds the word-level text helpers shared by the
// reconciler and the CLI: accent and case folding, word tokenization,
// bag-of-words similarity and file name stems derived from titles.
package textutil

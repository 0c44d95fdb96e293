// Package normalisers holds the text normalisers shared by the source
// loaders. Each normaliser turns one markup format into plain text and
// derives a document title.
//
// Normalisers are pure functions of their input. Loaders choose one by
// file extension or content type.
package normalisers

// Package html extracts readable text from HTML and XHTML, stripping tags,
// scripts and styles and decoding entities. The web loader uses it when
// readability finds no article, and the e-book loader uses it for every
// XHTML spine item.
package html

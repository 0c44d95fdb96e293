// Package loaders turns configured reference sources into documents.
//
// Each source type has one loader variant in its own subpackage:
//
//   - pdf: PDF books through pdftotext
//   - epub: EPUB e-books read from the zip container
//   - web: web pages through readability
//   - wikipedia: article extracts from the MediaWiki API
//   - text: plain text and Markdown notes
//
// The Registry dispatches a SourceDescriptor to the loader registered for
// its type. The Catalog expands the configured directories, URLs and topics
// into descriptors.
package loaders

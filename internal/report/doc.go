// Package report renders scan runs for people and tools.
//
// MarkdownWriter produces a shareable run report and a history table.
// JSONWriter produces the same content as JSON for tool integration.
// Both implement Writer.
package report

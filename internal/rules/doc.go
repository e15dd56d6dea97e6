// Package rules discovers YARA rule files and prepares the include manifest
// the scanner is invoked with.
//
// A rule is one file under the rules directory whose name matches *.yar*.
// The rule name is the file base name without its extension. Selecting
// rules for a run writes an "@include.list" manifest into the rules
// directory with one include directive per selected rule; the manifest path
// is the handle passed to the scanner for every artifact of the run.
package rules

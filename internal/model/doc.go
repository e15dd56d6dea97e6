// Package model defines the data structures shared by the sigscan packages.
//
// This package contains the following main types:
//   - Item: an entry of the item catalog that can be exported and scanned
//   - Rule and RuleSet: YARA rule files and the selection used for a run
//   - ExportedArtifact: an item binary materialized in the scratch directory
//   - ScanOutcome: the result of scanning one artifact
//   - Summary: the aggregate counters of a pipeline run
//   - RunRecord: a persisted description of a finished run
//
// Models live in their own package so that the pipeline, catalog, rules,
// yara and report packages can share them without import cycles.
package model

package rules

import "errors"

var (
	// ErrNoRulesFound is returned when the rules directory holds no rule files.
	ErrNoRulesFound = errors.New("no YARA rule files found")

	// ErrUnknownRule is returned when a selected rule name does not exist.
	ErrUnknownRule = errors.New("unknown YARA rule")

	// ErrNoRulesSelected is returned when a manifest is requested for an
	// empty selection.
	ErrNoRulesSelected = errors.New("no YARA rules selected")
)

// Package yara runs the external yara executable against exported
// artifacts.
package yara

// Package config provides the configuration of sigscan: scanner and rule
// locations, pipeline sizing, journal and scratch paths, annotation
// settings and the optional object store holding item binaries.
package config

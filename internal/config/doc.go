// Package config defines the pipeline settings and provides helpers to load,
// validate and save them in YAML format.
//
// Every repository-relative path, the CDN location, the compiler command and
// the ordered package and helper-variant lists live here, so the pipeline
// stages receive them as data instead of hard-coding product names.
package config

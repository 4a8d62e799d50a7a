// Package assets holds the files compiled into the faabd binary.
package assets

import (
	"embed"
)

//go:embed fs/*
var FS embed.FS

//go:embed templates/*
var Templates embed.FS

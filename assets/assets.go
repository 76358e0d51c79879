// Package assets holds the files shipped inside the binaries.
package assets

import "embed"

//go:embed templates/email/*
var EmailTemplates embed.FS

// EmailTemplatesDir is the root of EmailTemplates.
const EmailTemplatesDir = "templates/email"

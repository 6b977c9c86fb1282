package src

import "embed"

//go:embed html
var webUI embed.FS

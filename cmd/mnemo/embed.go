package main

import (
	"embed"
	"io/fs"

	"github.com/lazypower/mnemo/internal/server"
)

// The ui directory is populated by the client build, which copies its
// output here. The checked-in index.html is a placeholder.
//
//go:embed all:ui
var uiDist embed.FS

func init() {
	sub, err := fs.Sub(uiDist, "ui")
	if err != nil {
		return
	}
	server.SetUI(sub)
}

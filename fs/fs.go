package appfs

import (
	"embed"
	"io/fs"
)

//go:embed migrations all:assets
var FS embed.FS

// EmailTemplates roots the FS at the email template directory.
func EmailTemplates() fs.FS {
	sub, err := fs.Sub(FS, "assets/templates/email")
	if err != nil {
		panic(err)
	}
	return sub
}

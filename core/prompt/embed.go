package prompt

import (
	"embed"
	"io/fs"
)

//go:embed templates
var embedded embed.FS

// Embedded returns the templates shipped inside the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

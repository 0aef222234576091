package reader

import (
	"embed"
	"html/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Templates parses the page shell and the OTP view fragment.
// Names are the file base names: "shell.tmpl" and "view.tmpl".
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.tmpl")
}

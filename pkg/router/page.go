package router

import (
	"html/template"
	"io"
)

// Page is the HTML document a live route is served in.
type Page struct {
	Title       string
	Path        string
	Codec       string
	AssetPrefix string
	Nonce       string
	Body        string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="{{.AssetPrefix}}kudos.css">
</head>
<body>
<main id="lv-root" data-lv-path="{{.Path}}" data-lv-vsn="{{.Codec}}">{{.Body}}</main>
<script nonce="{{.Nonce}}" src="{{.AssetPrefix}}kudos.js"></script>
</body>
</html>
`))

func writePage(w io.Writer, p Page) error {
	return pageTemplate.Execute(w, struct {
		Page
		Body template.HTML
	}{p, template.HTML(p.Body)})
}

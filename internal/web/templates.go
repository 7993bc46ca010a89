package web

import (
	"html/template"
	"log/slog"

	"git.home.luguber.info/inful/docserve/internal/logfields"
)

// The error and search pages are self-contained; everything else rendered by
// docserve lives with its handler. The h1 carries id="crate-title" so tests
// and scrapers can identify the page title element.

var errorPageTemplate = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}} - Docserve</title>
</head>
<body>
  <main class="container error-page">
    <h1 id="crate-title">{{.Title}}</h1>
    <p class="description">{{.Message}}</p>
  </main>
</body>
</html>
`))

var searchPageTemplate = template.Must(template.New("search").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}} - Docserve</title>
</head>
<body>
  <main class="container search-page">
    <h1 id="crate-title">{{.Title}}</h1>
    {{if .Query}}<p class="search-query">Results for &quot;{{.Query}}&quot;</p>{{end}}
    <ul class="releases">
      {{range .Results}}
      <li class="release">
        <a href="/{{.Name}}/{{.Version}}">{{.Name}}-{{.Version}}</a>
        <span class="description">{{.Description}}</span>
      </li>
      {{end}}
    </ul>
  </main>
</body>
</html>
`))

type errorPageData struct {
	Title   string
	Message string
}

func logTemplateError(page string, err error) {
	slog.Error("template render failed", slog.String("page", page), logfields.Error(err))
}

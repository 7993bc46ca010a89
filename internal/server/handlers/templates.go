package handlers

import (
	"html/template"
	"log/slog"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"git.home.luguber.info/inful/docserve/internal/logfields"
)

// Handler-owned page templates. The error and search pages live in the web
// package; everything here renders successful responses only.

var numberPrinter = message.NewPrinter(language.English)

var pageFuncs = template.FuncMap{
	// groups digits for display, e.g. 1234567 -> "1,234,567"
	"num": func(n int64) string {
		return numberPrinter.Sprintf("%d", n)
	},
}

var homeTemplate = template.Must(template.New("home").Funcs(pageFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Docserve</title>
</head>
<body>
  <main class="container home">
    <h1 id="crate-title">Docserve</h1>
    <form action="/releases/search" method="get" class="search">
      <input type="search" name="query" placeholder="Search releases">
      <button type="submit">Search</button>
    </form>
    <h2>Recent releases</h2>
    <ul class="releases">
      {{range .Recent}}
      <li class="release">
        <a href="/{{.CrateName}}/{{.Version}}">{{.CrateName}}-{{.Version}}</a>
        <span class="description">{{.Description}}</span>
      </li>
      {{end}}
    </ul>
  </main>
</body>
</html>
`))

var crateTemplate = template.Must(template.New("crate").Funcs(pageFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.Crate.Name}} {{.Release.Version}} - Docserve</title>
</head>
<body>
  <main class="container crate">
    <h1 id="crate-title">{{.Crate.Name}}-{{.Release.Version}}</h1>
    <p class="description">{{.Release.Description}}</p>
    <dl class="facts">
      <dt>Downloads</dt><dd class="downloads">{{num .Release.Downloads}}</dd>
      <dt>Released</dt><dd>{{.Release.ReleaseTime.Format "2006-01-02"}}</dd>
      {{if .Release.Yanked}}<dt>Yanked</dt><dd>yes</dd>{{end}}
    </dl>
    {{if .Owners}}
    <h2>Owners</h2>
    <ul class="owners">
      {{range .Owners}}<li><a href="/releases/owner/{{.Login}}">{{.Login}}</a></li>{{end}}
    </ul>
    {{end}}
    <h2>Versions</h2>
    <ul class="versions">
      {{range .Releases}}
      <li{{if .Yanked}} class="yanked"{{end}}><a href="/crate/{{$.Crate.Name}}/{{.Version}}">{{.Version}}</a></li>
      {{end}}
    </ul>
    <div class="readme">{{.Readme}}</div>
  </main>
</body>
</html>
`))

var buildsTemplate = template.Must(template.New("builds").Funcs(pageFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.Crate}} {{.Version}} builds - Docserve</title>
</head>
<body>
  <main class="container builds">
    <h1 id="crate-title">{{.Crate}}-{{.Version}} builds</h1>
    <ul class="builds">
      {{range .Builds}}
      <li class="build {{.Status}}">
        <a href="/crate/{{$.Crate}}/{{$.Version}}/builds/{{.ID}}">#{{.ID}}</a>
        <span class="status">{{.Status}}</span>
        <time>{{.BuildTime.Format "2006-01-02 15:04"}}</time>
      </li>
      {{end}}
    </ul>
  </main>
</body>
</html>
`))

var buildDetailTemplate = template.Must(template.New("build").Funcs(pageFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Build #{{.Build.ID}} - Docserve</title>
</head>
<body>
  <main class="container build">
    <h1 id="crate-title">Build #{{.Build.ID}}</h1>
    <p class="status">{{.Build.Status}}</p>
    <pre class="output">{{.Build.Output}}</pre>
  </main>
</body>
</html>
`))

// renderPage executes a page template. Template failures after the header
// has been written can only be logged.
func renderPage(w http.ResponseWriter, tmpl *template.Template, data any) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		slog.Error("page render failed", slog.String("template", tmpl.Name()), logfields.Error(err))
	}
	return nil
}

// Package templates holds the dashboard's HTML components. Every component
// is a templ.Component, so handlers render full pages and HTMX fragments
// the same way.
package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// HTMXSrc is the script the layout loads for partial page updates.
const HTMXSrc = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"

// NavLink is one sidebar entry.
type NavLink struct {
	Group  string
	Label  string
	Href   string
	Active bool
}

// printer writes markup and remembers the first write error.
type printer struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newPrinter(ctx context.Context, w io.Writer) *printer {
	return &printer{ctx: ctx, w: w}
}

func (p *printer) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

// text writes escaped character data.
func (p *printer) text(s string) {
	p.raw(templ.EscapeString(s))
}

// attr writes ` name="value"` with the value escaped.
func (p *printer) attr(name, value string) {
	p.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// href writes a sanitized link attribute.
func (p *printer) href(name, url string) {
	p.attr(name, string(templ.URL(url)))
}

func (p *printer) boolAttr(name string, on bool) {
	if on {
		p.raw(" " + name)
	}
}

func (p *printer) component(c templ.Component) {
	if p.err != nil || c == nil {
		return
	}
	p.err = c.Render(p.ctx, p.w)
}

func itoa(n int) string { return strconv.Itoa(n) }

// Layout wraps body in the page shell: stylesheet, sidebar, main area.
func Layout(title string, nav []NavLink, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)
		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		p.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.raw(`<title>`)
		p.text(title + " | Opsboard")
		p.raw(`</title><link rel="stylesheet" href="/static/app.css">`)
		p.raw(`<script defer`)
		p.attr("src", HTMXSrc)
		p.raw(`></script></head><body hx-boost="true"><div class="shell">`)

		p.raw(`<nav class="sidebar"><a class="brand" href="/">Opsboard</a>`)
		group := ""
		for _, link := range nav {
			if link.Group != group {
				if group != "" {
					p.raw(`</ul>`)
				}
				group = link.Group
				p.raw(`<h2 class="nav-group">`)
				p.text(group)
				p.raw(`</h2><ul>`)
			}
			p.raw(`<li><a`)
			p.href("href", link.Href)
			if link.Active {
				p.raw(` class="active" aria-current="page"`)
			}
			p.raw(`>`)
			p.text(link.Label)
			p.raw(`</a></li>`)
		}
		if group != "" {
			p.raw(`</ul>`)
		}
		p.raw(`</nav><main class="content" id="main"><div id="alerts" role="alert" aria-live="polite"></div>`)
		p.component(body)
		p.raw(`</main></div></body></html>`)
		return p.err
	})
}

// ErrorAlert is the inline error box shown for failed HTMX requests.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)
		p.raw(`<div class="alert alert-error" role="alert"><strong>`)
		p.text(message)
		p.raw(`</strong>`)
		if action != "" {
			p.raw(`<p>`)
			p.text(action)
			p.raw(`</p>`)
		}
		if code != "" {
			p.raw(`<small class="code">`)
			p.text(code)
			p.raw(`</small>`)
		}
		p.raw(`</div>`)
		return p.err
	})
}

// FieldErrors lists per-field messages next to a form.
func FieldErrors(fields map[string]string, order []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)
		p.raw(`<ul class="field-errors">`)
		for _, name := range order {
			msg, ok := fields[name]
			if !ok {
				continue
			}
			p.raw(`<li`)
			p.attr("data-field", name)
			p.raw(`>`)
			p.text(msg)
			p.raw(`</li>`)
		}
		p.raw(`</ul>`)
		return p.err
	})
}

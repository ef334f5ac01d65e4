package templates

import (
	"context"
	"io"
	"net/url"
	"slices"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/opsboard/internal/backend"
	"github.com/JonMunkholm/opsboard/internal/core"
	"github.com/JonMunkholm/opsboard/internal/export"
	"github.com/JonMunkholm/opsboard/internal/screens"
	"github.com/JonMunkholm/opsboard/internal/table"
)

// ScreenParams is everything a list screen renders.
type ScreenParams struct {
	Screen     screens.Definition
	Query      table.Query
	Rows       []backend.Record
	Pagination table.Pagination
	State      table.ContentState
	Err        error
	Stats      []core.StatTile
	// ActiveFilters counts filters that restrict the rows.
	ActiveFilters int
}

// ScreenURL is the dashboard link that reproduces q on a screen.
func ScreenURL(key string, q table.Query) string {
	return "/screens/" + url.PathEscape(key) + "?" + q.Encode().Encode()
}

// ActionURL is ScreenURL plus one table action (sortby, goto, rows, unset)
// that the server replays against q.
func ActionURL(key string, q table.Query, action, value string) string {
	v := q.Encode()
	v.Set(action, value)
	return "/screens/" + url.PathEscape(key) + "?" + v.Encode()
}

// ExportURL is the CSV download link for q.
func ExportURL(key string, q table.Query, scope core.ExportScope) string {
	v := q.Encode()
	v.Set("scope", string(scope))
	return "/api/screens/" + url.PathEscape(key) + "/export?" + v.Encode()
}

// ScreenView renders a full list page.
func ScreenView(nav []NavLink, params ScreenParams) templ.Component {
	return Layout(params.Screen.Label, nav, ScreenPartial(params))
}

// ScreenPartial renders the swappable body of a list page.
func ScreenPartial(params ScreenParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)
		def := params.Screen

		p.raw(`<section class="screen" id="screen"><header class="screen-header"><h1>`)
		p.text(def.Label)
		p.raw(`</h1><div class="actions">`)
		p.raw(`<a class="button refresh" hx-target="#screen" hx-swap="outerHTML" hx-indicator="#screen"`)
		p.href("hx-get", ScreenURL(def.Key, params.Query))
		p.href("href", ScreenURL(def.Key, params.Query))
		p.raw(`><span class="spin-icon" aria-hidden="true">&#8635;</span> Refresh</a>`)
		p.raw(`<a class="button" hx-boost="false"`)
		p.href("href", ExportURL(def.Key, params.Query, core.ExportPage))
		p.raw(`>Download page</a><a class="button primary" hx-boost="false"`)
		p.href("href", ExportURL(def.Key, params.Query, core.ExportAll))
		p.raw(`>Download all</a></div></header>`)

		if len(params.Stats) > 0 {
			p.component(StatStrip(params.Stats))
		}
		p.component(toolbar(def, params.Query, params.ActiveFilters))
		p.component(dataTable(params))
		p.component(pager(def.Key, params.Query, params.Pagination))
		p.raw(`</section>`)
		return p.err
	})
}

// StatStrip renders the statistics tiles above a table.
func StatStrip(tiles []core.StatTile) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)
		p.raw(`<dl class="stats">`)
		for _, t := range tiles {
			p.raw(`<div class="stat"><dt>`)
			p.text(t.Label)
			p.raw(`</dt><dd>`)
			p.text(t.Value)
			p.raw(`</dd></div>`)
		}
		p.raw(`</dl>`)
		return p.err
	})
}

func toolbar(def screens.Definition, q table.Query, active int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)
		p.raw(`<form class="toolbar" hx-target="#screen" hx-swap="outerHTML" hx-trigger="change, submit"`)
		p.href("hx-get", "/screens/"+url.PathEscape(def.Key))
		p.href("action", "/screens/"+url.PathEscape(def.Key))
		p.raw(`>`)

		p.raw(`<input type="search" name="search" class="search"`)
		p.attr("value", q.Search)
		p.attr("placeholder", def.SearchPlaceholder)
		p.raw(`>`)

		for _, cfg := range def.Filters {
			p.component(filterControl(cfg, q.Filters[cfg.Key]))
		}

		p.raw(`<label class="rows-per-page">Rows <select name="rows">`)
		for _, n := range table.RowsPerPageOptions {
			p.raw(`<option`)
			p.attr("value", itoa(n))
			p.boolAttr("selected", n == q.Limit)
			p.raw(`>`)
			p.text(itoa(n))
			p.raw(`</option>`)
		}
		p.raw(`</select></label>`)

		if q.Sort.Header != "" {
			p.raw(`<input type="hidden" name="sort"`)
			p.attr("value", q.Sort.Header)
			p.raw(`><input type="hidden" name="dir"`)
			p.attr("value", string(q.Sort.Order))
			p.raw(`>`)
		}
		p.raw(`<button type="submit" name="clear" value="1" class="button link">Clear all`)
		if active > 0 {
			p.raw(` <span class="badge">`)
			p.text(itoa(active))
			p.raw(`</span>`)
		}
		p.raw(`</button></form>`)

		if active > 0 {
			p.raw(`<ul class="filter-chips">`)
			for _, cfg := range def.Filters {
				v := q.Filters[cfg.Key]
				if v.IsEmpty() {
					continue
				}
				target := ActionURL(def.Key, q, "unset", cfg.Key)
				p.raw(`<li class="chip"><span>`)
				p.text(cfg.Label + ": " + v.String())
				p.raw(`</span><a class="chip-remove" aria-label="Remove filter" hx-target="#screen" hx-swap="outerHTML"`)
				p.href("hx-get", target)
				p.href("href", target)
				p.raw(`>&times;</a></li>`)
			}
			p.raw(`</ul>`)
		}
		return p.err
	})
}

func filterControl(cfg table.FilterConfig, v table.FilterValue) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)
		name := "filter[" + cfg.Key + "]"

		p.raw(`<label class="filter"`)
		p.attr("data-filter", cfg.Key)
		if cfg.Icon != "" {
			p.attr("data-icon", cfg.Icon)
		}
		p.raw(`><span>`)
		p.text(cfg.Label)
		p.raw(`</span>`)

		switch cfg.Type {
		case table.FilterDateRange:
			start, end := "", ""
			if v.Range.Start != nil {
				start = v.Range.Start.Format(table.DateLayout)
			}
			if v.Range.End != nil {
				end = v.Range.End.Format(table.DateLayout)
			}
			p.raw(`<input type="date" class="date-picker"`)
			p.attr("name", name+"[start]")
			p.attr("value", start)
			p.raw(`><input type="date" class="date-picker"`)
			p.attr("name", name+"[end]")
			p.attr("value", end)
			p.raw(`>`)

		case table.FilterSingleSelect:
			p.raw(`<select`)
			p.attr("name", name)
			p.raw(`><option value="all">All</option>`)
			for _, o := range cfg.Options {
				p.raw(`<option`)
				p.attr("value", o.Value)
				p.boolAttr("selected", o.Value == v.Value)
				p.raw(`>`)
				p.text(o.Label)
				p.raw(`</option>`)
			}
			p.raw(`</select>`)

		default:
			p.raw(`<select`)
			p.attr("name", name)
			p.boolAttr("multiple", cfg.Multiple)
			p.raw(`>`)
			if !cfg.Multiple {
				p.raw(`<option value="">Any</option>`)
			}
			for _, o := range cfg.Options {
				p.raw(`<option`)
				p.attr("value", o.Value)
				p.boolAttr("selected", slices.Contains(v.Values, o.Value))
				p.raw(`>`)
				p.text(o.Label)
				p.raw(`</option>`)
			}
			p.raw(`</select>`)
		}
		p.raw(`</label>`)
		return p.err
	})
}

func dataTable(params ScreenParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)
		def := params.Screen

		p.raw(`<div class="table-wrap"><table class="data"><thead><tr>`)
		for _, col := range def.Columns {
			p.raw(`<th scope="col"><a hx-target="#screen" hx-swap="outerHTML"`)
			sortURL := ActionURL(def.Key, params.Query, "sortby", col.Path)
			p.href("hx-get", sortURL)
			p.href("href", sortURL)
			p.raw(`>`)
			p.text(col.Title)
			if ind := params.Query.Sort.IndicatorFor(col.Path); ind != "" {
				p.raw(` <span class="sort-indicator">`)
				p.text(ind)
				p.raw(`</span>`)
			}
			p.raw(`</a></th>`)
		}
		p.raw(`</tr></thead><tbody>`)

		if params.State != table.ContentReady {
			p.raw(`<tr class="message"><td`)
			p.attr("colspan", itoa(max(1, len(def.Columns))))
			if params.State == table.ContentError {
				p.raw(` class="error"`)
			}
			p.raw(`>`)
			p.text(table.Message(params.State, params.Err))
			p.raw(`</td></tr>`)
		} else {
			for _, row := range params.Rows {
				p.raw(`<tr`)
				if id, ok := export.Lookup(row, def.IDPath); ok {
					p.attr("data-id", export.FormatCell(id, export.KindText))
				}
				p.raw(`>`)
				for _, col := range def.Columns {
					v, _ := export.Lookup(row, col.Path)
					p.raw(`<td`)
					if col.Kind == export.KindNumber || col.Kind == export.KindMoney {
						p.raw(` class="num"`)
					}
					p.raw(`>`)
					p.text(export.FormatCell(v, col.Kind))
					p.raw(`</td>`)
				}
				p.raw(`</tr>`)
			}
		}
		p.raw(`</tbody></table></div>`)
		return p.err
	})
}

func pager(key string, q table.Query, pg table.Pagination) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)
		link := func(page int, label string, enabled, current bool) {
			if !enabled {
				p.raw(`<span class="page disabled">`)
				p.text(label)
				p.raw(`</span>`)
				return
			}
			target := ActionURL(key, q, "goto", itoa(page))
			p.raw(`<a class="page" hx-target="#screen" hx-swap="outerHTML"`)
			if current {
				p.raw(` aria-current="page"`)
			}
			p.href("hx-get", target)
			p.href("href", target)
			p.raw(`>`)
			p.text(label)
			p.raw(`</a>`)
		}

		p.raw(`<nav class="pager" aria-label="Pagination">`)
		link(pg.CurrentPage-1, "Previous", pg.HasPrev(), false)
		for _, it := range pg.Items() {
			if it.Ellipsis {
				p.raw(`<span class="page gap">&hellip;</span>`)
				continue
			}
			link(it.Page, itoa(it.Page), true, it.Current)
		}
		link(pg.CurrentPage+1, "Next", pg.HasNext(), false)
		p.raw(`</nav>`)
		return p.err
	})
}

// DashboardParams is the home page.
type DashboardParams struct {
	Screens  []screens.Definition
	Stats    []core.StatTile
	StatsErr error
}

// Dashboard renders the home page: order figures and screen cards.
func Dashboard(nav []NavLink, params DashboardParams) templ.Component {
	return Layout("Dashboard", nav, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)
		p.raw(`<section class="dashboard"><h1>Dashboard</h1>`)
		switch {
		case params.StatsErr != nil:
			p.raw(`<p class="inline-error">`)
			p.text(table.ErrorMessage(params.StatsErr))
			p.raw(`</p>`)
		case len(params.Stats) > 0:
			p.component(StatStrip(params.Stats))
		}
		p.raw(`<div class="cards">`)
		for _, def := range params.Screens {
			p.raw(`<a class="card"`)
			p.href("href", "/screens/"+url.PathEscape(def.Key))
			p.raw(`><span class="card-group">`)
			p.text(def.Group)
			p.raw(`</span><strong>`)
			p.text(def.Label)
			p.raw(`</strong></a>`)
		}
		p.raw(`</div></section>`)
		return p.err
	}))
}

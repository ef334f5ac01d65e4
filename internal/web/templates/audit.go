package templates

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/opsboard/internal/audit"
	"github.com/JonMunkholm/opsboard/internal/table"
)

// AuditLogParams is one page of the audit log.
type AuditLogParams struct {
	Entries    []audit.Entry
	TotalCount int64
	Filter     audit.Filter
	Pagination table.Pagination
}

// AuditLogPage renders the audit log inside the layout.
func AuditLogPage(nav []NavLink, params AuditLogParams) templ.Component {
	return Layout("Audit log", nav, AuditLogPartial(params))
}

// AuditLogPartial renders the audit table and its pager.
func AuditLogPartial(params AuditLogParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)
		p.raw(`<section class="audit" id="audit"><h1>Audit log</h1><p class="count">`)
		p.text(strconv.FormatInt(params.TotalCount, 10) + " entries")
		p.raw(`</p><div class="table-wrap"><table class="data"><thead><tr>`)
		p.raw(`<th>When</th><th>Action</th><th>Severity</th><th>Entity</th><th>Actor</th><th>Details</th>`)
		p.raw(`</tr></thead><tbody>`)

		if len(params.Entries) == 0 {
			p.raw(`<tr class="message"><td colspan="6">`)
			p.text(table.EmptyMessage)
			p.raw(`</td></tr>`)
		}
		for _, e := range params.Entries {
			p.raw(`<tr><td>`)
			p.text(e.CreatedAt.Format("2006-01-02 15:04:05"))
			p.raw(`</td><td>`)
			p.text(string(e.Action))
			p.raw(`</td><td`)
			p.attr("class", "severity "+string(e.Severity))
			p.raw(`>`)
			p.text(string(e.Severity))
			p.raw(`</td><td>`)
			p.text(e.Entity)
			if e.EntityID != "" {
				p.text(" " + e.EntityID)
			}
			p.raw(`</td><td>`)
			p.text(e.ActorID)
			p.raw(`</td><td>`)
			p.text(e.Reason)
			p.raw(`</td></tr>`)
		}
		p.raw(`</tbody></table></div>`)

		pg := params.Pagination
		if pg.TotalPages > 1 {
			p.raw(`<nav class="pager" aria-label="Pagination">`)
			for _, it := range pg.Items() {
				if it.Ellipsis {
					p.raw(`<span class="page gap">&hellip;</span>`)
					continue
				}
				target := auditURL(params.Filter, it.Page, pg.RowsPerPage)
				p.raw(`<a class="page" hx-target="#audit" hx-swap="outerHTML"`)
				if it.Current {
					p.raw(` aria-current="page"`)
				}
				p.href("hx-get", target)
				p.href("href", target)
				p.raw(`>`)
				p.text(itoa(it.Page))
				p.raw(`</a>`)
			}
			p.raw(`</nav>`)
		}
		p.raw(`</section>`)
		return p.err
	})
}

func auditURL(f audit.Filter, page, limit int) string {
	v := url.Values{}
	if f.Entity != "" {
		v.Set("entity", f.Entity)
	}
	if f.Action != "" {
		v.Set("action", string(f.Action))
	}
	if f.ActorID != "" {
		v.Set("actor", f.ActorID)
	}
	v.Set("page", itoa(page))
	v.Set("limit", itoa(limit))
	return "/audit-log?" + v.Encode()
}

package templates

import (
	"context"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/opsboard/internal/orientation"
)

// OrientationPage renders the driver checklist inside the layout.
func OrientationPage(nav []NavLink, view *orientation.View, busy bool) templ.Component {
	return Layout("Orientation", nav, OrientationChecklist(view, busy))
}

// OrientationChecklist renders the checklist. Only to-do items get a start
// button, and none do while an update is in flight.
func OrientationChecklist(view *orientation.View, busy bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)
		p.raw(`<section class="orientation" id="orientation"><h1>Driver orientation</h1>`)
		if view.Done {
			p.raw(`<p class="done">All steps are complete. You're ready to drive.</p>`)
		}
		if busy {
			p.raw(`<p class="busy" role="status">An update is in progress&hellip;</p>`)
		}

		p.raw(`<ol class="checklist">`)
		for _, it := range view.Items {
			p.raw(`<li`)
			p.attr("class", "item "+string(it.Status))
			p.attr("data-step", string(it.ID))
			p.raw(`><span class="icon"`)
			p.attr("data-icon", it.Status.Icon())
			p.raw(` aria-hidden="true"></span><span class="name">`)
			p.text(it.Name)
			p.raw(`</span><span class="status">`)
			p.text(it.Status.Label())
			p.raw(`</span>`)
			if it.Status == orientation.StatusToDo {
				p.raw(`<button class="button" hx-target="#orientation" hx-swap="outerHTML"`)
				p.href("hx-post", "/api/orientation/"+url.PathEscape(string(it.ID))+"/start")
				p.boolAttr("disabled", busy)
				p.raw(`>Start</button>`)
			}
			p.raw(`</li>`)
		}
		p.raw(`</ol>`)

		if view.Content != nil && view.Step != orientation.StepHome {
			p.component(stepContent(view))
		}
		p.raw(`</section>`)
		return p.err
	})
}

func stepContent(view *orientation.View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(ctx, w)
		c := view.Content
		complete := "/api/orientation/" + url.PathEscape(string(view.Step)) + "/complete"

		p.raw(`<form class="step" hx-target="#orientation" hx-swap="outerHTML"`)
		p.href("hx-post", complete)
		p.raw(`>`)
		switch view.Step {
		case orientation.StepVideos:
			p.raw(`<h2>Orientation videos</h2><ol class="videos">`)
			vs := orientation.NewVideoStepper(len(c.Videos))
			for _, v := range c.Videos {
				p.raw(`<li><span class="muted">Video `)
				p.text(itoa(vs.Position()) + " of " + itoa(vs.Total()))
				p.raw(`</span> <a target="_blank" rel="noopener"`)
				p.href("href", v.URL)
				p.raw(`>`)
				p.text(v.Title)
				p.raw(`</a></li>`)
				vs.Next()
			}
			p.raw(`</ol><input type="hidden" name="videosWatched"`)
			p.attr("value", itoa(len(c.Videos)))
			p.raw(`><button class="button primary" type="submit">I've watched every video</button>`)

		case orientation.StepTerms:
			p.raw(`<h2>Driver agreement</h2>`)
			if c.AgreementURL != "" {
				p.raw(`<p><a target="_blank" rel="noopener"`)
				p.href("href", c.AgreementURL)
				p.raw(`>Read the agreement</a></p>`)
			}
			p.raw(`<input type="hidden" name="agreementVersion"`)
			p.attr("value", c.AgreementVersion)
			p.raw(`><button class="button primary" type="submit">Accept</button>`)
		}
		p.raw(`</form>`)
		return p.err
	})
}

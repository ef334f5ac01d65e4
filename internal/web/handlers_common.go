package web

// handlers_common.go holds the request parsing shared by the handlers.

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/opsboard/internal/audit"
	"github.com/JonMunkholm/opsboard/internal/core"
	"github.com/JonMunkholm/opsboard/internal/screens"
	"github.com/JonMunkholm/opsboard/internal/table"
)

// MaxBodySize caps JSON and form bodies (1MB).
const MaxBodySize = 1 << 20

// auditPageSize is the default audit log page size.
const auditPageSize = 50

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// normalizeTableParams folds the browser's filter encodings into the
// single filter[key] value the table package reads:
//
//	filter[status]=a&filter[status]=b            -> filter[status]=a,b
//	filter[date][start]=x&filter[date][end]=y    -> filter[date]=x,y
func normalizeTableParams(in url.Values) url.Values {
	out := make(url.Values, len(in))
	ranges := map[string][2]string{}

	for key, values := range in {
		if !strings.HasPrefix(key, "filter[") {
			out[key] = values
			continue
		}
		name, part, hasPart := strings.Cut(strings.TrimPrefix(key, "filter["), "][")
		if !hasPart {
			joined := make([]string, 0, len(values))
			for _, v := range values {
				if v = strings.TrimSpace(v); v != "" {
					joined = append(joined, v)
				}
			}
			out.Set(key, strings.Join(joined, ","))
			continue
		}

		r := ranges[name]
		val := ""
		if len(values) > 0 {
			val = strings.TrimSpace(values[len(values)-1])
		}
		switch strings.TrimSuffix(part, "]") {
		case "start":
			r[0] = val
		case "end":
			r[1] = val
		default:
			continue
		}
		ranges[name] = r
	}

	for name, r := range ranges {
		if r[0] == "" && r[1] == "" {
			continue
		}
		out.Set("filter["+name+"]", r[0]+","+r[1])
	}
	return out
}

// screenQuery parses the table parameters of r for a screen and replays
// the control the user touched (see table.Controls.Apply).
func (s *Server) screenQuery(r *http.Request, key string) (screens.Definition, *table.Controls, error) {
	params := normalizeTableParams(r.URL.Query())
	def, q, err := s.service.ParseScreenQuery(key, params)
	if err != nil {
		return def, nil, err
	}

	ctl, err := table.NewControls(def.Filters, q)
	if err != nil {
		return def, nil, err
	}
	if err := ctl.Apply(params); err != nil {
		return def, nil, err
	}
	return def, ctl, nil
}

// readValues reads a mutation body as url.Values. JSON objects are
// flattened to strings so both HTMX forms and API clients share one path.
func readValues(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "application/json" {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: form body: %v", core.ErrBadRequest, err)
		}
		return r.PostForm, nil
	}

	var obj map[string]any
	if err := decodeJSON(r, &obj); err != nil {
		return nil, err
	}
	values := make(url.Values, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
			values.Set(k, "")
		case string:
			values.Set(k, val)
		case bool:
			values.Set(k, strconv.FormatBool(val))
		case float64:
			values.Set(k, strconv.FormatFloat(val, 'f', -1, 64))
		default:
			b, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("%w: value for %s: %v", core.ErrBadRequest, k, err)
			}
			values.Set(k, string(b))
		}
	}
	return values, nil
}

// decodeInput fills dst from a JSON body or, for HTMX forms, from the
// form fields named by dst's `form` tags.
func decodeInput(w http.ResponseWriter, r *http.Request, dst any, form func(url.Values)) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		return decodeJSON(r, dst)
	}
	values, err := readValues(w, r)
	if err != nil {
		return err
	}
	form(values)
	return nil
}

// decodeJSON decodes a size-limited JSON body. An empty body is allowed.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodySize))
	if err := dec.Decode(dst); err != nil && err != io.EOF {
		return fmt.Errorf("%w: %v", core.ErrBadRequest, err)
	}
	return nil
}

// parseAuditFilter reads entity, action, actor, from, to, page and limit.
// Dates are YYYY-MM-DD; "to" covers the whole day.
func parseAuditFilter(r *http.Request) (audit.Filter, int) {
	q := r.URL.Query()
	page := parseIntParam(r, "page", 1)
	limit := parseIntParam(r, "limit", auditPageSize)
	if limit > 200 {
		limit = 200
	}

	f := audit.Filter{
		Entity:  strings.TrimSpace(q.Get("entity")),
		Action:  audit.Action(strings.TrimSpace(q.Get("action"))),
		ActorID: strings.TrimSpace(q.Get("actor")),
		Limit:   limit,
		Offset:  (page - 1) * limit,
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse(table.DateLayout, from); err == nil {
			f.Since = t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(table.DateLayout, to); err == nil {
			f.Until = t.Add(24*time.Hour - time.Second)
		}
	}
	return f, page
}

// parseFloatParam reads a required float query parameter.
func parseFloatParam(r *http.Request, name string) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %s", core.ErrBadRequest, name)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", core.ErrBadRequest, name, raw)
	}
	return f, nil
}

// sortedKeys returns the keys of m in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

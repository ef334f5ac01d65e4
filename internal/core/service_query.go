package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/JonMunkholm/opsboard/internal/audit"
	"github.com/JonMunkholm/opsboard/internal/backend"
	"github.com/JonMunkholm/opsboard/internal/export"
	"github.com/JonMunkholm/opsboard/internal/logging"
	"github.com/JonMunkholm/opsboard/internal/screens"
	"github.com/JonMunkholm/opsboard/internal/table"
)

// ScreenPage is one loaded page of a list screen.
type ScreenPage struct {
	Screen     screens.Definition
	Query      table.Query
	Rows       []backend.Record
	Pagination table.Pagination
}

// ParseScreenQuery reads the table parameters of a request for screen key.
func (s *Service) ParseScreenQuery(key string, v url.Values) (screens.Definition, table.Query, error) {
	def, err := s.Screen(key)
	if err != nil {
		return screens.Definition{}, table.Query{}, err
	}
	q, err := table.ParseQuery(def.Filters, def.DefaultSort, v)
	if err != nil {
		return screens.Definition{}, table.Query{}, err
	}
	return def, q, nil
}

// viewer identifies whose credentials a backend call carries. Claims are
// not trusted here: two tokens naming the same subject are different
// viewers unless they are the same token.
func viewer(ctx context.Context) string {
	tok := backend.TokenFromContext(ctx)
	if tok == "" {
		return "service"
	}
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

func cacheSlot(viewer, screen string) string {
	return viewer + "|" + screen
}

func cacheKey(viewer, screen string, q table.Query) string {
	return q.CacheKey(screen) + "|" + viewer
}

// screenPrefix matches every cached page of a screen, for all viewers.
func screenPrefix(screen string) string {
	return url.QueryEscape(screen) + "|"
}

// ListScreen loads one page of a screen. Pages are cached per bearer token
// by the full query; a newer query with the same token on the same screen
// cancels an older one still in flight.
func (s *Service) ListScreen(ctx context.Context, key string, q table.Query) (*ScreenPage, error) {
	def, err := s.Screen(key)
	if err != nil {
		return nil, err
	}

	who := viewer(ctx)
	page, err := s.pages.Fetch(ctx, cacheSlot(who, def.Key), cacheKey(who, def.Key, q),
		func(fctx context.Context) (*backend.Page, error) {
			return s.api.List(fctx, def.Endpoint, def.ItemsKey, q.Upstream())
		})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", def.Key, err)
	}

	return &ScreenPage{
		Screen:     def,
		Query:      q,
		Rows:       page.Items,
		Pagination: q.Pagination(page.TotalPages),
	}, nil
}

// InvalidateScreens drops cached pages of the given screens.
func (s *Service) InvalidateScreens(keys ...string) int {
	n := 0
	for _, k := range keys {
		n += s.pages.Invalidate(screenPrefix(k))
	}
	return n
}

// ExportScope selects what an export contains.
type ExportScope string

const (
	ExportPage ExportScope = "page"
	ExportAll  ExportScope = "all"
)

// ParseExportScope defaults to ExportAll.
func ParseExportScope(s string) ExportScope {
	if strings.EqualFold(s, string(ExportPage)) {
		return ExportPage
	}
	return ExportAll
}

// ExportScreen renders a screen as CSV.
//
// The page scope exports the rows of q. The all scope asks the backend for
// page 1 with the export limit and falls back to the rows of q as a
// "_partial" file if that fails. Only errors that prevent any output are
// returned: an unknown screen, a busy limiter or a cancelled request.
func (s *Service) ExportScreen(ctx context.Context, key string, q table.Query, scope ExportScope) (export.Download, error) {
	def, err := s.Screen(key)
	if err != nil {
		return export.Download{}, err
	}
	logger := logging.FromContext(ctx).With("screen", def.Key, "scope", scope)

	if scope == ExportPage {
		page, err := s.ListScreen(ctx, def.Key, q)
		if err != nil {
			return export.Download{}, err
		}
		d := export.Page(def.Key, def.Columns, page.Rows)
		s.recordExport(ctx, def, scope, d)
		return d, nil
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return export.Download{}, err
	}
	defer s.limiter.Release()

	all := q
	all.Page = 1
	all.Limit = s.exportLimit

	d := export.All(ctx, def.Key, def.Columns,
		func(ctx context.Context) ([]backend.Record, error) {
			page, err := s.api.List(ctx, def.Endpoint, def.ItemsKey, all.Upstream())
			if err != nil {
				return nil, err
			}
			return page.Items, nil
		},
		func() []backend.Record {
			page, err := s.ListScreen(ctx, def.Key, q)
			if err != nil {
				logger.Warn("no loaded rows for partial export", "error", err)
				return nil
			}
			return page.Rows
		},
	)

	if d.Partial {
		if errors.Is(d.Cause, context.Canceled) && ctx.Err() != nil {
			return export.Download{}, ctx.Err()
		}
		logger.Warn("full export failed, exported loaded page", "error", d.Cause, "rows", d.Rows)
	} else {
		logger.Info("export finished", "rows", d.Rows)
	}
	s.recordExport(ctx, def, scope, d)
	return d, nil
}

func (s *Service) recordExport(ctx context.Context, def screens.Definition, scope ExportScope, d export.Download) {
	reason := fmt.Sprintf("exported %d rows as %s", d.Rows, d.FileName)
	if d.Partial {
		reason += " (partial)"
	}
	s.record(ctx, audit.Params{
		Action:  audit.ActionExport,
		Entity:  def.Key,
		Changes: map[string]any{"scope": string(scope), "rows": d.Rows, "partial": d.Partial},
		Reason:  reason,
	})
}

// StatTile is one figure of the statistics strip.
type StatTile struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Statistics is the aggregate view of a screen under its current filters.
type Statistics struct {
	Raw   backend.Record `json:"raw"`
	Tiles []StatTile     `json:"tiles"`
}

// ScreenStatistics loads the aggregate figures for a screen that has them.
// Only the filters of q apply; paging and sorting are ignored.
func (s *Service) ScreenStatistics(ctx context.Context, key string, q table.Query) (*Statistics, error) {
	def, err := s.Screen(key)
	if err != nil {
		return nil, err
	}
	if def.Statistics == "" {
		return nil, fmt.Errorf("%w: %s has no statistics", ErrUnknownScreen, def.Key)
	}

	params := q.Filters.Upstream()
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	raw, err := s.api.OrderStatistics(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("load %s statistics: %w", def.Key, err)
	}
	return &Statistics{Raw: raw, Tiles: statTiles(raw)}, nil
}

// statTiles turns the scalar fields of a statistics record into tiles,
// sorted by key. Fields whose name mentions money are formatted as amounts.
func statTiles(raw backend.Record) []StatTile {
	keys := make([]string, 0, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case float64, string, bool:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	tiles := make([]StatTile, 0, len(keys))
	for _, k := range keys {
		kind := export.KindNumber
		if isMoneyKey(k) {
			kind = export.KindMoney
		}
		if _, ok := raw[k].(string); ok {
			kind = export.KindText
		}
		tiles = append(tiles, StatTile{Key: k, Label: humanize(k), Value: export.FormatCell(raw[k], kind)})
	}
	return tiles
}

var moneyWords = []string{"revenue", "amount", "sales", "fee", "tip", "payout"}

func isMoneyKey(key string) bool {
	lower := strings.ToLower(key)
	for _, w := range moneyWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// humanize turns "totalOrders" or "total_orders" into "Total orders".
func humanize(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '_' || r == '-':
			b.WriteByte(' ')
		case r >= 'A' && r <= 'Z' && i > 0:
			b.WriteByte(' ')
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return out
	}
	return strings.ToUpper(out[:1]) + out[1:]
}

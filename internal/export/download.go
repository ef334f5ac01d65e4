package export

import (
	"context"
	"strings"

	"github.com/gosimple/slug"
)

// AllLimit is the page size used to request every row in one call.
const AllLimit = 10000

// Download is a rendered CSV file.
type Download struct {
	FileName string
	CSV      string
	Rows     int
	// Partial is set when the full export failed and the loaded page was
	// exported instead. Cause holds the failure.
	Partial bool
	Cause   error
}

// FileName builds "<name>.csv" or "<name>_partial.csv" from a slug of name.
func FileName(name string, partial bool) string {
	base := slug.Make(name)
	if base == "" {
		base = "export"
	}
	if partial {
		base += "_partial"
	}
	return base + ".csv"
}

// Page exports rows already on screen.
func Page[M ~map[string]any](name string, headers []Header, rows []M) Download {
	return Download{
		FileName: FileName(name, false),
		CSV:      ConvertToCSV(headers, rows),
		Rows:     len(rows),
	}
}

// All exports every row returned by fetchAll. If fetchAll fails, the rows
// returned by loaded are exported as a partial file instead; a Download is
// always produced, at worst a header-only partial file.
func All[M ~map[string]any](
	ctx context.Context,
	name string,
	headers []Header,
	fetchAll func(context.Context) ([]M, error),
	loaded func() []M,
) Download {
	rows, err := fetchAll(ctx)
	if err == nil {
		return Download{
			FileName: FileName(name, false),
			CSV:      ConvertToCSV(headers, rows),
			Rows:     len(rows),
		}
	}

	var fallback []M
	if loaded != nil {
		fallback = loaded()
	}
	return Download{
		FileName: FileName(name, true),
		CSV:      ConvertToCSV(headers, fallback),
		Rows:     len(fallback),
		Partial:  true,
		Cause:    err,
	}
}

// ContentDisposition returns the attachment header value for a file name.
func ContentDisposition(fileName string) string {
	return `attachment; filename="` + strings.ReplaceAll(fileName, `"`, "") + `"`
}

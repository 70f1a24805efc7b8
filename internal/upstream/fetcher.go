package upstream

import (
	"context"
	"iter"
	"log/slog"

	"licensesync/internal/license"
	"licensesync/internal/logging"
)

// Page is one non-empty page of the report.
type Page struct {
	Number int
	Rows   []license.RawRecord
}

// Fetcher walks the paginated report through a PageTransport.
type Fetcher struct {
	transport PageTransport
	logger    *slog.Logger
}

// NewFetcher constructs a fetcher over the given transport.
func NewFetcher(transport PageTransport, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		transport: transport,
		logger:    logging.NewComponentLogger(logger, "fetcher"),
	}
}

// Pages yields pages starting at 1. Each request waits for the previous page;
// iteration ends at the first empty page, the first error, or when the caller
// stops ranging.
func (f *Fetcher) Pages(ctx context.Context, from, to string) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		for page := 1; ; page++ {
			if err := ctx.Err(); err != nil {
				yield(Page{Number: page}, err)
				return
			}
			rows, err := f.transport.FetchPage(ctx, PageRequest{Page: page, DateFrom: from, DateTo: to})
			if err != nil {
				yield(Page{Number: page}, err)
				return
			}
			if len(rows) == 0 {
				return
			}
			if !yield(Page{Number: page, Rows: rows}, nil) {
				return
			}
		}
	}
}

// FetchAll accumulates every page for the window and stamps provenance on
// each row. Any page failure discards everything fetched so far.
func (f *Fetcher) FetchAll(ctx context.Context, from, to string) ([]license.RawRecord, error) {
	var all []license.RawRecord
	pages := 0
	for page, err := range f.Pages(ctx, from, to) {
		if err != nil {
			f.logger.Error("page fetch failed",
				logging.Int("page", page.Number),
				logging.String("from", from),
				logging.String("to", to),
				logging.Error(err),
			)
			return nil, err
		}
		for _, row := range page.Rows {
			row[license.KeyFetchDateFrom] = from
			row[license.KeyFetchDateTo] = to
			row[license.KeySourcePage] = page.Number
		}
		all = append(all, page.Rows...)
		pages++
	}
	f.logger.Info("fetch complete",
		logging.String("from", from),
		logging.String("to", to),
		logging.Int("pages", pages),
		logging.Int("rows", len(all)),
	)
	return all, nil
}

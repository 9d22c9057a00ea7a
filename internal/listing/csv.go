package listing

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rentmap/internal/model"
)

// CSV columns, matched case-insensitively against the header row. Only
// address and price are required.
const (
	colAddress   = "address"
	colPrice     = "price"
	colBedrooms  = "bedrooms"
	colLatitude  = "latitude"
	colLongitude = "longitude"
	colURL       = "url"
)

// StreamCSV parses a listing CSV and sends listings to a channel. Both
// channels are closed when processing completes. Unparseable numeric cells
// become missing values, so a bad price surfaces later as a dropped listing
// rather than a failed import.
func StreamCSV(ctx context.Context, r io.Reader) (<-chan model.RawListing, <-chan error) {
	rowCh := make(chan model.RawListing, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true

		header, err := reader.Read()
		if err == io.EOF {
			errCh <- eris.New("csv: empty file")
			return
		}
		if err != nil {
			errCh <- eris.Wrap(err, "csv: read header")
			return
		}
		cols, err := headerIndex(header)
		if err != nil {
			errCh <- err
			return
		}

		for line := 2; ; line++ {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrapf(err, "csv: read line %d", line)
				return
			}

			select {
			case rowCh <- cols.listing(record):
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ParseCSV reads every listing from r.
func ParseCSV(ctx context.Context, r io.Reader) ([]model.RawListing, error) {
	rowCh, errCh := StreamCSV(ctx, r)
	var out []model.RawListing
	for l := range rowCh {
		out = append(out, l)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return out, nil
}

// Saver persists listings; store.Store satisfies it.
type Saver interface {
	Save(ctx context.Context, listings []model.RawListing) (int64, error)
}

// ImportStats summarizes an import.
type ImportStats struct {
	Read    int
	Written int64
	Batches int
}

// Import streams a CSV into dst in batches of batchSize.
func Import(ctx context.Context, dst Saver, r io.Reader, batchSize int) (ImportStats, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	log := zap.L().With(zap.String("component", "listing.import"))

	var stats ImportStats
	flush := func(batch []model.RawListing) error {
		if len(batch) == 0 {
			return nil
		}
		n, err := dst.Save(ctx, batch)
		if err != nil {
			return eris.Wrapf(err, "import: save batch %d", stats.Batches+1)
		}
		stats.Written += n
		stats.Batches++
		log.Debug("batch saved", zap.Int("batch", stats.Batches), zap.Int64("rows", n))
		return nil
	}

	rowCh, errCh := StreamCSV(ctx, r)
	batch := make([]model.RawListing, 0, batchSize)
	for l := range rowCh {
		stats.Read++
		batch = append(batch, l)
		if len(batch) < batchSize {
			continue
		}
		if err := flush(batch); err != nil {
			drain(rowCh)
			return stats, err
		}
		batch = batch[:0]
	}
	if err := <-errCh; err != nil {
		return stats, err
	}
	if err := flush(batch); err != nil {
		return stats, err
	}

	log.Info("import complete",
		zap.Int("read", stats.Read),
		zap.Int64("written", stats.Written),
		zap.Int("batches", stats.Batches),
	)
	return stats, nil
}

func drain(ch <-chan model.RawListing) {
	for range ch {
	}
}

type columns map[string]int

func headerIndex(header []string) (columns, error) {
	cols := make(columns, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, req := range []string{colAddress, colPrice} {
		if _, ok := cols[req]; !ok {
			return nil, eris.Errorf("csv: missing required column %q", req)
		}
	}
	return cols, nil
}

func (c columns) field(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c columns) listing(record []string) model.RawListing {
	l := model.RawListing{
		Address: c.field(record, colAddress),
		URL:     c.field(record, colURL),
		Price:   parseFloat(c.field(record, colPrice)),
	}
	l.Latitude = parseFloat(c.field(record, colLatitude))
	l.Longitude = parseFloat(c.field(record, colLongitude))
	if v, err := strconv.Atoi(c.field(record, colBedrooms)); err == nil {
		l.Bedrooms = model.Int(v)
	}
	return l
}

// parseFloat accepts "4200", "4,200" and "$4,200".
func parseFloat(s string) *float64 {
	s = strings.NewReplacer("$", "", ",", "").Replace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return model.Float64(v)
}

package main

import (
	"context"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rentmap/internal/city"
	"github.com/sells-group/rentmap/internal/colorscale"
	"github.com/sells-group/rentmap/internal/config"
	"github.com/sells-group/rentmap/internal/grid"
	"github.com/sells-group/rentmap/internal/heatmap"
	"github.com/sells-group/rentmap/internal/listing"
	"github.com/sells-group/rentmap/internal/model"
	"github.com/sells-group/rentmap/internal/resilience"
	"github.com/sells-group/rentmap/internal/store"
)

// loadProfile reads the configured city profile and applies grid overrides.
func loadProfile(c *config.Config) (*city.Profile, error) {
	var p *city.Profile
	if c.Grid.Profile == "" {
		p = city.Manhattan()
	} else {
		var err error
		if p, err = city.Load(c.Grid.Profile); err != nil {
			return nil, err
		}
	}

	if c.Grid.CellSize == 0 && c.Grid.Overlap == 0 {
		return p, nil
	}
	if c.Grid.CellSize > 0 {
		p.CellSize = c.Grid.CellSize
	}
	if c.Grid.Overlap > 0 {
		p.Overlap = c.Grid.Overlap
	}
	if err := p.Validate(); err != nil {
		return nil, eris.Wrap(err, "grid overrides")
	}
	return p, nil
}

// openStore opens the configured SQL store.
func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, c.Store.DatabaseURL, c.Store.MaxConns)
	case "sqlite":
		return store.NewSQLite(c.Store.SQLitePath)
	default:
		return nil, eris.Errorf("store driver %s has no database", c.Store.Driver)
	}
}

// openSource returns the configured listing source, guarded by retries and a
// circuit breaker. The synthetic driver is returned bare. The closer releases
// any database handle.
func openSource(ctx context.Context, c *config.Config, p *city.Profile) (listing.Source, io.Closer, error) {
	var (
		src    listing.Source
		closer io.Closer = nopCloser{}
	)

	switch c.Store.Driver {
	case "synthetic":
		cells, err := grid.Generate(heatmap.GridSpec(p))
		if err != nil {
			return nil, nil, eris.Wrap(err, "generate grid")
		}
		return listing.NewSynthetic(cells, listing.ManhattanRents(), c.Grid.Seed), closer, nil
	case "supabase":
		s, err := listing.NewSupabase(listing.SupabaseConfig{
			URL:       c.Supabase.URL,
			Key:       c.Supabase.Key,
			Table:     c.Supabase.Table,
			RateLimit: c.Supabase.RateLimit,
			Burst:     c.Supabase.Burst,
		})
		if err != nil {
			return nil, nil, err
		}
		src = s
	case "postgres", "sqlite":
		st, err := openStore(ctx, c)
		if err != nil {
			return nil, nil, err
		}
		src, closer = st, st
	default:
		return nil, nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}

	guarded := listing.Guard(src,
		resilience.PolicyFrom(c.Fetch.MaxAttempts, c.Fetch.InitialBackoffMs),
		resilience.NewBreaker(c.Fetch.BreakerThreshold, time.Duration(c.Fetch.BreakerCooldownSecs)*time.Second),
		time.Duration(c.Fetch.TimeoutSecs)*time.Second,
	)
	zap.L().Debug("listing source ready", zap.String("driver", c.Store.Driver))
	return guarded, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newService wires the profile, source and grid settings into a heat map
// service.
func newService(ctx context.Context, c *config.Config) (*heatmap.Service, io.Closer, error) {
	p, err := loadProfile(c)
	if err != nil {
		return nil, nil, err
	}
	src, closer, err := openSource(ctx, c, p)
	if err != nil {
		return nil, nil, err
	}
	mode, err := colorscale.ParseMode(c.Scale.Mode)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	svc, err := heatmap.NewService(p, src, heatmap.Options{
		Workers:        c.Grid.Workers,
		Seed:           c.Grid.Seed,
		FallbackOnMiss: c.Grid.FallbackOnMiss,
		Mode:           mode,
	})
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return svc, closer, nil
}

// defaultBedrooms converts the configured default; negative means every
// listing.
func defaultBedrooms(n int) *int {
	if n < 0 {
		return nil
	}
	return model.Int(n)
}

// bedroomsFilter parses a --bedrooms flag: "all", a non-negative count, or
// empty for the configured default.
func bedroomsFilter(flag string, fallback int) (model.Filter, error) {
	switch flag {
	case "":
		return model.Filter{Bedrooms: defaultBedrooms(fallback)}, nil
	case "all":
		return model.Filter{}, nil
	}
	n, err := strconv.Atoi(flag)
	if err != nil || n < 0 {
		return model.Filter{}, eris.Errorf("invalid --bedrooms %q", flag)
	}
	return model.Filter{Bedrooms: model.Int(n)}, nil
}

// openOutput returns stdout for "" or "-", else a created file.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "create %s", path)
	}
	return f, nil
}

// writeOutput opens path, runs write and closes it, returning the first
// error including the close.
func writeOutput(path string, write func(io.Writer) error) error {
	w, err := openOutput(path)
	if err != nil {
		return err
	}
	return finishOutput(w, write(w))
}

func finishOutput(w io.Closer, writeErr error) error {
	closeErr := w.Close()
	if writeErr != nil {
		return writeErr
	}
	return eris.Wrap(closeErr, "close output")
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

package listing

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
	"golang.org/x/time/rate"

	"github.com/sells-group/rentmap/internal/model"
	"github.com/sells-group/rentmap/internal/resilience"
)

// SupabaseConfig configures the hosted rentals table.
type SupabaseConfig struct {
	URL   string
	Key   string
	Table string
	// RateLimit is requests per second; zero means unlimited.
	RateLimit float64
	Burst     int
}

// SupabaseSource reads listings through the PostgREST API of a Supabase
// project.
type SupabaseSource struct {
	client  *supabase.Client
	table   string
	limiter *rate.Limiter
}

const supabaseColumns = "id,address,price,bedrooms,latitude,longitude,url"

// NewSupabase builds a client. It does not contact the server.
func NewSupabase(cfg SupabaseConfig) (*SupabaseSource, error) {
	client, err := supabase.NewClient(cfg.URL, cfg.Key, &supabase.ClientOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "supabase: create client")
	}

	table := cfg.Table
	if table == "" {
		table = "rentals"
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &SupabaseSource{
		client:  client,
		table:   table,
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

// Name identifies the source in logs and fetch errors.
func (s *SupabaseSource) Name() string { return "supabase" }

// Fetch selects the rentals matching filter ordered by price. The query
// itself takes no context, so Fetch returns a transient error as soon as
// ctx is done and leaves the request to finish in the background.
func (s *SupabaseSource) Fetch(ctx context.Context, filter model.Filter) ([]model.RawListing, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "supabase: rate limit")
	}

	q := s.client.From(s.table).Select(supabaseColumns, "", false)
	if filter.Bedrooms != nil {
		q = q.Eq("bedrooms", strconv.Itoa(*filter.Bedrooms))
	}
	q = q.Order("price", &postgrest.OrderOpts{Ascending: true})

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, _, err := q.Execute()
		done <- result{data: data, err: err}
	}()

	var data []byte
	select {
	case <-ctx.Done():
		return nil, resilience.NewTransientError(eris.Wrapf(ctx.Err(), "supabase: select %s", s.table), 0)
	case res := <-done:
		if res.err != nil {
			return nil, classifyPostgrest(eris.Wrapf(res.err, "supabase: select %s", s.table), res.err)
		}
		data = res.data
	}

	var rows []supabaseRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, eris.Wrap(err, "supabase: decode rows")
	}

	out := make([]model.RawListing, len(rows))
	for i, r := range rows {
		out[i] = r.listing()
	}
	return out, nil
}

type supabaseRow struct {
	ID        json.Number `json:"id"`
	Address   *string     `json:"address"`
	Price     *float64    `json:"price"`
	Bedrooms  *int        `json:"bedrooms"`
	Latitude  *float64    `json:"latitude"`
	Longitude *float64    `json:"longitude"`
	URL       *string     `json:"url"`
}

func (r supabaseRow) listing() model.RawListing {
	l := model.RawListing{
		ID:        r.ID.String(),
		Price:     r.Price,
		Bedrooms:  r.Bedrooms,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
	}
	if r.Address != nil {
		l.Address = *r.Address
	}
	if r.URL != nil {
		l.URL = *r.URL
	}
	// Half a coordinate pair is as good as none.
	if (l.Latitude == nil) != (l.Longitude == nil) {
		l.Latitude, l.Longitude = nil, nil
	}
	return l
}

// postgrestCode pulls the "(CODE) message" prefix postgrest-go formats
// error responses with.
var postgrestCode = regexp.MustCompile(`^\(([A-Z0-9]*)\)`)

// classifyPostgrest marks network failures, unparseable error bodies
// (usually a proxy page in front of a 5xx) and PGRST00x connection errors
// as transient.
func classifyPostgrest(wrapped, cause error) error {
	msg := cause.Error()
	transient := resilience.IsTransient(cause) || strings.HasPrefix(msg, "error parsing error response")
	if m := postgrestCode.FindStringSubmatch(msg); m != nil && strings.HasPrefix(m[1], "PGRST00") {
		transient = true
	}
	if transient {
		return resilience.NewTransientError(wrapped, 0)
	}
	return wrapped
}

package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"voice-agent-dashboard/internal/agents"
	"voice-agent-dashboard/internal/calls"
	"voice-agent-dashboard/pkg/logger"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrPageLimit is returned when an agent's history has more pages than
	// Config.MaxPages allows.
	ErrPageLimit = errors.New("analytics: page limit exceeded")
	// ErrProtocol is returned when the platform reports more pages but sends
	// an empty page.
	ErrProtocol = errors.New("analytics: inconsistent pagination response")
)

// Agents resolves the caller's agent records.
type Agents interface {
	ListOwned(ctx context.Context) ([]agents.Record, error)
	Owned(ctx context.Context, id string) (agents.Record, error)
}

// Executions reads call history from the platform.
type Executions interface {
	ListExecutions(ctx context.Context, externalID string, page, pageSize int) (calls.Page, error)
}

type Config struct {
	// PageSize is used when walking full histories. Defaults to 50.
	PageSize int
	// MaxPages bounds the pages read per agent. Defaults to 200.
	MaxPages int
	// Concurrency bounds per-agent requests in flight. Defaults to 8.
	Concurrency int
}

const (
	DefaultHistoryPageSize = 20
	MaxHistoryPageSize     = 50
)

// Service aggregates call analytics across a user's agents. Per-agent work
// runs concurrently; a failure for any agent aborts the aggregate.
type Service struct {
	agents Agents
	source Executions
	cfg    Config
	clock  func() time.Time
}

func NewService(a Agents, src Executions, cfg Config) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 200
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Service{agents: a, source: src, cfg: cfg, clock: time.Now}
}

// TotalCalls sums the platform's reported execution totals.
func (s *Service) TotalCalls(ctx context.Context) (int, error) {
	recs, err := s.agents.ListOwned(ctx)
	if err != nil {
		return 0, err
	}
	totals := make([]int, len(recs))
	err = s.fanOut(ctx, recs, func(ctx context.Context, i int, rec agents.Record) error {
		p, err := s.source.ListExecutions(ctx, rec.ExternalID, 1, 1)
		if err != nil {
			return fmt.Errorf("count executions for agent %s: %w", rec.ID, err)
		}
		totals[i] = p.Total
		return nil
	})
	if err != nil {
		return 0, err
	}
	sum := 0
	for _, n := range totals {
		sum += n
	}
	return sum, nil
}

// TotalCallDuration sums conversation durations over every execution, in
// whole seconds.
func (s *Service) TotalCallDuration(ctx context.Context) (int, error) {
	recs, err := s.agents.ListOwned(ctx)
	if err != nil {
		return 0, err
	}
	sums := make([]float64, len(recs))
	err = s.fanOut(ctx, recs, func(ctx context.Context, i int, rec agents.Record) error {
		return s.walk(ctx, rec, func(e calls.Execution) {
			sums[i] += e.ConversationDuration
		})
	})
	if err != nil {
		return 0, err
	}
	var total float64
	for _, v := range sums {
		total += v
	}
	return int(math.Round(total)), nil
}

// AllExecutionTimestamps returns the creation time of every execution,
// ascending. Executions without a timestamp are skipped.
func (s *Service) AllExecutionTimestamps(ctx context.Context) ([]time.Time, error) {
	recs, err := s.agents.ListOwned(ctx)
	if err != nil {
		return nil, err
	}
	perAgent := make([][]time.Time, len(recs))
	err = s.fanOut(ctx, recs, func(ctx context.Context, i int, rec agents.Record) error {
		return s.walk(ctx, rec, func(e calls.Execution) {
			if !e.CreatedAt.IsZero() {
				perAgent[i] = append(perAgent[i], e.CreatedAt)
			}
		})
	})
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, 0)
	for _, ts := range perAgent {
		out = append(out, ts...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// Summary returns total calls, total duration and the rounded average.
func (s *Service) Summary(ctx context.Context) (CallsSummary, error) {
	var out CallsSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.TotalCalls(gctx)
		out.TotalCalls = n
		return err
	})
	g.Go(func() error {
		d, err := s.TotalCallDuration(gctx)
		out.TotalDurationSeconds = d
		return err
	})
	if err := g.Wait(); err != nil {
		return CallsSummary{}, err
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = int(math.Round(float64(out.TotalDurationSeconds) / float64(out.TotalCalls)))
	}
	return out, nil
}

// CallsByDate buckets execution timestamps by UTC date within r.
func (s *Service) CallsByDate(ctx context.Context, r Range) (CallsByDate, error) {
	if r == "" {
		r = DefaultRange
	}
	ts, err := s.AllExecutionTimestamps(ctx)
	if err != nil {
		return CallsByDate{}, err
	}
	days := BucketByDate(ts, r.Since(s.clock()))
	total := 0
	for _, d := range days {
		total += d.Calls
	}
	return CallsByDate{Range: r, Total: total, Days: days}, nil
}

// ListExecutions returns one page of call history for an agent the caller
// owns. pageSize defaults to 20 and is capped at 50.
func (s *Service) ListExecutions(ctx context.Context, agentID string, page, pageSize int) (calls.Page, error) {
	rec, err := s.agents.Owned(ctx, agentID)
	if err != nil {
		return calls.Page{}, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultHistoryPageSize
	}
	if pageSize > MaxHistoryPageSize {
		pageSize = MaxHistoryPageSize
	}
	p, err := s.source.ListExecutions(ctx, rec.ExternalID, page, pageSize)
	if err != nil {
		return calls.Page{}, err
	}
	if p.Data == nil {
		p.Data = []calls.Execution{}
	}
	return p, nil
}

// walk reads every page of an agent's history in order.
func (s *Service) walk(ctx context.Context, rec agents.Record, fn func(calls.Execution)) error {
	for page := 1; ; page++ {
		if page > s.cfg.MaxPages {
			logger.From(ctx).Warn("execution history truncated",
				"agent_id", rec.ID, "external_id", rec.ExternalID, "max_pages", s.cfg.MaxPages)
			return fmt.Errorf("agent %s: %w (%d pages)", rec.ID, ErrPageLimit, s.cfg.MaxPages)
		}
		p, err := s.source.ListExecutions(ctx, rec.ExternalID, page, s.cfg.PageSize)
		if err != nil {
			return fmt.Errorf("list executions for agent %s page %d: %w", rec.ID, page, err)
		}
		for _, e := range p.Data {
			fn(e)
		}
		if !p.HasMore {
			return nil
		}
		if len(p.Data) == 0 {
			return fmt.Errorf("agent %s page %d: %w", rec.ID, page, ErrProtocol)
		}
	}
}

func (s *Service) fanOut(ctx context.Context, recs []agents.Record, fn func(ctx context.Context, i int, rec agents.Record) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error { return fn(gctx, i, rec) })
	}
	return g.Wait()
}

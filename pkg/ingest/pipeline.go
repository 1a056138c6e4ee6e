package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/organization"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/post"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/school"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/tag"
	"github.com/iota-uz/campus-feed/modules/feed/domain/aggregates/user"
	"github.com/iota-uz/campus-feed/pkg/eventbus"
)

// ErrAborted wraps the store failure that stopped a run early.
var ErrAborted = gerrors.New("ingestion aborted")

// Stage lifecycle events, published on the pipeline's bus when one is
// attached.
type (
	StageStarted struct {
		Kind Kind
	}
	StageFinished struct {
		Summary StageSummary
	}
	RunFinished struct {
		Report Report
	}
)

// Stores bundles the repositories the resolvers write through.
type Stores struct {
	Schools       school.Repository
	Organizations organization.Repository
	Users         user.Repository
	Tags          tag.Repository
	Posts         post.Repository
}

// Resolvers builds the stage resolvers in dependency order: schools,
// then organizations, users, tags, and finally posts.
func Resolvers(s Stores, registry *Registry, log *logrus.Logger) []EntityResolver {
	return []EntityResolver{
		NewSchoolResolver(s.Schools, registry, log),
		NewOrganizationResolver(s.Organizations, s.Schools, registry, log),
		NewUserResolver(s.Users, registry, log),
		NewTagResolver(s.Tags, registry, log),
		NewPostResolver(s.Posts, s.Users, s.Schools, s.Organizations, s.Tags, registry, log),
	}
}

// Pipeline drives a full ingestion run: one stage per resolver, a
// complete barrier between stages, and Workers concurrent resolvers
// within a stage. Each stage rescans the source from the top.
type Pipeline struct {
	Source    RowSource
	Resolvers []EntityResolver
	Workers   int
	// Fatal classifies row errors that must stop the whole run, such
	// as the store becoming unreachable. Nil means nothing is fatal.
	Fatal func(error) bool
	Log   *logrus.Logger
	// Bus receives StageStarted, StageFinished and RunFinished events.
	// Optional.
	Bus eventbus.EventBus
}

func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{Stages: make([]StageSummary, 0, len(p.Resolvers))}

	for _, r := range p.Resolvers {
		p.publish(StageStarted{Kind: r.Kind()})
		p.Log.WithField("stage", r.Kind()).Info("stage started")

		sum, err := p.runStage(ctx, r)
		report.Stages = append(report.Stages, sum)
		p.publish(StageFinished{Summary: sum})
		p.Log.WithFields(logrus.Fields{
			"stage":           sum.Kind,
			"rows":            sum.Rows,
			"created":         sum.Created,
			"already_existed": sum.AlreadyExisted,
			"skipped":         sum.Skipped,
			"failed":          sum.Failed,
			"malformed":       sum.Malformed,
		}).Info("stage finished")

		if err != nil {
			report.Aborted = true
			report.Duration = time.Since(start)
			p.publish(RunFinished{Report: *report})
			return report, err
		}
	}

	report.Duration = time.Since(start)
	p.publish(RunFinished{Report: *report})
	return report, nil
}

func (p *Pipeline) runStage(ctx context.Context, r EntityResolver) (StageSummary, error) {
	sum := StageSummary{Kind: r.Kind()}
	start := time.Now()

	stageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan Row)
	results := make(chan RowResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range jobs {
				results <- r.Resolve(stageCtx, row)
			}
		}()
	}

	var (
		dropped int
		scanErr error
	)
	go func() {
		defer close(jobs)
		dropped, scanErr = p.Source.Scan(stageCtx, func(row Row) error {
			select {
			case jobs <- row:
				return nil
			case <-stageCtx.Done():
				return stageCtx.Err()
			}
		})
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var fatal error
	for res := range results {
		sum.add(res)
		if res.Err != nil {
			p.Log.WithFields(logrus.Fields{
				"stage": res.Kind,
				"line":  res.Line,
				"key":   res.Key,
			}).WithError(res.Err).Warn("row failed")
			if fatal == nil && p.Fatal != nil && p.Fatal(res.Err) {
				fatal = res.Err
				cancel()
			}
		}
	}

	sum.Malformed = dropped
	sum.Duration = time.Since(start)

	if fatal != nil {
		return sum, gerrors.Wrapf(ErrAborted, "stage %s: %v", sum.Kind, fatal)
	}
	if scanErr != nil && !errors.Is(scanErr, context.Canceled) {
		return sum, scanErr
	}
	return sum, ctx.Err()
}

func (p *Pipeline) publish(event any) {
	if p.Bus != nil {
		p.Bus.Publish(event)
	}
}

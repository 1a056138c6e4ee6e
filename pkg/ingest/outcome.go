package ingest

import (
	"time"

	"github.com/go-faster/errors"
)

// Kind names one of the entity kinds extracted from the source, in the
// order stages run.
type Kind string

const (
	KindSchool       Kind = "school"
	KindOrganization Kind = "organization"
	KindUser         Kind = "user"
	KindTag          Kind = "tag"
	KindPost         Kind = "post"
)

// Outcome is the terminal state of one row within one stage.
type Outcome int8

const (
	Created Outcome = iota
	AlreadyExisted
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExisted:
		return "already_existed"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Row-level failure classes. All of them are recoverable: the row is
// recorded as Failed and the run moves on. Store connectivity failures
// are classified separately via Pipeline.Fatal.
var (
	// ErrParse marks a row whose cells cannot express a valid entity.
	ErrParse = errors.New("row parse error")
	// ErrMissingParent marks a row referencing an entity no earlier
	// stage produced.
	ErrMissingParent = errors.New("referenced entity not found")
	// ErrConflict marks a create that collided and whose fallback
	// lookup also failed.
	ErrConflict = errors.New("conflicting entity state")
)

// RowResult is the per-row record emitted by a stage.
type RowResult struct {
	Line    int
	Kind    Kind
	Key     string
	Outcome Outcome
	Err     error
}

// StageSummary aggregates a single stage of the run.
type StageSummary struct {
	Kind           Kind          `json:"kind"`
	Rows           int           `json:"rows"`
	Created        int           `json:"created"`
	AlreadyExisted int           `json:"already_existed"`
	Skipped        int           `json:"skipped"`
	Failed         int           `json:"failed"`
	Malformed      int           `json:"malformed"`
	Duration       time.Duration `json:"duration_ns"`
}

func (s *StageSummary) add(res RowResult) {
	s.Rows++
	switch res.Outcome {
	case Created:
		s.Created++
	case AlreadyExisted:
		s.AlreadyExisted++
	case Skipped:
		s.Skipped++
	case Failed:
		s.Failed++
	}
}

// Report covers a whole run, one summary per stage in execution order.
type Report struct {
	Stages   []StageSummary `json:"stages"`
	Duration time.Duration  `json:"duration_ns"`
	Aborted  bool           `json:"aborted"`
}

func (r *Report) TotalCreated() int {
	n := 0
	for _, s := range r.Stages {
		n += s.Created
	}
	return n
}

func (r *Report) TotalFailed() int {
	n := 0
	for _, s := range r.Stages {
		n += s.Failed
	}
	return n
}

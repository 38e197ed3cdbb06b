package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"

	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

var (
	// ErrNoEntities is returned when a loader is built without any entity step
	ErrNoEntities = errors.New("no entities to load")
	// ErrRunInProgress is returned when Run is called while another run is active
	ErrRunInProgress = errors.New("a load run is already in progress")
)

// Phase names the step of a run where a failure happened
type Phase string

const (
	PhaseBegin  Phase = "begin"
	PhaseRead   Phase = "read"
	PhaseClear  Phase = "clear"
	PhaseInsert Phase = "insert"
	PhaseCommit Phase = "commit"
)

// LoadError is a fatal failure while clearing or repopulating a cleansed extent
type LoadError struct {
	Entity model.Entity
	Phase  Phase
	Err    error
}

func (e *LoadError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("load failed during %s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("load of %s failed during %s: %v", e.Entity, e.Phase, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Category always reports a load failure
func (e *LoadError) Category() model.ErrorCategory {
	return model.ErrorCategoryLoadFailure
}

// ErrorDescriptor is the {message, code, state} triple surfaced for a failed run
type ErrorDescriptor struct {
	Message  string       `json:"message"`
	Code     string       `json:"code,omitempty"`
	State    string       `json:"state"`
	Category string       `json:"category"`
	Entity   model.Entity `json:"entity,omitempty"`
	Phase    Phase        `json:"phase,omitempty"`
}

// Describe extracts the error descriptor of a failure. Code is the SQLSTATE when the
// driver reported one. State is the server severity, or the run phase otherwise.
func Describe(err error) *ErrorDescriptor {
	if err == nil {
		return nil
	}

	desc := &ErrorDescriptor{
		Message:  err.Error(),
		Category: model.ErrorCategoryLoadFailure.String(),
	}

	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		desc.Category = loadErr.Category().String()
		desc.Entity = loadErr.Entity
		desc.Phase = loadErr.Phase
		desc.State = string(loadErr.Phase)
	}

	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		desc.Code = pgErr.Code
		desc.State = pgErr.Severity
	case errors.As(err, &pqErr):
		desc.Code = string(pqErr.Code)
		desc.State = pqErr.Severity
	case errors.Is(err, context.Canceled):
		desc.Code = "CANCELED"
	case errors.Is(err, context.DeadlineExceeded):
		desc.Code = "TIMEOUT"
	}

	if desc.State == "" {
		desc.State = "ERROR"
	}
	return desc
}

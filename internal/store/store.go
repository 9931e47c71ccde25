// Package store persists address submissions and per-user settings.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/parcelworks/addrsplit/internal/model"
)

// ErrNotFound is returned when a submission does not exist for the user.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for submissions. All reads are
// scoped to a user: one user can never see another's submissions.
type Store interface {
	// Submissions
	PutSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmission(ctx context.Context, userID, id string) (*model.Submission, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]model.Submission, error)
	SetPreferred(ctx context.Context, userID, id, method string) error
	DeleteExpired(ctx context.Context) (int, error)

	// User settings. GetPromptTemplate returns "" when the user has never
	// saved one; callers substitute the built-in default.
	GetPromptTemplate(ctx context.Context, userID string) (string, error)
	PutPromptTemplate(ctx context.Context, userID, template string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

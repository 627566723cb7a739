package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// RatingReconciler rewrites stored average ratings from the ratings themselves.
// The document backend keeps a stored average, so it is the one that needs this.
type RatingReconciler interface {
	RecomputeAverage(ctx context.Context, bookID int) (float64, error)
	RecomputeAllAverages(ctx context.Context) (int, error)
}

// ReconcileRatingsTask fixes one book's average, or every book's when BookID is 0.
type ReconcileRatingsTask struct {
	BookID int `json:"book_id,omitempty"`
}

func (t ReconcileRatingsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reconcile_ratings",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func ReconcileRatingsProcessor(r RatingReconciler) backlite.QueueProcessor[ReconcileRatingsTask] {
	return func(ctx context.Context, task ReconcileRatingsTask) error {
		if r == nil {
			return fmt.Errorf("rating reconciler not configured")
		}

		if task.BookID > 0 {
			avg, err := r.RecomputeAverage(ctx, task.BookID)
			if err != nil {
				return fmt.Errorf("reconcile book %d: %w", task.BookID, err)
			}
			log.Printf("[TASK] Book %d average rating is %.2f", task.BookID, avg)
			return nil
		}

		fixed, err := r.RecomputeAllAverages(ctx)
		if err != nil {
			return fmt.Errorf("reconcile all books: %w", err)
		}
		log.Printf("[TASK] Corrected average rating on %d books", fixed)
		return nil
	}
}

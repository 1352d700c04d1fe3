package service

import (
	"Insightful/internal/model"
	"Insightful/internal/pkg/testutil"
	"Insightful/internal/repository"
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

func newFixedQuota(t *testing.T, now time.Time) (*quotaTrackerImpl, repository.ReactionDailyRepo) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	repo := repository.NewReactionDailyRepo(db)
	q := NewQuotaTracker(repo, testReactionConfig()).(*quotaTrackerImpl)
	q.now = func() time.Time { return now }
	return q, repo
}

func TestQuotaTracker_ReserveStopsAtLimit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	q, _ := newFixedQuota(t, now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := q.Reserve(ctx, 1, 3)
		if err != nil || !ok {
			t.Fatalf("reserve %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := q.Reserve(ctx, 1, 3)
	if err != nil || ok {
		t.Fatalf("expected reserve to fail at limit: ok=%v err=%v", ok, err)
	}
	within, _ := q.WithinLimit(ctx, 1, 3)
	if within {
		t.Fatal("expected limit reached")
	}
	if ok, _ = q.Reserve(ctx, 1, 0); ok {
		t.Fatal("zero limit must never reserve")
	}

	// 其他用户互不影响
	if ok, _ = q.Reserve(ctx, 2, 3); !ok {
		t.Fatal("other user should reserve")
	}
	if n, _ := q.CountFor(ctx, 1, now); n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
}

func TestQuotaTracker_IncrementAndDecrement(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	q, _ := newFixedQuota(t, now)
	ctx := context.Background()

	if err := q.Decrement(ctx, 1); err != nil {
		t.Fatalf("decrement without row: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := q.Increment(ctx, 1); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	for i := 0; i < 4; i++ {
		if err := q.Decrement(ctx, 1); err != nil {
			t.Fatalf("decrement: %v", err)
		}
	}
	if n, _ := q.CountFor(ctx, 1, now); n != 0 {
		t.Fatalf("count must not go negative, got %d", n)
	}
}

func TestQuotaTracker_DaysAreIndependent(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	q, _ := newFixedQuota(t, day1)
	ctx := context.Background()

	if ok, _ := q.Reserve(ctx, 1, 1); !ok {
		t.Fatal("expected reserve on day 1")
	}
	q.now = func() time.Time { return day1.Add(2 * time.Minute) }
	if ok, _ := q.Reserve(ctx, 1, 1); !ok {
		t.Fatal("expected fresh quota on day 2")
	}
	if n, _ := q.CountFor(ctx, 1, day1); n != 1 {
		t.Fatalf("day 1 count changed: %d", n)
	}
}

func TestQuotaTracker_Purge(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	q, repo := newFixedQuota(t, now)
	ctx := context.Background()

	for _, d := range []string{"2026-03-01", "2026-03-04", "2026-03-05", "2026-03-09"} {
		if err := repo.CreateDaily(ctx, &model.ReactionDaily{UserID: 1, ReactionDate: d, ReactionCount: 2}); err != nil {
			t.Fatalf("seed %s: %v", d, err)
		}
	}
	deleted, err := q.Purge(ctx, 5)
	if err != nil || deleted != 2 {
		t.Fatalf("expected 2 purged, got %d err=%v", deleted, err)
	}
	if ok, _ := repo.Exists(ctx, 1, "2026-03-05"); !ok {
		t.Fatal("cutoff day should be kept")
	}

	// keepDays <= 0 使用配置的保留天数
	deleted, err = q.Purge(ctx, 0)
	if err != nil || deleted != 0 {
		t.Fatalf("expected nothing older than retention, got %d err=%v", deleted, err)
	}
}

// snapshotDailyRepo 当日行由另一个事务建好且已满额，但本事务的快照读看不到
type snapshotDailyRepo struct {
	repository.ReactionDailyRepo
	creates int
}

func (r *snapshotDailyRepo) IncrementCount(context.Context, uint64, string, int) (int64, error) {
	return 0, nil
}

func (r *snapshotDailyRepo) Exists(context.Context, uint64, string) (bool, error) {
	return false, nil
}

func (r *snapshotDailyRepo) CreateDaily(context.Context, *model.ReactionDaily) error {
	r.creates++
	return gorm.ErrDuplicatedKey
}

func TestQuotaTracker_ReserveAfterConcurrentFullRowIsRateLimited(t *testing.T) {
	repo := &snapshotDailyRepo{}
	q := NewQuotaTracker(repo, testReactionConfig())

	ok, err := q.Reserve(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected rate limit instead of error, got %v", err)
	}
	if ok {
		t.Fatal("full quota row must not be reserved")
	}
	if repo.creates != 1 {
		t.Fatalf("expected a single insert attempt, got %d", repo.creates)
	}
}

func TestQuotaTracker_UnboundedIncrementReportsPersistentConflict(t *testing.T) {
	q := NewQuotaTracker(&snapshotDailyRepo{}, testReactionConfig())
	if err := q.Increment(context.Background(), 1); !errors.Is(err, errQuotaConflict) {
		t.Fatalf("expected quota conflict, got %v", err)
	}
}

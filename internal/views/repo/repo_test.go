package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwmodel "github.com/ebaypulse/server/internal/gateway/model"
	"github.com/ebaypulse/server/internal/views/model"
)

func newRedisRepo(t *testing.T, ttl time.Duration) (*RedisSessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisSessionRepository(rdb, ttl), mr
}

// repositories runs the shared contract against both implementations.
func repositories(t *testing.T) map[string]model.SessionRepository {
	r, _ := newRedisRepo(t, time.Hour)
	return map[string]model.SessionRepository{
		"memory": NewMemorySessionRepository(time.Hour),
		"redis":  r,
	}
}

func TestRepository_GetMissingReturnsFreshSession(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			s, err := r.Get(context.Background(), "nobody")
			require.NoError(t, err)
			assert.Equal(t, model.NewSession("nobody"), s)
		})
	}
}

func TestRepository_UpdatePersists(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := r.Update(ctx, "s1", func(s *model.Session) error {
				s.Trends.Category = "Fashion"
				s.Trends.Products = []gwmodel.TrendingProduct{{ID: "1", Title: "Sneakers"}}
				s.SEO.Result = &gwmodel.ListingOptimization{Title: "t", Keywords: []string{"a"}}
				return nil
			})
			require.NoError(t, err)

			s, err := r.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "Fashion", s.Trends.Category)
			require.Len(t, s.Trends.Products, 1)
			assert.Equal(t, "Sneakers", s.Trends.Products[0].Title)
			require.NotNil(t, s.SEO.Result)
			assert.Equal(t, []string{"a"}, s.SEO.Result.Keywords)
		})
	}
}

func TestRepository_UpdateErrorWritesNothing(t *testing.T) {
	boom := errors.New("boom")
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := r.Update(ctx, "s1", func(s *model.Session) error {
				s.Trends.Category = "Fashion"
				return boom
			})
			assert.Same(t, boom, err)

			s, err := r.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, model.DefaultTrendCategory, s.Trends.Category)
		})
	}
}

func TestRepository_ReturnedSessionIsNotAliased(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s, err := r.Update(ctx, "s1", func(s *model.Session) error {
				s.Trends.Products = []gwmodel.TrendingProduct{{ID: "1"}}
				return nil
			})
			require.NoError(t, err)
			s.Trends.Products[0].ID = "mutated"

			again, err := r.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "1", again.Trends.Products[0].ID)
		})
	}
}

func TestRepository_ConcurrentUpdatesAreSerialized(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const workers = 8

			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := r.Update(ctx, "s1", func(s *model.Session) error {
						s.Trends.Seq++
						return nil
					})
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			s, err := r.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, int64(workers), s.Trends.Seq)
		})
	}
}

func TestRedisRepository_TTL(t *testing.T) {
	r, mr := newRedisRepo(t, 10*time.Minute)
	ctx := context.Background()

	_, err := r.Update(ctx, "s1", func(s *model.Session) error {
		s.Trends.Category = "Auto Parts"
		return nil
	})
	require.NoError(t, err)

	key := fmt.Sprintf("session:%s:views", "s1")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 10*time.Minute, mr.TTL(key))

	mr.FastForward(11 * time.Minute)
	s, err := r.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTrendCategory, s.Trends.Category)
}

func TestRedisRepository_CorruptStateResets(t *testing.T) {
	r, mr := newRedisRepo(t, time.Hour)
	require.NoError(t, mr.Set("session:s1:views", "{not json"))

	s, err := r.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.NewSession("s1"), s)
}

func TestRedisRepository_ConnectionError(t *testing.T) {
	r, mr := newRedisRepo(t, time.Hour)
	mr.Close()

	_, err := r.Get(context.Background(), "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis operation failed")
}

func TestMemoryRepository_Expiry(t *testing.T) {
	r := NewMemorySessionRepository(time.Minute)
	now := time.Now()
	r.now = func() time.Time { return now }

	_, err := r.Update(context.Background(), "s1", func(s *model.Session) error {
		s.Trends.Category = "Fashion"
		return nil
	})
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, r.Sweep())

	s, err := r.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTrendCategory, s.Trends.Category)
}

func TestRepository_EmptyListsStayEmpty(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := r.Update(ctx, "s1", func(s *model.Session) error {
				s.SEO.Result = &gwmodel.ListingOptimization{Title: "t", Keywords: []string{}}
				return nil
			})
			require.NoError(t, err)

			s, err := r.Get(ctx, "s1")
			require.NoError(t, err)
			b, err := json.Marshal(s)
			require.NoError(t, err)
			assert.Contains(t, string(b), `"products":[]`)
			assert.Contains(t, string(b), `"keywords":[]`)
		})
	}
}

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Proctor/internal/core"
	"github.com/dkeye/Proctor/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newSession(t *testing.T, title string) *domain.Session {
	t.Helper()
	s, err := domain.NewSession{Title: title, CandidateName: "Alice", HostID: "host1"}.Build(time.Now().UTC())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return s
}

func storeFactories(t *testing.T) map[string]func(t *testing.T) core.SessionStore {
	out := map[string]func(t *testing.T) core.SessionStore{
		"memory": func(t *testing.T) core.SessionStore { return NewMemoryStore() },
	}
	addr := os.Getenv("PROCTOR_TEST_REDIS_ADDR")
	if addr == "" {
		return out
	}
	out["redis"] = func(t *testing.T) core.SessionStore {
		client := redis.NewClient(&redis.Options{Addr: addr})
		t.Cleanup(func() { _ = client.Close() })
		s := NewRedisStore(client, "proctor-test:"+uuid.NewString()+":")
		if err := s.Ping(context.Background()); err != nil {
			t.Skipf("redis unavailable: %v", err)
		}
		return s
	}
	return out
}

func TestStore_CreateGetList(t *testing.T) {
	for name, mk := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := mk(t)
			ctx := context.Background()
			var ids []domain.SessionID
			for i := 0; i < 3; i++ {
				s := newSession(t, fmt.Sprintf("S%d", i))
				if err := st.Create(ctx, s); err != nil {
					t.Fatalf("Create: %v", err)
				}
				ids = append(ids, s.ID)
			}

			got, err := st.Get(ctx, ids[1])
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Title != "S1" || got.Status != domain.StatusScheduled {
				t.Errorf("Get = %+v", got)
			}

			list, err := st.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(list) != 3 {
				t.Fatalf("List len = %d, want 3", len(list))
			}
			for i, s := range list {
				if s.ID != ids[i] {
					t.Errorf("List[%d] = %s, want %s (insertion order)", i, s.ID, ids[i])
				}
			}
		})
	}
}

func TestStore_GetUnknownReturnsNotFound(t *testing.T) {
	for name, mk := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := mk(t)
			_, err := st.Get(context.Background(), "nope")
			if !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("Get err = %v, want ErrNotFound", err)
			}
			_, err = st.Update(context.Background(), "nope", func(*domain.Session) error { return nil })
			if !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("Update err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, mk := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := mk(t)
			ctx := context.Background()
			s := newSession(t, "S1")
			if err := st.Create(ctx, s); err != nil {
				t.Fatalf("Create: %v", err)
			}

			ok, err := st.Delete(ctx, s.ID)
			if err != nil || !ok {
				t.Fatalf("Delete = %v, %v; want true, nil", ok, err)
			}
			ok, err = st.Delete(ctx, s.ID)
			if err != nil || ok {
				t.Errorf("second Delete = %v, %v; want false, nil", ok, err)
			}
			if _, err := st.Get(ctx, s.ID); !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("Get after delete err = %v, want ErrNotFound", err)
			}
			list, _ := st.List(ctx)
			if len(list) != 0 {
				t.Errorf("List after delete len = %d, want 0", len(list))
			}
		})
	}
}

func TestStore_UpdateRollsBackOnError(t *testing.T) {
	for name, mk := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := mk(t)
			ctx := context.Background()
			s := newSession(t, "S1")
			_ = st.Create(ctx, s)

			boom := errors.New("boom")
			_, err := st.Update(ctx, s.ID, func(s *domain.Session) error {
				s.Title = "changed"
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("Update err = %v, want boom", err)
			}
			got, _ := st.Get(ctx, s.ID)
			if got.Title != "S1" {
				t.Errorf("Title = %q, want unchanged", got.Title)
			}
		})
	}
}

func TestStore_UpdateRejectsStatusRegression(t *testing.T) {
	for name, mk := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := mk(t)
			ctx := context.Background()
			s := newSession(t, "S1")
			_ = st.Create(ctx, s)
			now := time.Now()
			if _, err := st.Update(ctx, s.ID, func(s *domain.Session) error { s.End(now); return nil }); err != nil {
				t.Fatalf("End: %v", err)
			}
			_, err := st.Update(ctx, s.ID, func(s *domain.Session) error {
				s.Status = domain.StatusLive
				return nil
			})
			if !errors.Is(err, domain.ErrStatusRegression) {
				t.Errorf("err = %v, want ErrStatusRegression", err)
			}
		})
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	s := newSession(t, "S1")
	_ = st.Create(ctx, s)

	s.Title = "mutated after create"
	got, _ := st.Get(ctx, s.ID)
	got.Title = "mutated after get"
	got.Events = append(got.Events, domain.SessionEvent{Type: "X"})

	again, _ := st.Get(ctx, s.ID)
	if again.Title != "S1" || len(again.Events) != 0 {
		t.Errorf("store leaked a mutable reference: %+v", again)
	}
}

func TestStore_ConcurrentAppendsKeepEveryEvent(t *testing.T) {
	for name, mk := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := mk(t)
			ctx := context.Background()
			s := newSession(t, "S1")
			_ = st.Create(ctx, s)

			const n = 50
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := st.Update(ctx, s.ID, func(s *domain.Session) error {
						s.Append(domain.EventInput{Type: fmt.Sprintf("E%d", i)}, time.Now())
						return nil
					})
					if err != nil {
						t.Errorf("Update: %v", err)
					}
				}(i)
			}
			wg.Wait()

			got, _ := st.Get(ctx, s.ID)
			if len(got.Events) != n {
				t.Fatalf("events = %d, want %d", len(got.Events), n)
			}
			for i := 1; i < len(got.Events); i++ {
				if got.Events[i].Timestamp.Before(got.Events[i-1].Timestamp) {
					t.Errorf("event %d timestamp went backwards", i)
				}
			}
		})
	}
}

func TestMemoryStore_DeleteDuringUpdate(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	s := newSession(t, "S1")
	_ = st.Create(ctx, s)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := st.Update(ctx, s.ID, func(s *domain.Session) error {
			close(entered)
			<-release
			return nil
		})
		done <- err
	}()
	<-entered

	deleted := make(chan bool, 1)
	go func() {
		ok, _ := st.Delete(ctx, s.ID)
		deleted <- ok
	}()
	close(release)
	if err := <-done; err != nil {
		t.Errorf("Update err = %v", err)
	}
	if !<-deleted {
		t.Error("Delete should report true")
	}
	if _, err := st.Get(ctx, s.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get err = %v, want ErrNotFound", err)
	}
}

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/aarondl/opt/omit"

	"github.com/okian/wser/internal/domain/model"
	"github.com/okian/wser/internal/domain/types"
)

type fixtureRunner struct {
	info   model.RunnerInfo
	splits []model.SplitRecord
}

func split(id types.RunnerID, cp string, h, m, s int) model.SplitRecord {
	return model.SplitRecord{RunnerID: id, Checkpoint: cp, Time: model.ClockTime{Hours: h, Minutes: m, Seconds: s}}
}

func fixture() []fixtureRunner {
	return []fixtureRunner{
		{
			info: model.RunnerInfo{ID: "1", Place: 2, FirstName: "Jim", LastName: "Walmsley", Gender: types.GenderMale, Age: 29},
			splits: []model.SplitRecord{
				split("1", "LyonRidge", 1, 20, 0), split("1", "Finish", 15, 54, 0),
			},
		},
		{
			info: model.RunnerInfo{ID: "20", Place: 1, FirstName: "Ann", LastName: "Trason", Gender: types.GenderFemale, Age: 40},
			splits: []model.SplitRecord{
				split("20", "LyonRidge", 1, 30, 0), split("20", "Finish", 16, 0, 0),
			},
		},
		{
			info: model.RunnerInfo{ID: "3", Place: 3, FirstName: "Kaci", LastName: "Walmsley", Gender: types.GenderFemale, Age: 35},
			splits: []model.SplitRecord{
				split("3", "Finish", 17, 59, 24),
			},
		},
		{
			info:   model.RunnerInfo{ID: "4", FirstName: "Dan", LastName: "Dropped", Gender: types.GenderMale, Age: 51},
			splits: []model.SplitRecord{split("4", "LyonRidge", 2, 0, 0)},
		},
		{
			info: model.RunnerInfo{ID: "5", Place: 4, FirstName: "Sam", LastName: "Late", Gender: types.GenderMale, Age: 22},
			splits: []model.SplitRecord{
				split("5", "Finish", 18, 0, 0),
			},
		},
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	sq, err := NewSQLStore(ctx, DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	out := map[string]Store{
		DriverMemory: NewMemStore(ctx),
		DriverSQLite: sq,
	}
	for name, s := range out {
		for _, r := range fixture() {
			if err := s.SaveRunner(ctx, r.info, r.splits); err != nil {
				t.Fatalf("%s: save %s: %v", name, r.info.ID, err)
			}
		}
		t.Cleanup(func() { _ = s.Close() })
	}
	return out
}

func ids(xs ...string) []types.RunnerID {
	out := make([]types.RunnerID, len(xs))
	for i, x := range xs {
		out[i] = types.RunnerID(x)
	}
	return out
}

func equalIDs(a, b []types.RunnerID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStore_Split(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Split(ctx, "Finish", "3")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != (model.ClockTime{Hours: 17, Minutes: 59, Seconds: 24}) {
				t.Errorf("unexpected split %v", got)
			}
			if _, err := s.Split(ctx, "LyonRidge", "3"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound for a missing split, got %v", err)
			}
			if _, err := s.Split(ctx, "Finish", "999"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound for an unknown runner, got %v", err)
			}
		})
	}
}

func TestStore_RunnerIDs(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		filter model.RunnerFilter
		want   []types.RunnerID
	}{
		{"all by place", model.RunnerFilter{}, ids("20", "1", "3", "5", "4")},
		{"women", model.RunnerFilter{Gender: types.GenderFemale}, ids("20", "3")},
		{"finishers", model.RunnerFilter{FinishersOnly: true}, ids("20", "1", "3", "5")},
		{"age band", model.RunnerFilter{MinAge: omit.From(30), MaxAge: omit.From(40)}, ids("20", "3")},
		{"sub 18", model.RunnerFilter{MaxFinishHours: omit.From(18.0)}, ids("20", "1", "3")},
		{"16 to 18", model.RunnerFilter{MinFinishHours: omit.From(16.0), MaxFinishHours: omit.From(18.0)}, ids("20", "3")},
		{"bibs", model.RunnerFilter{Bibs: ids("4", "1")}, ids("1", "4")},
		{"men over 50", model.RunnerFilter{Gender: types.GenderMale, MinAge: omit.From(50)}, ids("4")},
	}
	for name, s := range stores(t) {
		for _, tc := range cases {
			t.Run(name+"/"+tc.name, func(t *testing.T) {
				got, err := s.RunnerIDs(ctx, tc.filter)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !equalIDs(got, tc.want) {
					t.Errorf("expected %v, got %v", tc.want, got)
				}
			})
		}
	}
}

func TestStore_RunnerInfoAndSearch(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			info, err := s.RunnerInfo(ctx, "20")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info.FullName() != "Ann Trason" || info.Gender != types.GenderFemale || info.Age != 40 || info.Place != 1 {
				t.Errorf("unexpected info %+v", info)
			}
			if _, err := s.RunnerInfo(ctx, "999"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}

			search := map[string][]types.RunnerID{
				"20":            ids("20"),
				"walmsley":      ids("1", "3"),
				"Kaci Walmsley": ids("3"),
				"Jim":           ids("1"),
				"Nobody":        nil,
			}
			for term, want := range search {
				got, err := s.Search(ctx, term)
				if err != nil {
					t.Fatalf("search %q: %v", term, err)
				}
				gotIDs := make([]types.RunnerID, len(got))
				for i, r := range got {
					gotIDs[i] = r.ID
				}
				if !equalIDs(gotIDs, want) {
					t.Errorf("search %q: expected %v, got %v", term, want, gotIDs)
				}
			}
			if _, err := s.Search(ctx, "   "); !errors.Is(err, ErrEmptySearch) {
				t.Errorf("expected ErrEmptySearch, got %v", err)
			}
		})
	}
}

func TestStore_FinishStatistics(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			lo, hi, err := s.AgeRange(ctx)
			if err != nil || lo != 22 || hi != 51 {
				t.Errorf("expected age range 22..51, got %d..%d (%v)", lo, hi, err)
			}

			n, err := s.CountInRange(ctx, types.GenderAny, 16, 18)
			if err != nil || n != 2 {
				t.Errorf("expected 2 finishers in [16,18), got %d (%v)", n, err)
			}
			n, err = s.CountInRange(ctx, types.GenderMale, 0, 16)
			if err != nil || n != 1 {
				t.Errorf("expected 1 man under 16h, got %d (%v)", n, err)
			}

			fin, err := s.Finishers(ctx, types.GenderFemale)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(fin) != 2 || fin[0].ID != "20" || fin[0].FinishHours != 16 {
				t.Errorf("unexpected finishers %+v", fin)
			}

			count, err := s.Count(ctx)
			if err != nil || count != 5 {
				t.Errorf("expected 5 runners, got %d (%v)", count, err)
			}
		})
	}
}

func TestStore_SaveReplacesAndReset(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			info := model.RunnerInfo{ID: "4", FirstName: "Dan", LastName: "Dropped", Gender: types.GenderMale, Age: 51}
			if err := s.SaveRunner(ctx, info, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := s.Split(ctx, "LyonRidge", "4"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected replaced runner to lose old splits, got %v", err)
			}

			if err := s.Reset(ctx); err != nil {
				t.Fatalf("reset: %v", err)
			}
			if n, _ := s.Count(ctx); n != 0 {
				t.Errorf("expected empty store, got %d", n)
			}
			if _, _, err := s.AgeRange(ctx); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound on empty store, got %v", err)
			}
		})
	}
}

func TestMemStore_WriteAfterClose(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore(ctx)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := s.SaveRunner(ctx, model.RunnerInfo{ID: "1"}, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := s.Reset(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "memory", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = s.Close()

	if _, err := Open(ctx, "oracle", ""); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestSQLStore_Rebind(t *testing.T) {
	s := &SQLStore{driver: DriverPostgres}
	got := s.rebind("SELECT 1 FROM t WHERE a = ? AND b IN (?, ?)")
	if got != "SELECT 1 FROM t WHERE a = $1 AND b IN ($2, $3)" {
		t.Errorf("unexpected rebind %q", got)
	}
	s.driver = DriverSQLite
	if q := s.rebind("a = ?"); q != "a = ?" {
		t.Errorf("sqlite query should be unchanged, got %q", q)
	}
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/roach88/plexsim/internal/ir"
)

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadRun() error = %v, want sql.ErrNoRows", err)
	}
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("ListRuns() = %#v, want empty non-nil slice", runs)
	}
}

func TestListRuns_CreationOrder(t *testing.T) {
	s := createTestStore(t)

	// IDs deliberately sort opposite to creation order.
	for _, id := range []string{"run-c", "run-b", "run-a"} {
		mustWriteRun(t, s, createTestRun(id, ""))
	}

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	want := []string{"run-c", "run-b", "run-a"}
	for i, run := range runs {
		if run.ID != want[i] || run.Seq != int64(i+1) {
			t.Errorf("runs[%d] = %s (seq %d), want %s (seq %d)", i, run.ID, run.Seq, want[i], i+1)
		}
	}
}

func TestReadSamples_Empty(t *testing.T) {
	s := createTestStore(t)

	samples, err := s.ReadSamples(context.Background(), "nope")
	if err != nil {
		t.Fatalf("ReadSamples() failed: %v", err)
	}
	if samples == nil || len(samples) != 0 {
		t.Errorf("ReadSamples() = %#v, want empty non-nil slice", samples)
	}
}

func TestReadSnapshot_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustWriteRun(t, s, createTestRun("run-1", ""))

	want := createTestSnapshot("run-1", 100)
	id, _, err := s.WriteSnapshot(ctx, want)
	if err != nil {
		t.Fatalf("WriteSnapshot() failed: %v", err)
	}

	got, err := s.ReadSnapshot(ctx, id)
	if err != nil {
		t.Fatalf("ReadSnapshot() failed: %v", err)
	}

	wantDigest := mustDigest(t, want)
	if d := mustDigest(t, got); d != wantDigest {
		t.Errorf("round-trip digest = %s, want %s", d, wantDigest)
	}
	if got.RunID != "run-1" || got.EventCount != 100 || got.Time != 1.5 || got.Seed != 42 {
		t.Errorf("header = %+v", got)
	}
	if len(got.Species) != 3 || got.Species[2].Name != "A-B" || got.Species[2].Population != 1 {
		t.Errorf("species = %+v", got.Species)
	}
	if len(got.Species[2].Complex.Bindings) != 1 {
		t.Errorf("complex bindings lost: %+v", got.Species[2].Complex)
	}
	if len(got.Reactions) != 3 || got.Reactions[1].Generator != "bind/unbind" {
		t.Errorf("reactions = %+v", got.Reactions)
	}
	if got.Reactions[2].Reactants != nil {
		t.Errorf("source reaction reactants = %#v, want nil", got.Reactions[2].Reactants)
	}
}

func TestReadSnapshot_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSnapshot(context.Background(), 99)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadSnapshot() error = %v, want sql.ErrNoRows", err)
	}
}

func TestReadSnapshot_DetectsTampering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustWriteRun(t, s, createTestRun("run-1", ""))

	id, _, err := s.WriteSnapshot(ctx, createTestSnapshot("run-1", 100))
	if err != nil {
		t.Fatalf("WriteSnapshot() failed: %v", err)
	}
	if _, err := s.db.Exec("UPDATE snapshot_species SET population = 50 WHERE snapshot_id = ? AND seq = 0", id); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	_, err = s.ReadSnapshot(ctx, id)
	if !errors.Is(err, ErrDigestMismatch) {
		t.Errorf("ReadSnapshot() error = %v, want ErrDigestMismatch", err)
	}
}

func TestListAndLatestSnapshots(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustWriteRun(t, s, createTestRun("run-1", ""))
	mustWriteRun(t, s, createTestRun("run-2", "run-1"))

	if _, err := s.LatestSnapshot(ctx, ""); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("LatestSnapshot() on empty store error = %v, want sql.ErrNoRows", err)
	}

	var ids []int64
	for _, w := range []struct {
		run    string
		events int64
	}{{"run-1", 10}, {"run-1", 20}, {"run-2", 5}} {
		id, _, err := s.WriteSnapshot(ctx, createTestSnapshot(w.run, w.events))
		if err != nil {
			t.Fatalf("WriteSnapshot() failed: %v", err)
		}
		ids = append(ids, id)
	}

	infos, err := s.ListSnapshots(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListSnapshots() failed: %v", err)
	}
	if len(infos) != 2 || infos[0].EventCount != 10 || infos[1].EventCount != 20 {
		t.Errorf("ListSnapshots(run-1) = %+v", infos)
	}
	if infos[0].Digest == "" {
		t.Error("snapshot digest not stored")
	}

	latest, err := s.LatestSnapshot(ctx, "run-1")
	if err != nil || latest != ids[1] {
		t.Errorf("LatestSnapshot(run-1) = %d, %v; want %d", latest, err, ids[1])
	}
	latest, err = s.LatestSnapshot(ctx, "")
	if err != nil || latest != ids[2] {
		t.Errorf("LatestSnapshot(any) = %d, %v; want %d", latest, err, ids[2])
	}
}

func mustDigest(t *testing.T, snap *ir.Snapshot) string {
	t.Helper()
	d, err := ir.SnapshotDigest(snap)
	if err != nil {
		t.Fatalf("SnapshotDigest() failed: %v", err)
	}
	return d
}

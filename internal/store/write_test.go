package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"

	"github.com/roach88/plexsim/internal/ir"
)

func TestWriteRun_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1", "")
	run.Seed = math.MaxUint64 // high bit set
	mustWriteRun(t, s, run)

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got.Seed != math.MaxUint64 {
		t.Errorf("Seed = %d, want %d", got.Seed, uint64(math.MaxUint64))
	}
	if got.Seq != 1 {
		t.Errorf("Seq = %d, want 1", got.Seq)
	}
	if got.ParentID != "" {
		t.Errorf("ParentID = %q, want empty", got.ParentID)
	}
	if got.EngineVersion != ir.EngineVersion || got.IRVersion != ir.SchemaVersion {
		t.Errorf("versions = %s/%s, want defaults", got.EngineVersion, got.IRVersion)
	}
	if got.Finished() {
		t.Error("new run reports finished")
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustWriteRun(t, s, createTestRun("run-1", ""))
	changed := createTestRun("run-1", "")
	changed.ModelName = "other"
	mustWriteRun(t, s, changed)

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	if runs[0].ModelName != "dimer" {
		t.Errorf("ModelName = %q, second write must be ignored", runs[0].ModelName)
	}
}

func TestWriteRun_InfiniteStopTime(t *testing.T) {
	s := createTestStore(t)

	run := createTestRun("run-1", "")
	run.StopTime = math.Inf(1)
	mustWriteRun(t, s, run)

	got, err := s.ReadRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if !math.IsInf(got.StopTime, 1) {
		t.Errorf("StopTime = %v, want +Inf", got.StopTime)
	}
}

func TestWriteRun_UnknownParent(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteRun(context.Background(), createTestRun("run-2", "missing"))
	if err == nil {
		t.Error("expected foreign key error for unknown parent")
	}
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustWriteRun(t, s, createTestRun("run-1", ""))

	if err := s.FinishRun(ctx, "run-1", "stop_time", 10, 1234); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if !got.Finished() || got.StopReason != "stop_time" {
		t.Errorf("StopReason = %q, want stop_time", got.StopReason)
	}
	if got.SimTime != 10 || got.EventCount != 1234 {
		t.Errorf("SimTime, EventCount = %v, %d; want 10, 1234", got.SimTime, got.EventCount)
	}
}

func TestFinishRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	err := s.FinishRun(context.Background(), "nope", "stop_time", 1, 1)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("FinishRun() error = %v, want sql.ErrNoRows", err)
	}
}

func TestSampleWriter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustWriteRun(t, s, createTestRun("run-1", ""))

	w := s.NewSampleWriter(ctx, "run-1")
	samples := []ir.Sample{
		{Time: 0, EventCount: 0, Populations: []ir.PopulationEntry{{Species: "A", Population: 5}}},
		{Time: 0.5, EventCount: 7, Populations: []ir.PopulationEntry{{Species: "A", Population: 4}, {Species: "AB", Population: 1}}},
		{Time: 1, EventCount: 9},
	}
	for _, sample := range samples {
		if err := w.Record(sample); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}
	if w.Written() != 3 {
		t.Errorf("Written() = %d, want 3", w.Written())
	}

	got, err := s.ReadSamples(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadSamples() failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(samples) = %d, want 3", len(got))
	}
	if got[1].Time != 0.5 || got[1].EventCount != 7 || len(got[1].Populations) != 2 {
		t.Errorf("sample[1] = %+v", got[1])
	}
	if got[2].Populations == nil || len(got[2].Populations) != 0 {
		t.Errorf("empty populations should read back as an empty slice, got %#v", got[2].Populations)
	}

	wantDigest, _ := ir.TrajectoryDigest([]ir.Sample{
		samples[0], samples[1], {Time: 1, EventCount: 9, Populations: []ir.PopulationEntry{}},
	})
	gotDigest, _ := ir.TrajectoryDigest(got)
	if gotDigest != wantDigest {
		t.Error("stored trajectory digest differs from recorded trajectory")
	}
}

func TestSampleWriter_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	w := s.NewSampleWriter(context.Background(), "nope")
	if err := w.Record(ir.Sample{}); err == nil {
		t.Error("expected foreign key error for unknown run")
	}
}

func TestWriteSnapshot_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustWriteRun(t, s, createTestRun("run-1", ""))

	id, inserted, err := s.WriteSnapshot(ctx, createTestSnapshot("run-1", 100))
	if err != nil {
		t.Fatalf("WriteSnapshot() failed: %v", err)
	}
	if !inserted || id == 0 {
		t.Errorf("WriteSnapshot() = (%d, %v), want new row", id, inserted)
	}

	var species, reactions int
	s.db.QueryRow("SELECT COUNT(*) FROM snapshot_species WHERE snapshot_id = ?", id).Scan(&species)
	s.db.QueryRow("SELECT COUNT(*) FROM snapshot_reactions WHERE snapshot_id = ?", id).Scan(&reactions)
	if species != 3 || reactions != 3 {
		t.Errorf("rows = %d species, %d reactions; want 3, 3", species, reactions)
	}
}

func TestWriteSnapshot_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustWriteRun(t, s, createTestRun("run-1", ""))

	id1, _, err := s.WriteSnapshot(ctx, createTestSnapshot("run-1", 100))
	if err != nil {
		t.Fatalf("first WriteSnapshot() failed: %v", err)
	}
	id2, inserted, err := s.WriteSnapshot(ctx, createTestSnapshot("run-1", 100))
	if err != nil {
		t.Fatalf("second WriteSnapshot() failed: %v", err)
	}
	if inserted || id2 != id1 {
		t.Errorf("second write = (%d, %v), want (%d, false)", id2, inserted, id1)
	}

	var species int
	s.db.QueryRow("SELECT COUNT(*) FROM snapshot_species").Scan(&species)
	if species != 3 {
		t.Errorf("species rows = %d, duplicate write must not add rows", species)
	}
}

func TestWriteSnapshot_NegativePopulationRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustWriteRun(t, s, createTestRun("run-1", ""))

	snap := createTestSnapshot("run-1", 5)
	snap.Species[2].Population = -1
	if _, _, err := s.WriteSnapshot(ctx, snap); err == nil {
		t.Fatal("expected CHECK constraint error")
	}

	infos, err := s.ListSnapshots(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListSnapshots() failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("failed snapshot left %d rows behind", len(infos))
	}
}

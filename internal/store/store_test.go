package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/claudemetrics/internal/claude"
	"github.com/blackwell-systems/claudemetrics/internal/metrics"
)

var created = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testRun(uuid string, at time.Time) *Run {
	return &Run{
		UUID:        uuid,
		CreatedAt:   at,
		WindowStart: at.AddDate(0, 0, -30),
		WindowEnd:   at,
		WindowDays:  30,
		Ordering:    "strict",
	}
}

func testValues(at time.Time, sessions float64) map[string]metrics.Value {
	trend := 0.25
	return map[string]metrics.Value{
		"D001": {MetricID: "D001", Value: sessions, Timestamp: at, WindowDays: 30},
		"D030": {MetricID: "D030", Value: "None", Timestamp: at, WindowDays: 30},
		"D039": {
			MetricID:   "D039",
			Value:      map[string]any{"Read": 3, "Edit": 1},
			Timestamp:  at,
			WindowDays: 30,
			Breakdown:  map[string]any{"total": 4},
			Trend:      &trend,
		},
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTest(t)
	require.NoError(t, db.Migrate())

	var version int
	require.NoError(t, db.Conn().QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version))
	assert.Equal(t, 1, version)
}

func TestSaveRun_RoundTrip(t *testing.T) {
	db := openTest(t)

	run := testRun("run-a", created)
	errs := []metrics.MetricError{{MetricID: "D050", Kind: metrics.KindCalculation, Message: "boom"}}
	id, err := db.SaveRun(run, testValues(created, 2), errs)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, 3, run.TotalCalculated)
	assert.Equal(t, 1, run.TotalErrors)

	got, err := db.GetRun(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run-a", got.UUID)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.True(t, got.WindowStart.Equal(created.AddDate(0, 0, -30)))
	assert.Equal(t, 30, got.WindowDays)
	assert.Equal(t, "strict", got.Ordering)
	assert.Equal(t, 3, got.TotalCalculated)
	assert.Equal(t, 1, got.TotalErrors)

	values, err := db.GetRunValues(id)
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, "D001", values[0].MetricID)
	assert.Equal(t, "D030", values[1].MetricID)
	assert.Equal(t, "D039", values[2].MetricID)

	assert.Equal(t, 2.0, values[0].Value)
	require.NotNil(t, values[0].Numeric)
	assert.Equal(t, 2.0, *values[0].Numeric)

	assert.Equal(t, "None", values[1].Value)
	assert.Nil(t, values[1].Numeric)

	assert.Equal(t, map[string]any{"Read": 3.0, "Edit": 1.0}, values[2].Value)
	assert.Equal(t, map[string]any{"total": 4.0}, values[2].Breakdown)
	require.NotNil(t, values[2].Trend)
	assert.Equal(t, 0.25, *values[2].Trend)

	storedErrs, err := db.GetRunErrors(id)
	require.NoError(t, err)
	require.Len(t, storedErrs, 1)
	assert.Equal(t, MetricError{RunID: id, MetricID: "D050", Kind: "calculation", Message: "boom"}, storedErrs[0])
}

func TestSaveRun_DuplicateUUID(t *testing.T) {
	db := openTest(t)
	_, err := db.SaveRun(testRun("dup", created), nil, nil)
	require.NoError(t, err)

	_, err = db.SaveRun(testRun("dup", created), nil, nil)
	assert.Error(t, err)

	runs, err := db.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestGetRun_Missing(t *testing.T) {
	db := openTest(t)

	r, err := db.GetRun(42)
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = db.GetRunByUUID("nope")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := openTest(t)
	for i, uuid := range []string{"r1", "r2", "r3"} {
		_, err := db.SaveRun(testRun(uuid, created.Add(time.Duration(i)*time.Hour)), nil, nil)
		require.NoError(t, err)
	}

	runs, err := db.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].UUID)
	assert.Equal(t, "r2", runs[1].UUID)

	all, err := db.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byUUID, err := db.GetRunByUUID("r1")
	require.NoError(t, err)
	require.NotNil(t, byUUID)
	assert.Equal(t, runs[1].ID-1, byUUID.ID)
}

func TestMetricHistory_OldestFirst(t *testing.T) {
	db := openTest(t)
	for i, n := range []float64{5, 7, 9} {
		at := created.AddDate(0, 0, i)
		_, err := db.SaveRun(testRun("h"+string(rune('a'+i)), at), testValues(at, n), nil)
		require.NoError(t, err)
	}

	points, err := db.MetricHistory("D001", 2)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 7.0, points[0].Value)
	assert.Equal(t, 9.0, points[1].Value)
	assert.True(t, points[0].CreatedAt.Before(points[1].CreatedAt))

	nonNumeric, err := db.MetricHistory("D030", 0)
	require.NoError(t, err)
	assert.Empty(t, nonNumeric)
}

func TestSaveSessions(t *testing.T) {
	db := openTest(t)
	id, err := db.SaveRun(testRun("s", created), nil, nil)
	require.NoError(t, err)

	sessions := []claude.Session{
		{
			ID:            "s1",
			ProjectPath:   "/work/alpha",
			StartTime:     created.Add(-time.Hour),
			EndTime:       created,
			DurationMs:    3600000,
			MessageCount:  4,
			ToolCallCount: 2,
			CostUSD:       1.25,
			Model:         "claude-sonnet-4",
			GitBranch:     "main",
		},
		{ID: "s2", IsAgent: true},
	}
	require.NoError(t, db.SaveSessions(id, sessions))

	rows, err := db.GetRunSessions(id)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "s1", rows[0].SessionID)
	assert.Equal(t, "/work/alpha", rows[0].ProjectPath)
	assert.True(t, rows[0].StartTime.Equal(created.Add(-time.Hour)))
	assert.Equal(t, int64(3600000), rows[0].DurationMs)
	assert.Equal(t, 1.25, rows[0].CostUSD)
	assert.Equal(t, "main", rows[0].GitBranch)
	assert.True(t, rows[1].IsAgent)
	assert.True(t, rows[1].StartTime.IsZero())
}

func TestDeleteRun_Cascades(t *testing.T) {
	db := openTest(t)
	id, err := db.SaveRun(testRun("del", created), testValues(created, 1),
		[]metrics.MetricError{{MetricID: "D050", Kind: metrics.KindPanic, Message: "x"}})
	require.NoError(t, err)
	require.NoError(t, db.SaveSessions(id, []claude.Session{{ID: "s1"}}))

	require.NoError(t, db.DeleteRun(id))

	values, err := db.GetRunValues(id)
	require.NoError(t, err)
	assert.Empty(t, values)
	errs, err := db.GetRunErrors(id)
	require.NoError(t, err)
	assert.Empty(t, errs)
	sessions, err := db.GetRunSessions(id)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

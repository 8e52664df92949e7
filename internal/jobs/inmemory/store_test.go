package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-insights/internal/jobs"
)

func TestStore_SaveAndGetReturnCopies(t *testing.T) {
	s := NewStore()
	job := &jobs.Job{JobID: "j1", Type: jobs.JobTypeProcessStatement, Status: jobs.JobStatusPending}
	require.NoError(t, s.SaveJob(context.Background(), job))

	job.Status = jobs.JobStatusFailed
	got, err := s.GetJob(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, got.Status)

	got.Status = jobs.JobStatusCompleted
	again, _ := s.GetJob(context.Background(), "j1")
	assert.Equal(t, jobs.JobStatusPending, again.Status)
}

func TestStore_Errors(t *testing.T) {
	s := NewStore()
	assert.Error(t, s.SaveJob(context.Background(), &jobs.Job{}))

	_, err := s.GetJob(context.Background(), "missing")
	assert.Error(t, err)
	assert.Error(t, s.UpdateJobStatus(context.Background(), "missing", jobs.JobStatusFailed, "x"))
}

func TestStore_ListJobs(t *testing.T) {
	s := NewStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, tc := range []struct {
		id  string
		typ jobs.JobType
	}{
		{"a", jobs.JobTypeProcessStatement},
		{"b", jobs.JobTypeRenderDashboard},
		{"c", jobs.JobTypeProcessStatement},
		{"d", jobs.JobTypeProcessStatement},
	} {
		require.NoError(t, s.SaveJob(context.Background(), &jobs.Job{
			JobID:     tc.id,
			Type:      tc.typ,
			Status:    jobs.JobStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.UpdateJobStatus(context.Background(), "c", jobs.JobStatusFailed, "boom"))

	ids := func(list []*jobs.Job) []string {
		var out []string
		for _, j := range list {
			out = append(out, j.JobID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all", jobs.JobFilter{}, []string{"a", "b", "c", "d"}},
		{"by type", jobs.JobFilter{Type: jobs.JobTypeProcessStatement}, []string{"a", "c", "d"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusFailed}, []string{"c"}},
		{"paged", jobs.JobFilter{Offset: 1, Limit: 2}, []string{"b", "c"}},
		{"offset past end", jobs.JobFilter{Offset: 10}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	failed, _ := s.GetJob(context.Background(), "c")
	assert.Equal(t, "boom", failed.Error)
}

package sequence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/worksreg/internal/domain/kind"
	"github.com/rpggio/worksreg/internal/domain/sequence"
	"github.com/rpggio/worksreg/internal/repository/mocks"
)

func TestNext(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SequenceRepository{}
	repo.On("IncrementSerial", ctx, kind.MinorRepair).Return(int64(12), nil)

	svc := sequence.NewService(repo, nil)
	n, err := svc.Next(ctx, kind.MinorRepair)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	_, err = svc.Next(ctx, kind.Kind("bridge"))
	assert.ErrorIs(t, err, sequence.ErrAllocation)
	repo.AssertNumberOfCalls(t, "IncrementSerial", 1)
}

func TestNext_StoreFailure(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SequenceRepository{}
	repo.On("IncrementSerial", ctx, kind.Category).Return(int64(0), errors.New("disk I/O error"))

	_, err := sequence.NewService(repo, nil).Next(ctx, kind.Category)
	assert.ErrorIs(t, err, sequence.ErrAllocation)
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestRenumber(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SequenceRepository{}
	repo.On("Renumber", ctx, kind.Category).Return(5, nil).Once()
	repo.On("Renumber", ctx, kind.Category).Return(0, errors.New("locked")).Once()

	svc := sequence.NewService(repo, nil)
	n, err := svc.Renumber(ctx, kind.Category)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = svc.Renumber(ctx, kind.Category)
	assert.ErrorIs(t, err, sequence.ErrAllocation)
}

func TestIsDense(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SequenceRepository{}
	repo.On("SerialStats", ctx, kind.Category).
		Return(sequence.Stats{Count: 3, Distinct: 3, Min: 1, Max: 3, Counter: 3}, nil)
	repo.On("SerialStats", ctx, kind.MinorRepair).
		Return(sequence.Stats{Count: 3, Distinct: 3, Min: 1, Max: 4, Counter: 4}, nil)

	svc := sequence.NewService(repo, nil)
	dense, _, err := svc.IsDense(ctx, kind.Category)
	require.NoError(t, err)
	assert.True(t, dense)

	dense, stats, err := svc.IsDense(ctx, kind.MinorRepair)
	require.NoError(t, err)
	assert.False(t, dense)
	assert.Equal(t, int64(4), stats.Max)
}

func TestStatsDense(t *testing.T) {
	tests := []struct {
		name  string
		stats sequence.Stats
		want  bool
	}{
		{"empty", sequence.Stats{}, true},
		{"empty with stale counter", sequence.Stats{Counter: 2}, false},
		{"dense", sequence.Stats{Count: 2, Distinct: 2, Min: 1, Max: 2, Counter: 2}, true},
		{"gap", sequence.Stats{Count: 2, Distinct: 2, Min: 1, Max: 3, Counter: 3}, false},
		{"missing serial", sequence.Stats{Count: 2, Missing: 1, Distinct: 1, Min: 1, Max: 1, Counter: 2}, false},
		{"duplicate serial", sequence.Stats{Count: 2, Distinct: 1, Min: 1, Max: 1, Counter: 2}, false},
		{"counter ahead", sequence.Stats{Count: 2, Distinct: 2, Min: 1, Max: 2, Counter: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stats.Dense())
		})
	}
}

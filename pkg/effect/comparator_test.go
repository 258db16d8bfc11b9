package effect

import (
	"context"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voluzi/taskpilot/pkg/sampler"
	"github.com/voluzi/taskpilot/pkg/types"
)

func TestCompare(t *testing.T) {
	before := types.MetricSample{CPUPercent: 40.0, MemPercent: 60.0}
	after := types.MetricSample{CPUPercent: 20.0, MemPercent: 55.0}

	record := Compare(before, after)
	assert.Equal(t, -20.0, record.CPUDelta)
	assert.Equal(t, -5.0, record.MemDelta)
	assert.Equal(t, before, record.Before)
	assert.Equal(t, after, record.After)
}

func TestCompare_ArbitraryInputs(t *testing.T) {
	tests := [][4]float64{
		{0, 0, 100, 100},
		{99.5, 12.25, 0.5, 80},
		{33.3, 66.6, 33.3, 66.6},
	}
	for _, test := range tests {
		before := types.MetricSample{CPUPercent: test[0], MemPercent: test[1]}
		after := types.MetricSample{CPUPercent: test[2], MemPercent: test[3]}
		record := Compare(before, after)
		assert.Equal(t, after.CPUPercent-before.CPUPercent, record.CPUDelta)
		assert.Equal(t, after.MemPercent-before.MemPercent, record.MemDelta)
	}
}

func TestComparator_Measure(t *testing.T) {
	mock := sampler.NewMock(
		types.MetricSample{CPUPercent: 40, MemPercent: 60},
		types.MetricSample{CPUPercent: 20, MemPercent: 55},
	)
	c := New(mock, WithWait(5*time.Millisecond))

	actionCalled := false
	record, err := c.Measure(context.Background(), func(ctx context.Context) (*types.ActionEvent, error) {
		actionCalled = true
		assert.Equal(t, 1, mock.Calls())
		return &types.ActionEvent{Action: "terminate", PID: 1234}, nil
	})
	require.NoError(t, err)

	assert.True(t, actionCalled)
	assert.Equal(t, 2, mock.Calls())
	assert.Equal(t, -20.0, record.CPUDelta)
	assert.Equal(t, -5.0, record.MemDelta)
	assert.Equal(t, 0, record.Before.Tick)
	assert.Equal(t, 1, record.After.Tick)
	assert.True(t, record.Before.Time.Before(record.After.Time))
	require.NotNil(t, record.Action)
	assert.Equal(t, int32(1234), record.Action.PID)
}

func TestComparator_MeasureWithoutAction(t *testing.T) {
	mock := sampler.NewMock(types.MetricSample{CPUPercent: 10, MemPercent: 10})
	record, err := New(mock, WithWait(0)).Measure(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, record.CPUDelta)
	assert.Nil(t, record.Action)
}

func TestComparator_MeasureActionError(t *testing.T) {
	mock := sampler.NewMock(types.MetricSample{CPUPercent: 10, MemPercent: 10})
	actionErr := errors.New("no event")

	_, err := New(mock).Measure(context.Background(), func(context.Context) (*types.ActionEvent, error) {
		return nil, actionErr
	})
	assert.True(t, errors.Is(err, actionErr))
	assert.Equal(t, 1, mock.Calls())
}

func TestComparator_MeasureCancelledDuringWait(t *testing.T) {
	mock := sampler.NewMock(types.MetricSample{CPUPercent: 10, MemPercent: 10})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	record, err := New(mock, WithWait(time.Minute)).Measure(ctx, nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 10.0, record.Before.CPUPercent)
	assert.Equal(t, 1, mock.Calls())
}

package pipeline_test

import (
	"context"
	"math"
	"time"

	"emperror.dev/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/voluzi/taskpilot/pkg/pipeline"
	"github.com/voluzi/taskpilot/pkg/sampler"
	"github.com/voluzi/taskpilot/pkg/timeseries"
	"github.com/voluzi/taskpilot/pkg/types"
)

func readings(n int) []types.MetricSample {
	result := make([]types.MetricSample, n)
	for i := range result {
		result[i] = types.MetricSample{CPUPercent: float64(10 + i), MemPercent: 50}
	}
	return result
}

var _ = Describe("Fill", func() {
	It("fills the buffer to capacity with increasing ticks", func() {
		mock := sampler.NewMock(readings(10)...)
		buf := timeseries.New(5)

		var observed []int
		err := pipeline.Fill(context.Background(), mock, buf, pipeline.Immediate{}, func(s types.MetricSample) {
			observed = append(observed, s.Tick)
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.IsFull()).To(BeTrue())
		Expect(mock.Calls()).To(Equal(5))
		Expect(observed).To(Equal([]int{0, 1, 2, 3, 4}))

		series := buf.Snapshot()
		for i, s := range series {
			Expect(s.Tick).To(Equal(i))
			Expect(s.CPUPercent).To(Equal(float64(10 + i)))
		}
	})

	It("leaves a well-formed partial buffer when cancelled between ticks", func() {
		mock := sampler.NewMock(readings(3)...)
		buf := timeseries.New(10)
		ctx, cancel := context.WithCancel(context.Background())

		err := pipeline.Fill(ctx, mock, buf, pipeline.Immediate{}, func(s types.MetricSample) {
			if s.Tick == 2 {
				cancel()
			}
		})
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(buf.Len()).To(Equal(3))
		Expect(buf.IsFull()).To(BeFalse())
		for i, s := range buf.Snapshot() {
			Expect(s.Tick).To(Equal(i))
		}
	})

	It("drops a reading cut short by cancellation", func() {
		mock := sampler.NewMock(readings(1)...)
		mock.SetWindow(time.Minute)
		buf := timeseries.New(3)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := pipeline.Fill(ctx, mock, buf, pipeline.Immediate{}, nil)
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		Expect(buf.Len()).To(Equal(0))
	})

	It("does nothing on an already full buffer", func() {
		mock := sampler.NewMock(readings(1)...)
		buf := timeseries.New(1)
		buf.Append(types.MetricSample{})

		Expect(pipeline.Fill(context.Background(), mock, buf, nil, nil)).To(Succeed())
		Expect(mock.Calls()).To(Equal(0))
	})
})

var _ = Describe("Interval ticks", func() {
	It("spaces ticks by the period", func() {
		ticks := pipeline.NewTicks(20 * time.Millisecond)
		ctx := context.Background()

		start := time.Now()
		for i := 0; i < 3; i++ {
			Expect(ticks.Wait(ctx)).To(Succeed())
		}
		Expect(time.Since(start)).To(BeNumerically(">=", 40*time.Millisecond))
	})

	It("returns immediately for a zero period", func() {
		Expect(pipeline.NewTicks(0)).To(Equal(pipeline.Immediate{}))
	})

	It("stops waiting when the context ends", func() {
		ticks := pipeline.NewTicks(time.Hour)
		Expect(ticks.Wait(context.Background())).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(ticks.Wait(ctx)).To(MatchError(context.Canceled))
	})
})

var _ = Describe("Pipeline", func() {
	var mock *sampler.Mock

	BeforeEach(func() {
		mock = sampler.NewMock(readings(40)...)
		mock.SetProcesses([]types.ProcessEntry{
			{PID: 1, Name: "init", CPUPercent: 50, MemPercent: 1},
			{PID: 2, Name: "db", CPUPercent: 90, MemPercent: 20},
			{PID: 3, Name: "sh", CPUPercent: 10, MemPercent: 0.1},
			{PID: 4, Name: "web", CPUPercent: 90, MemPercent: 5},
			{PID: 5, Name: "cron", CPUPercent: 5, MemPercent: 0.2},
			{PID: 6, Name: "agent", CPUPercent: 30, MemPercent: 2},
			{PID: 7, Name: "zombie", CPUPercent: math.NaN(), MemPercent: math.NaN()},
		})
	})

	It("produces every output of a full run", func() {
		p := pipeline.New(mock,
			pipeline.WithCapacity(5),
			pipeline.WithTopK(5),
			pipeline.WithSeed(1),
			pipeline.WithComparison(nil, 0),
		)

		report, err := p.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(report.RunID).NotTo(BeEmpty())
		Expect(report.Partial).To(BeFalse())
		Expect(report.Series).To(HaveLen(5))

		pids := make([]int32, len(report.Top))
		for i, e := range report.Top {
			pids[i] = e.PID
		}
		Expect(pids).To(Equal([]int32{2, 4, 1, 6, 3}))

		Expect(report.Anomalies.Source).To(Equal(pipeline.SourceProcessCPU))
		Expect(report.Anomalies.Results).To(HaveLen(7))
		Expect(report.Anomalies.PIDs).To(Equal([]int32{1, 2, 3, 4, 5, 6, 7}))
		Expect(report.Anomalies.Results[6].IsAnomalous).To(BeFalse())

		Expect(report.Comparison).NotTo(BeNil())
		Expect(report.Comparison.Before.Tick).To(Equal(0))
		Expect(report.Comparison.After.Tick).To(Equal(1))
		Expect(mock.Calls()).To(Equal(7))
	})

	It("scores the synthetic batch when asked", func() {
		p := pipeline.New(mock, pipeline.WithCapacity(1), pipeline.WithSynthetic(true), pipeline.WithSeed(42))

		report, err := p.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Anomalies.Source).To(Equal(pipeline.SourceSynthetic))
		Expect(report.Anomalies.Values).To(HaveLen(pipeline.SyntheticBatchSize))
		Expect(len(report.Anomalies.Flagged())).To(BeNumerically("~", 5, 1))
		Expect(report.Comparison).To(BeNil())
	})

	It("aborts before sampling when metrics are unavailable", func() {
		mock.SetProbeError(sampler.ErrMetricsUnavailable)

		report, err := pipeline.New(mock).Run(context.Background())
		Expect(errors.Is(err, sampler.ErrMetricsUnavailable)).To(BeTrue())
		Expect(report).To(BeNil())
		Expect(mock.Calls()).To(Equal(0))
	})

	It("returns the partial series when cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		p := pipeline.New(mock, pipeline.WithCapacity(30), pipeline.WithSampleObserver(func(s types.MetricSample) {
			if s.Tick == 3 {
				cancel()
			}
		}))

		report, err := p.Run(ctx)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(report.Partial).To(BeTrue())
		Expect(report.Series).To(HaveLen(4))
		Expect(report.Top).To(BeEmpty())
	})

	It("rejects an invalid contamination", func() {
		_, err := pipeline.New(mock, pipeline.WithCapacity(1), pipeline.WithContamination(1.5)).Run(context.Background())
		Expect(err).To(HaveOccurred())
	})
})

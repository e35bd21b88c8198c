package downsample

import (
	"testing"

	"oi-radar/internal/domain"
)

func makeSeries(n int) domain.SymbolSeries {
	series := make(domain.SymbolSeries, 0, n)
	for i := 0; i < n; i++ {
		series = append(series, &domain.SamplePoint{
			Symbol:       "BTCUSDT",
			TimestampMs:  int64(1000 * (i + 1)),
			Price:        float64(i),
			OpenInterest: float64(i),
		})
	}
	return series
}

func TestSeries_NoOpNearTarget(t *testing.T) {
	// 300 <= 1.5 * 200: unchanged, same backing identity.
	series := makeSeries(300)

	out := Series(series, 200)

	if len(out) != 300 {
		t.Fatalf("expected untouched series, got %d points", len(out))
	}
	for i := range out {
		if out[i] != series[i] {
			t.Fatalf("point %d: expected identical point", i)
		}
	}
}

func TestSeries_NoOpBoundary(t *testing.T) {
	// Exactly at 1.5x stays unchanged; a stride-1 pass past the boundary
	// keeps every point, and reduction kicks in once the stride reaches 2.
	if got := Series(makeSeries(300), 200); len(got) != 300 {
		t.Errorf("len 300, target 200: expected no-op, got %d", len(got))
	}
	if got := Series(makeSeries(301), 200); len(got) != 301 {
		t.Errorf("len 301, target 200: expected all points kept, got %d", len(got))
	}
	if got := Series(makeSeries(400), 200); len(got) != 201 {
		t.Errorf("len 400, target 200: expected 201 points, got %d", len(got))
	}
}

func TestSeries_StrideSelection(t *testing.T) {
	// 1000 points, target 200: stride 5, positions 0,5,10,...,995 = 200
	// points; position 995 is not the last input point, so 999 is appended.
	series := makeSeries(1000)

	out := Series(series, 200)

	if len(out) != 201 {
		t.Fatalf("expected 201 points, got %d", len(out))
	}
	if out[0] != series[0] {
		t.Error("expected first point preserved")
	}
	if out[1] != series[5] {
		t.Error("expected stride-5 selection")
	}
}

func TestSeries_AlwaysEndsAtLastPoint(t *testing.T) {
	for _, n := range []int{301, 500, 777, 1000, 4000} {
		series := makeSeries(n)
		out := Series(series, 200)

		if out[len(out)-1] != series[len(series)-1] {
			t.Errorf("n=%d: expected output to end at the input's last point", n)
		}
	}
}

func TestSeries_ValuesUntouched(t *testing.T) {
	series := makeSeries(1000)

	out := Series(series, 100)

	for _, p := range out {
		// Selected points are the input's own points, not copies.
		if series[(p.TimestampMs/1000)-1] != p {
			t.Fatalf("point at ts %d is not an input point", p.TimestampMs)
		}
	}
}

func TestSeries_DegenerateTargets(t *testing.T) {
	series := makeSeries(10)

	if got := Series(series, 0); len(got) != 10 {
		t.Errorf("target 0: expected input unchanged, got %d", len(got))
	}
	if got := Series(nil, 200); got != nil {
		t.Errorf("nil input: expected nil, got %v", got)
	}
}

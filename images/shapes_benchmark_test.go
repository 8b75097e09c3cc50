package images

import (
	"math/rand"
	"testing"
)

// BenchmarkIoU_NonOverlapping tests rectangles that don't overlap, which
// returns before the union is computed.
func BenchmarkIoU_NonOverlapping(b *testing.B) {
	rect1 := Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}
	rect2 := Rect{X1: 200, Y1: 200, X2: 300, Y2: 300}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(rect1, rect2)
	}
}

// BenchmarkIoU_FullOverlap tests identical rectangles (IoU = 1.0).
func BenchmarkIoU_FullOverlap(b *testing.B) {
	rect1 := Rect{X1: 50, Y1: 50, X2: 150, Y2: 150}
	rect2 := Rect{X1: 50, Y1: 50, X2: 150, Y2: 150}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(rect1, rect2)
	}
}

// BenchmarkIoU_PartialOverlap tests the common 0.3-0.7 IoU case seen when
// suppressing duplicate detections.
func BenchmarkIoU_PartialOverlap(b *testing.B) {
	rect1 := Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}
	rect2 := Rect{X1: 50, Y1: 50, X2: 150, Y2: 150}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(rect1, rect2)
	}
}

// BenchmarkIoU_RandomPairs tests boxes decoded from a 640x640 model input.
func BenchmarkIoU_RandomPairs(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	const numPairs = 1000
	pairs := make([][2]Rect, numPairs)
	for i := range pairs {
		for j := 0; j < 2; j++ {
			pairs[i][j] = FromCenter(
				rng.Float32()*640, rng.Float32()*640,
				rng.Float32()*200+1, rng.Float32()*200+1,
			)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		p := pairs[i%numPairs]
		_ = CalculateIoU(p[0], p[1])
	}
}

// BenchmarkRect_Scale tests mapping a box from model input space back to a
// 1920x1080 frame.
func BenchmarkRect_Scale(b *testing.B) {
	sx, sy := ScaleFactors(Size{Width: 640, Height: 640}, Size{Width: 1920, Height: 1080})
	rect := FromCenter(320, 320, 100, 60)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = rect.Scale(sx, sy)
	}
}

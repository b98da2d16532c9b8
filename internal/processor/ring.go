package processor

import "wisefido-vitals/internal/models"

// floatRing 固定容量的 float64 环形缓冲，写满后自动覆盖最旧值
type floatRing struct {
	data []float64
	pos  int
	full bool
	cap  int
}

func newFloatRing(capacity int) *floatRing {
	return &floatRing{
		data: make([]float64, capacity),
		cap:  capacity,
	}
}

// Push 追加一个值，必要时淘汰最旧值
func (r *floatRing) Push(v float64) {
	r.data[r.pos] = v
	r.pos++
	if r.pos >= r.cap {
		r.pos = 0
		r.full = true
	}
}

// Len 返回当前元素个数
func (r *floatRing) Len() int {
	if r.full {
		return r.cap
	}
	return r.pos
}

// Slice 按插入顺序返回内容副本（最旧在前）
func (r *floatRing) Slice() []float64 {
	n := r.Len()
	out := make([]float64, n)
	if r.full {
		copy(out, r.data[r.pos:])
		copy(out[r.cap-r.pos:], r.data[:r.pos])
	} else {
		copy(out, r.data[:r.pos])
	}
	return out
}

// LastN 返回最近 n 个值的副本（不足 n 个时返回全部）
func (r *floatRing) LastN(n int) []float64 {
	all := r.Slice()
	if len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}

// measurementRing 固定容量的融合记录环形缓冲
type measurementRing struct {
	data []models.Measurement
	pos  int
	full bool
	cap  int
}

func newMeasurementRing(capacity int) *measurementRing {
	return &measurementRing{
		data: make([]models.Measurement, capacity),
		cap:  capacity,
	}
}

// Push 追加一条记录，必要时淘汰最旧记录
func (r *measurementRing) Push(m models.Measurement) {
	r.data[r.pos] = m
	r.pos++
	if r.pos >= r.cap {
		r.pos = 0
		r.full = true
	}
}

// Len 返回当前记录条数
func (r *measurementRing) Len() int {
	if r.full {
		return r.cap
	}
	return r.pos
}

// Last 返回最近一条记录的指针（落库前覆写心率用），空环返回 nil
func (r *measurementRing) Last() *models.Measurement {
	if r.Len() == 0 {
		return nil
	}
	idx := r.pos - 1
	if idx < 0 {
		idx = r.cap - 1
	}
	return &r.data[idx]
}

// Slice 按插入顺序返回记录副本（最旧在前）
func (r *measurementRing) Slice() []models.Measurement {
	n := r.Len()
	out := make([]models.Measurement, n)
	if r.full {
		copy(out, r.data[r.pos:])
		copy(out[r.cap-r.pos:], r.data[:r.pos])
	} else {
		copy(out, r.data[:r.pos])
	}
	return out
}

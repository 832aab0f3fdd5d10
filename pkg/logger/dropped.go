package logger

import "sync/atomic"

type droppedCounter struct {
	n atomic.Int64
}

func (d *droppedCounter) add() {
	d.n.Add(1)
}

func (d *droppedCounter) take() int64 {
	return d.n.Swap(0)
}

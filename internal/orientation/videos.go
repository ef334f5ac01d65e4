package orientation

// VideoStepper walks through the orientation videos one at a time.
type VideoStepper struct {
	total   int
	current int // index of the video on screen; total once finished
}

// NewVideoStepper creates a stepper over total videos.
func NewVideoStepper(total int) *VideoStepper {
	if total < 0 {
		total = 0
	}
	return &VideoStepper{total: total}
}

func (v *VideoStepper) Total() int { return v.total }

// Position is the one-based number shown as "Video N of Total".
func (v *VideoStepper) Position() int {
	if v.current >= v.total {
		return v.total
	}
	return v.current + 1
}

// Next marks the current video watched and reports whether all are done.
func (v *VideoStepper) Next() bool {
	if v.current < v.total {
		v.current++
	}
	return v.Done()
}

// Done reports whether the last video has been watched.
func (v *VideoStepper) Done() bool {
	return v.current >= v.total
}

// Advance marks n videos watched.
func (v *VideoStepper) Advance(n int) bool {
	for i := 0; i < n && !v.Done(); i++ {
		v.Next()
	}
	return v.Done()
}

package display

import "sync"

// Op is one recorded Presenter call.
type Op struct {
	X, Y int
	Text string
	Size int
}

// Recorder is a Presenter that captures frames for test assertions.
type Recorder struct {
	mu      sync.Mutex
	cursorX int
	cursorY int
	pending []Op

	// Frames contains the ops of every rendered frame.
	Frames [][]Op

	// Clears counts Clear calls.
	Clears int

	// RenderError, if set, will be returned by Render.
	RenderError error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	r.pending = nil
	r.Clears++
	r.mu.Unlock()
}

func (r *Recorder) SetCursor(x, y int) {
	r.mu.Lock()
	r.cursorX, r.cursorY = x, y
	r.mu.Unlock()
}

func (r *Recorder) WriteString(text string, size int) {
	r.mu.Lock()
	r.pending = append(r.pending, Op{X: r.cursorX, Y: r.cursorY, Text: text, Size: size})
	r.cursorX += len(text) * glyphWidth * size
	r.mu.Unlock()
}

func (r *Recorder) Render() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RenderError != nil {
		return r.RenderError
	}
	r.Frames = append(r.Frames, r.pending)
	r.pending = nil
	return nil
}

// Last returns the ops of the last rendered frame, nil if none.
func (r *Recorder) Last() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Frames) == 0 {
		return nil
	}
	return r.Frames[len(r.Frames)-1]
}

// Texts returns the strings of the last rendered frame.
func (r *Recorder) Texts() []string {
	var out []string
	for _, op := range r.Last() {
		out = append(out, op.Text)
	}
	return out
}

// Count returns the number of rendered frames.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Frames)
}

// Package mjpeg streams the weight texture of the focused connection as a
// motion JPEG over HTTP.
package mjpeg

import (
	"bytes"
	"image/jpeg"
	"net/http"

	"github.com/gorgonia/dbn/monitor"
	"github.com/gorgonia/dbn/rbm"
	"github.com/mattn/go-mjpeg"
)

// Stream implements monitor.Sink and http.Handler. Only snapshots of the
// connection the recorder is focused on are streamed, scaled with the
// recorder's current threshold.
type Stream struct {
	Zoom int

	rec    *monitor.Recorder
	stream *mjpeg.Stream
	frames int
}

// New creates a stream that follows rec's focus and threshold.
func New(rec *monitor.Recorder, zoom int) *Stream {
	return &Stream{
		Zoom:   zoom,
		rec:    rec,
		stream: mjpeg.NewStream(),
	}
}

func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.stream.ServeHTTP(w, r)
}

// Frames is the number of frames pushed to the stream.
func (s *Stream) Frames() int { return s.frames }

func (s *Stream) Encode(st rbm.Stats) error {
	if st.Weights == nil || st.Connection != s.rec.Focus() {
		return nil
	}
	im := monitor.Gray(monitor.Scale(st.Weights, s.rec.Threshold()), s.Zoom)
	var b bytes.Buffer
	if err := jpeg.Encode(&b, im, nil); err != nil {
		return err
	}
	if err := s.stream.Update(b.Bytes()); err != nil {
		return err
	}
	s.frames++
	return nil
}

func (s *Stream) Flush() error { return nil }

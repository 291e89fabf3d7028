// Package ws pushes training reports to browsers over a websocket and
// accepts operator key presses from them.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"unicode/utf8"

	"github.com/gorgonia/dbn/rbm"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{} // use default options

// report is a Stats without the weights.
type report struct {
	Connection int      `json:"connection"`
	Epoch      int      `json:"epoch"`
	Batch      int      `json:"batch"`
	EpochEnd   bool     `json:"epoch_end"`
	Cost       float32  `json:"cost"`
	TestCost   *float32 `json:"test_cost,omitempty"`
	Visible    *float32 `json:"visible_energy,omitempty"`
	Hidden     *float32 `json:"hidden_energy,omitempty"`
	Rate       float32  `json:"rate"`
}

// Server implements monitor.Sink and http.Handler. Reports are dropped
// rather than stall training when no client keeps up.
type Server struct {
	keys    map[rune]func()
	reports chan []byte
	logger  *log.Logger
}

// New creates a server. Every text message a client sends is looked up in
// keys by its first rune; typically keys is monitor.Recorder.Keys.
func New(keys map[rune]func(), backlog int, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(nopWriter{}, "", 0)
	}
	return &Server{
		keys:    keys,
		reports: make(chan []byte, backlog),
		logger:  logger,
	}
}

func (s *Server) Encode(st rbm.Stats) error {
	r := report{
		Connection: st.Connection,
		Epoch:      st.Epoch,
		Batch:      st.Batch,
		EpochEnd:   st.EpochEnd,
		Cost:       st.Cost,
		Rate:       st.Rate,
	}
	if st.HasTest {
		r.TestCost = &st.TestCost
	}
	if st.Visible.Available {
		r.Visible = &st.Visible.Value
	}
	if st.Hidden.Available {
		r.Hidden = &st.Hidden.Value
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	select {
	case s.reports <- b:
	default:
	}
	return nil
}

func (s *Server) Flush() error { return nil }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Print("upgrade:", err)
		return
	}
	defer c.Close()

	done := make(chan struct{})
	go s.readKeys(c, done)
	for {
		var b []byte
		select {
		case b = <-s.reports:
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
		if err = c.WriteMessage(websocket.TextMessage, b); err != nil {
			s.logger.Println("write:", err)
			return
		}
	}
}

func (s *Server) readKeys(c *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		key, _ := utf8.DecodeRune(msg)
		if f, ok := s.keys[key]; ok {
			f()
		} else {
			s.logger.Printf("unbound key %q", key)
		}
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

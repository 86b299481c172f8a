package mediatortest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/signx/internal/transport"
)

// Reply is one scripted answer.
type Reply struct {
	// Status is the HTTP status; 0 means 200.
	Status   int
	Envelope transport.Envelope
	// Raw replaces the encoded envelope when set.
	Raw string
	// Hold parks the request until the client aborts it or the server closes.
	Hold bool
	// Delay is slept before answering.
	Delay time.Duration
}

// Request is a recorded call.
type Request struct {
	Route string
	Body  json.RawMessage
	Token string
	At    time.Time
}

// Decode unmarshals the recorded body into out.
func (r Request) Decode(out any) error {
	return json.Unmarshal(r.Body, out)
}

// Server is a scripted mediator.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	scripts  map[string][]Reply
	requests []Request
	held     chan struct{}
	closing  chan struct{}
	once     sync.Once
}

// New starts a mediator. Routes without a script answer with Continue.
func New() *Server {
	s := &Server{
		scripts: make(map[string][]Reply),
		held:    make(chan struct{}, 64),
		closing: make(chan struct{}),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Close releases held requests and shuts the server down.
func (s *Server) Close() {
	s.once.Do(func() { close(s.closing) })
	s.Server.Close()
}

// Script appends replies to route's queue.
func (s *Server) Script(route string, replies ...Reply) {
	s.mu.Lock()
	s.scripts[route] = append(s.scripts[route], replies...)
	s.mu.Unlock()
}

// Reset replaces route's queue.
func (s *Server) Reset(route string, replies ...Reply) {
	s.mu.Lock()
	s.scripts[route] = append([]Reply(nil), replies...)
	s.mu.Unlock()
}

// Requests returns the recorded calls to route, or all calls for "".
func (s *Server) Requests(route string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, 0, len(s.requests))
	for _, r := range s.requests {
		if route == "" || r.Route == route {
			out = append(out, r)
		}
	}
	return out
}

// Calls counts the recorded calls to route.
func (s *Server) Calls(route string) int {
	return len(s.Requests(route))
}

// Held is signalled each time a Hold reply parks a request.
func (s *Server) Held() <-chan struct{} {
	return s.held
}

func (s *Server) next(route string) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.scripts[route]
	switch len(queue) {
	case 0:
		return Continue()
	case 1:
		return queue[0]
	}
	s.scripts[route] = queue[1:]
	return queue[0]
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Route: r.URL.Path,
		Body:  body,
		Token: strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "),
		At:    time.Now(),
	})
	s.mu.Unlock()

	reply := s.next(r.URL.Path)
	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-r.Context().Done():
			return
		}
	}
	if reply.Hold {
		select {
		case s.held <- struct{}{}:
		default:
		}
		select {
		case <-r.Context().Done():
		case <-s.closing:
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if reply.Raw != "" {
		_, _ = io.WriteString(w, reply.Raw)
		return
	}
	_ = json.NewEncoder(w).Encode(reply.Envelope)
}

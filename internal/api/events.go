// ABOUTME: Server-Sent Events stream of exchange domain events
// ABOUTME: Replays the outbox after ?after=seq, then follows live events and refills gaps

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/adledger/internal/events"
)

// keepaliveInterval spaces SSE comment lines that keep idle proxies from
// closing the stream.
const keepaliveInterval = 15 * time.Second

// replayPageSize is the outbox page size used while catching a client up.
const replayPageSize = 500

// handleEvents handles GET /api/events. With ?after=N it first sends every
// persisted event with a higher sequence number.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		s.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var after int64
	replay := false
	if raw := r.URL.Query().Get("after"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			s.sendError(w, r, badRequest("invalid after %q", raw))
			return
		}
		after, replay = n, true
	}

	ctx := r.Context()

	// Subscribe before replaying so nothing emitted in between is lost
	live, subID := s.events.Subscribe(ctx)
	defer s.events.Unsubscribe(subID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if replay {
		if after, ok = s.replayEvents(ctx, w, flusher, after); !ok {
			return
		}
	}

	s.streamEvents(ctx, w, flusher, live, after, replay)
}

// replayEvents sends every persisted event after the given sequence and
// returns the last sequence sent. It reports false when the outbox read
// failed and the stream should end.
func (s *Server) replayEvents(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, after int64) (int64, bool) {
	for {
		page, err := s.events.Replay(ctx, after, replayPageSize)
		if err != nil {
			s.logger.Error("failed to replay events", "after", after, "error", err)
			s.writeSSEEvent(w, "error", 0, map[string]string{"error": "replay failed"})
			flusher.Flush()
			return after, false
		}
		for _, e := range page {
			s.writeSSEEvent(w, string(e.Type), e.Seq, e)
			after = e.Seq
		}
		flusher.Flush()
		if len(page) < replayPageSize {
			return after, true
		}
	}
}

// streamEvents follows live until it closes or ctx ends. Once a sequence
// baseline is known, a jump in Seq means the subscriber buffer overflowed
// and the missing range is read back from the outbox.
func (s *Server) streamEvents(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, live <-chan events.Event, after int64, tracking bool) {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case e, ok := <-live:
			if !ok {
				return
			}
			if e.Seq != 0 && tracking {
				// Already sent
				if e.Seq <= after {
					continue
				}
				if e.Seq > after+1 {
					s.logger.Debug("filling event gap from outbox", "after", after, "seq", e.Seq)
					if after, ok = s.replayEvents(ctx, w, flusher, after); !ok {
						return
					}
					continue
				}
			}
			s.writeSSEEvent(w, string(e.Type), e.Seq, e)
			flusher.Flush()
			if e.Seq != 0 {
				after, tracking = e.Seq, true
			}
		}
	}
}

// writeSSEEvent writes a single SSE event. A zero seq omits the id line.
func (s *Server) writeSSEEvent(w http.ResponseWriter, event string, seq int64, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	if seq != 0 {
		fmt.Fprintf(w, "id: %d\n", seq)
	}
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}


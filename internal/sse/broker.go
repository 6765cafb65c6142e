// Package sse streams run progress and diary changes to browsers as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/diarysum/internal/models"
)

// Event types.
const (
	TypeRunStarted    = "run.started"
	TypeFileProcessed = "file.processed"
	TypeRunFinished   = "run.finished"
	TypeDiaryChanged  = "diary.changed"
	TypeDiaryRemoved  = "diary.removed"
	TypeRecentUpdated = "recent.updated"
)

// Heartbeat is how often an idle stream receives a comment line.
const Heartbeat = 25 * time.Second

// Event is one message for every connected client.
type Event struct {
	Type string
	Data any
}

// DiaryData names the diary an event refers to.
type DiaryData struct {
	Name string `json:"name"`
}

// RunStartedData opens a run.
type RunStartedData struct {
	RunID  string `json:"run_id"`
	Folder string `json:"folder"`
}

// FileProcessedData carries one file outcome of a run.
type FileProcessedData struct {
	RunID   string         `json:"run_id"`
	Outcome models.Outcome `json:"outcome"`
}

// RunFinishedData closes a run with its report.
type RunFinishedData struct {
	RunID   string         `json:"run_id"`
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Report  *models.Report `json:"report"`
}

type diaryEvent struct {
	kind string
	name string
}

// Broker fans events out to SSE clients.
//
// One loop goroutine owns the client set, the message sequence and the
// recent.updated throttle; public methods talk to it over channels.
type Broker struct {
	recentMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	diaryCh       chan diaryEvent
	countCh       chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. recentThrottle bounds how often recent.updated
// is emitted while diaries change.
func NewBroker(recentThrottle time.Duration) *Broker {
	if recentThrottle <= 0 {
		recentThrottle = 2 * time.Second
	}

	b := &Broker{
		recentMin:     recentThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		diaryCh:       make(chan diaryEvent, 256),
		countCh:       make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.loop()
	return b
}

// encode renders one SSE frame. The id lets clients see gaps after a drop.
func encode(id uint64, e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", id, e.Type, payload), nil
}

func (b *Broker) loop() {
	defer close(b.stopped)

	var (
		clients    = make(map[chan []byte]struct{})
		seq        uint64
		lastRecent time.Time
	)

	send := func(e Event) {
		seq++
		frame, err := encode(seq, e)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- frame:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case e := <-b.publishCh:
			send(e)

		case de := <-b.diaryCh:
			switch de.kind {
			case "changed":
				send(Event{Type: TypeDiaryChanged, Data: DiaryData{Name: de.name}})
			case "removed":
				send(Event{Type: TypeDiaryRemoved, Data: DiaryData{Name: de.name}})
			}
			if now := time.Now(); now.Sub(lastRecent) >= b.recentMin {
				lastRecent = now
				send(Event{Type: TypeRecentUpdated, Data: struct{}{}})
			}

		case resp := <-b.countCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel. Safe to call twice.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish queues an event for every client. A no-op after Close.
func (b *Broker) Publish(e Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- e:
	case <-b.stopped:
	}
}

// PublishDiaryEvent reports a diary change ("changed" or "removed") and
// schedules a throttled recent.updated. Other kinds only trigger the refresh.
func (b *Broker) PublishDiaryEvent(kind, name string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.diaryCh <- diaryEvent{kind: kind, name: name}:
	case <-b.stopped:
	}
}

// RunStarted implements orchestrator.Observer.
func (b *Broker) RunStarted(r *models.Report) {
	b.Publish(Event{Type: TypeRunStarted, Data: RunStartedData{RunID: r.RunID, Folder: r.Folder}})
}

// FileProcessed implements orchestrator.Observer. A written summary also
// refreshes the recent listing.
func (b *Broker) FileProcessed(runID string, o models.Outcome) {
	b.Publish(Event{Type: TypeFileProcessed, Data: FileProcessedData{RunID: runID, Outcome: o}})
	if o.State == models.StateSummarized && !o.DryRun {
		b.PublishDiaryEvent("summarized", o.Name)
	}
}

// RunFinished implements orchestrator.Observer.
func (b *Broker) RunFinished(r *models.Report) {
	b.Publish(Event{Type: TypeRunFinished, Data: RunFinishedData{
		RunID:   r.RunID,
		Status:  r.Status(),
		Message: r.Message,
		Report:  r,
	}})
}

// ServeHTTP streams events to one client until it disconnects (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "retry: 3000\n\n")
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(Heartbeat)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case frame, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}

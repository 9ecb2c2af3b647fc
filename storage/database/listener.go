package database

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/pulseed/pulseed/core"
)

const (
	feedbackChannel = "feedback_events"

	listenMinReconnect = 10 * time.Second
	listenMaxReconnect = time.Minute
	pingInterval       = 90 * time.Second

	subscriberBuffer = 8
)

type (
	// FeedbackEvent mirrors the payload emitted by the feedback insert trigger.
	FeedbackEvent struct {
		ID        string    `json:"id"`
		TeacherID string    `json:"teacher_id"`
		Mood      string    `json:"mood"`
		CreatedAt time.Time `json:"created_at"`
	}

	// FeedbackListener fans Postgres feedback notifications out to per-teacher
	// subscribers. Slow subscribers drop events rather than block the fan-out.
	FeedbackListener struct {
		listener *pq.Listener
		logger   core.Logger

		mutex sync.RWMutex
		subs  map[string]map[chan FeedbackEvent]struct{} // teacherID -> channels
		done  chan struct{}
	}
)

func NewFeedbackListener(conf *core.Config, logger core.Logger) *FeedbackListener {
	fl := &FeedbackListener{
		logger: logger,
		subs:   make(map[string]map[chan FeedbackEvent]struct{}),
		done:   make(chan struct{}),
	}
	fl.listener = pq.NewListener(ConnString(conf), listenMinReconnect, listenMaxReconnect, fl.onListenerEvent)
	return fl
}

func (fl *FeedbackListener) onListenerEvent(ev pq.ListenerEventType, err error) {
	if err != nil {
		fl.logger.Error("listener: connection event error", err)
	}
}

// Start listens on the feedback channel and runs the fan-out loop until Stop.
func (fl *FeedbackListener) Start() error {
	if err := fl.listener.Listen(feedbackChannel); err != nil {
		return errors.Wrap(err, "listening on feedback channel")
	}
	go fl.loop()
	return nil
}

func (fl *FeedbackListener) Stop() {
	close(fl.done)
	if err := fl.listener.Close(); err != nil {
		fl.logger.Error("listener: failed to close", err)
	}
}

func (fl *FeedbackListener) loop() {
	for {
		select {
		case <-fl.done:
			return
		case n := <-fl.listener.Notify:
			if n == nil { // reconnect
				continue
			}
			var ev FeedbackEvent
			if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
				fl.logger.Error("listener: bad notification payload", err)
				continue
			}
			fl.publish(ev)
		case <-time.After(pingInterval):
			if err := fl.listener.Ping(); err != nil {
				fl.logger.Error("listener: ping failed", err)
			}
		}
	}
}

func (fl *FeedbackListener) publish(ev FeedbackEvent) {
	fl.mutex.RLock()
	defer fl.mutex.RUnlock()

	for ch := range fl.subs[ev.TeacherID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers for a teacher's feedback events. The returned cancel
// func unregisters and closes the channel; it is safe to call more than once.
func (fl *FeedbackListener) Subscribe(teacherID string) (<-chan FeedbackEvent, func()) {
	ch := make(chan FeedbackEvent, subscriberBuffer)

	fl.mutex.Lock()
	if fl.subs[teacherID] == nil {
		fl.subs[teacherID] = make(map[chan FeedbackEvent]struct{})
	}
	fl.subs[teacherID][ch] = struct{}{}
	fl.mutex.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			fl.mutex.Lock()
			delete(fl.subs[teacherID], ch)
			if len(fl.subs[teacherID]) == 0 {
				delete(fl.subs, teacherID)
			}
			fl.mutex.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

package database

import (
	"testing"
	"time"
)

func newTestListener() *FeedbackListener {
	return &FeedbackListener{
		subs: make(map[string]map[chan FeedbackEvent]struct{}),
		done: make(chan struct{}),
	}
}

func TestFeedbackListener_SubscribePublish(t *testing.T) {
	fl := newTestListener()

	ch1, cancel1 := fl.Subscribe("t1")
	ch2, cancel2 := fl.Subscribe("t1")
	other, cancelOther := fl.Subscribe("t2")
	defer cancel2()
	defer cancelOther()

	ev := FeedbackEvent{ID: "f1", TeacherID: "t1", Mood: "bad", CreatedAt: time.Now().UTC()}
	fl.publish(ev)

	for _, ch := range []<-chan FeedbackEvent{ch1, ch2} {
		select {
		case got := <-ch:
			if got.ID != ev.ID {
				t.Errorf("event ID = %q; want %q", got.ID, ev.ID)
			}
		default:
			t.Error("subscriber did not receive the event")
		}
	}
	select {
	case got := <-other:
		t.Errorf("unrelated teacher received event %+v", got)
	default:
	}

	// cancelled subscribers are unregistered, their channel closed
	cancel1()
	cancel1() // second call is a no-op
	if _, open := <-ch1; open {
		t.Error("cancelled channel still open")
	}

	fl.publish(ev)
	select {
	case got, open := <-ch2:
		if !open {
			t.Fatal("live channel unexpectedly closed")
		}
		if got.ID != ev.ID {
			t.Errorf("event ID = %q; want %q", got.ID, ev.ID)
		}
	default:
		t.Error("remaining subscriber did not receive the event")
	}
}

func TestFeedbackListener_SlowSubscriber(t *testing.T) {
	fl := newTestListener()

	ch, cancel := fl.Subscribe("t1")
	defer cancel()

	// overflow the buffer; publish must not block
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer+5; i++ {
			fl.publish(FeedbackEvent{ID: "f", TeacherID: "t1"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	if got := len(ch); got != subscriberBuffer {
		t.Errorf("buffered events = %d; want %d", got, subscriberBuffer)
	}
}

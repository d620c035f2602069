package eventbus

import (
	"sync"
	"testing"
)

func TestPublishFanout(t *testing.T) {
	b := New()
	// No subscribers yet; must not block or panic.
	b.Publish(Event{Type: TypeKeywordMatch})

	ch1, un1 := b.Subscribe(4)
	ch2, un2 := b.Subscribe(4)
	defer un1()
	defer un2()

	b.Publish(Event{Type: TypeMessageStored, Data: "m1"})
	for _, ch := range []<-chan Event{ch1, ch2} {
		ev := <-ch
		if ev.Type != TypeMessageStored || ev.Data != "m1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
		if ev.Time.IsZero() {
			t.Fatal("publish should stamp a time")
		}
	}
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe(1)
	defer unsubscribe()

	b.Publish(Event{Type: TypeNotifySent})
	b.Publish(Event{Type: TypeNotifyFailed}) // buffer full, dropped

	if ev := <-ch; ev.Type != TypeNotifySent {
		t.Fatalf("unexpected event: %+v", ev)
	}
	select {
	case ev := <-ch:
		t.Fatalf("expected overflow drop, got %+v", ev)
	default:
	}
}

func TestUnsubscribeClosesAndIsIdempotent(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe(1)
	unsubscribe()
	unsubscribe()

	if _, open := <-ch; open {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// Publishing after detach must not panic on the closed channel.
	b.Publish(Event{Type: TypeNotifyCooled})
}

func TestPublishRacesUnsubscribe(t *testing.T) {
	b := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		_, unsubscribe := b.Subscribe(1)
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.Publish(Event{Type: TypeKeywordMatch})
		}()
		go func() {
			defer wg.Done()
			unsubscribe()
		}()
	}
	wg.Wait()
}

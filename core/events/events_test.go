package events

import (
	"context"
	"math/big"
	"runtime"
	"testing"
	"time"
)

func TestAmountChangedRender(t *testing.T) {
	evt := AmountChanged{Token: " gig ", Balance: big.NewInt(150)}
	rendered := Render(evt)
	if rendered.Type != TypeAmountChanged {
		t.Fatalf("unexpected type %s", rendered.Type)
	}
	if rendered.Attr("amount") != "150" {
		t.Fatalf("unexpected amount %q", rendered.Attr("amount"))
	}
	if rendered.Attr("token") != "GIG" {
		t.Fatalf("unexpected token %q", rendered.Attr("token"))
	}
	if got := Render(AmountChanged{}).Attr("amount"); got != "0" {
		t.Fatalf("nil balance should render as 0, got %q", got)
	}
}

func TestBufferFlushPreservesOrder(t *testing.T) {
	buf := NewBuffer()
	buf.Emit(AmountChanged{Balance: big.NewInt(1)})
	buf.Emit(nil)
	buf.Emit(AmountChanged{Balance: big.NewInt(2)})
	if buf.Len() != 2 {
		t.Fatalf("expected 2 queued events, got %d", buf.Len())
	}

	var seen []string
	buf.Flush(EmitterFunc(func(evt Event) {
		seen = append(seen, Render(evt).Attr("amount"))
	}))
	if len(seen) != 2 || seen[0] != "1" || seen[1] != "2" {
		t.Fatalf("unexpected flush order %v", seen)
	}
	if buf.Len() != 0 {
		t.Fatalf("flush should empty the buffer")
	}
}

func TestMultiSkipsNil(t *testing.T) {
	count := 0
	counter := EmitterFunc(func(Event) { count++ })
	Multi(counter, nil, counter).Emit(AmountChanged{})
	if count != 2 {
		t.Fatalf("expected 2 deliveries, got %d", count)
	}
}

func TestHubBacklogAndLiveDelivery(t *testing.T) {
	hub := NewHub()
	hub.Emit(AmountChanged{Balance: big.NewInt(10)})
	hub.Emit(AmountChanged{Balance: big.NewInt(20)})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, unsubscribe, backlog := hub.Subscribe(ctx, 1)
	defer unsubscribe()

	if len(backlog) != 1 || backlog[0].Sequence != 2 || backlog[0].Event.Attr("amount") != "20" {
		t.Fatalf("unexpected backlog %+v", backlog)
	}

	hub.Emit(AmountChanged{Balance: big.NewInt(30)})
	select {
	case update := <-updates:
		if update.Sequence != 3 || update.Cursor != "3" {
			t.Fatalf("unexpected update %+v", update)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for live update")
	}

	unsubscribe()
	unsubscribe()
	if hub.Subscribers() != 0 {
		t.Fatalf("expected no subscribers after cancel")
	}
	if _, ok := <-updates; ok {
		t.Fatalf("expected channel closed after cancel")
	}
}

func TestHubCancelReleasesContextWatcher(t *testing.T) {
	hub := NewHub()
	baseline := runtime.NumGoroutine()

	const subscribers = 64
	cancels := make([]func(), 0, subscribers)
	for i := 0; i < subscribers; i++ {
		updates, cancel, _ := hub.Subscribe(context.Background(), 0)
		cancels = append(cancels, cancel)
		defer func(ch <-chan Published) {
			if _, ok := <-ch; ok {
				t.Errorf("expected channel closed after cancel")
			}
		}(updates)
	}
	for _, cancel := range cancels {
		cancel()
	}
	if hub.Subscribers() != 0 {
		t.Fatalf("expected no subscribers after cancel, got %d", hub.Subscribers())
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > baseline {
		if time.Now().After(deadline) {
			t.Fatalf("context watchers still running: %d goroutines, baseline %d", runtime.NumGoroutine(), baseline)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

package coordinator

import (
	"testing"
	"time"
)

func TestMemoryHubFansOutToAllSubscribers(t *testing.T) {
	hub := NewMemoryHub()

	ch1, cancel1 := hub.Subscribe()
	defer cancel1()
	ch2, cancel2 := hub.Subscribe()
	defer cancel2()

	want := Update{Generation: 7, Pair: TokenPair{AccessToken: "a"}}
	hub.Publish(want)

	for i, ch := range []<-chan Update{ch1, ch2} {
		select {
		case got := <-ch:
			if got.Generation != want.Generation || got.Pair.AccessToken != "a" {
				t.Fatalf("subscriber %d got %+v", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the update", i)
		}
	}
}

func TestMemoryHubNeverBlocksOnSlowSubscriber(t *testing.T) {
	hub := NewMemoryHub()

	slow, cancel := hub.Subscribe()
	defer cancel()

	// Publish past the buffer without draining; Publish must return.
	for i := 0; i < 20; i++ {
		hub.Publish(Update{Generation: uint64(i)})
	}

	buffered := 0
	for {
		select {
		case <-slow:
			buffered++
			continue
		default:
		}
		break
	}
	if buffered == 0 || buffered > 20 {
		t.Fatalf("buffered %d updates", buffered)
	}
}

func TestMemoryHubCancelClosesChannel(t *testing.T) {
	hub := NewMemoryHub()

	ch, cancel := hub.Subscribe()
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("received an update on a cancelled subscription")
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled channel not closed")
	}

	// Publishing after cancel must not panic or deliver.
	hub.Publish(Update{Generation: 1})
}

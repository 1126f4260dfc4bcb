// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package eventbus

import (
	"context"
	"testing"

	"go.viam.com/test"
)

func TestSubscriberSeesOnlyLatest(t *testing.T) {
	b := New()
	defer b.Close()
	ch, unsub := b.Subscribe(context.Background(), "t", false)
	defer unsub()

	b.Publish("t", 1)
	b.Publish("t", 2)
	b.Publish("t", 3)
	test.That(t, <-ch, test.ShouldEqual, 3)

	st := b.Stats()
	test.That(t, st.Events, test.ShouldEqual, int64(3))
	test.That(t, st.Sent, test.ShouldEqual, int64(3))
	test.That(t, st.Replaced, test.ShouldEqual, int64(2))
	test.That(t, st.Subscribers, test.ShouldEqual, 1)
}

func TestSubscribeWithLast(t *testing.T) {
	b := New()
	defer b.Close()
	b.Publish("t", "retained")

	ch, _ := b.Subscribe(context.Background(), "t", true)
	test.That(t, <-ch, test.ShouldEqual, "retained")

	late, _ := b.Subscribe(context.Background(), "other", true)
	select {
	case v := <-late:
		t.Fatalf("unexpected event %v", v)
	default:
	}

	v, ok := b.GetLast("t")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, "retained")
}

func TestCancelAndCloseDoNotDoubleClose(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx, "t", false)
	cancel()
	b.Close()

	_, ok := <-ch
	test.That(t, ok, test.ShouldBeFalse)

	// publishing and subscribing after close are harmless
	b.Publish("t", 1)
	closed, _ := b.Subscribe(context.Background(), "t", true)
	_, ok = <-closed
	test.That(t, ok, test.ShouldBeFalse)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	defer b.Close()
	ch, unsub := b.Subscribe(context.Background(), "t", false)
	unsub()
	unsub()

	_, ok := <-ch
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, b.Stats().Subscribers, test.ShouldEqual, 0)

	// publishing to a topic nobody reads is fine
	b.Publish("t", 1)
	test.That(t, b.Stats().Events, test.ShouldEqual, int64(1))
}

func TestPublishRacesWithCancel(t *testing.T) {
	b := New()
	defer b.Close()
	for i := 0; i < 100; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		b.Subscribe(ctx, "t", false)
		go cancel()
		b.Publish("t", i)
	}
}

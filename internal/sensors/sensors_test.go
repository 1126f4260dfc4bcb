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

package sensors

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"radvalve/v2/internal/config"
	"radvalve/v2/internal/events"
	"radvalve/v2/internal/mqttlink"
	"radvalve/v2/pkg/eventbus"
)

func newService(t *testing.T) (*Service, *eventbus.Bus, *clock.Mock) {
	t.Helper()
	bus := eventbus.New()
	t.Cleanup(bus.Close)
	conf := &config.Config{EventBus: bus}
	conf.MQTT.SensorTopic = "zigbee2mqtt/+"
	mock := clock.NewMock()
	return New(conf, mqttlink.NewFake(), mock), bus, mock
}

func last[T any](t *testing.T, bus *eventbus.Bus, topic eventbus.Topic) (T, bool) {
	t.Helper()
	var zero T
	v, ok := bus.GetLast(topic)
	if !ok {
		return zero, false
	}
	return v.(T), true
}

func TestHandlePublishesReadings(t *testing.T) {
	s, bus, _ := newService(t)
	s.handle([]byte(`{"temperature":20.5,"humidity":48,"illuminance_lux":250,"occupancy":true,"battery":90}`))

	temp, ok := last[events.TemperatureReading](t, bus, events.TopicTemperature)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, temp.TemperatureC, test.ShouldEqual, 20.5)

	rh, ok := last[events.HumidityReading](t, bus, events.TopicHumidity)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, rh.RHPercent, test.ShouldEqual, 48.0)

	light, ok := last[events.LightReading](t, bus, events.TopicLight)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, light.Level, test.ShouldEqual, LuxToLevel(250))

	m, ok := last[events.MotionEvent](t, bus, events.TopicMotion)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, m.Strong, test.ShouldBeTrue)
}

func TestHandleDropsImplausibleReadings(t *testing.T) {
	s, bus, mock := newService(t)
	s.handle([]byte(`not json`))
	s.handle([]byte(`{"temperature":85,"humidity":140,"illuminance":-3}`))
	_, ok := bus.GetLast(events.TopicTemperature)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = bus.GetLast(events.TopicHumidity)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = bus.GetLast(events.TopicLight)
	test.That(t, ok, test.ShouldBeFalse)

	s.handle([]byte(`{"temperature":20}`))
	mock.Add(time.Minute)
	s.handle([]byte(`{"temperature":27}`))
	temp, _ := last[events.TemperatureReading](t, bus, events.TopicTemperature)
	test.That(t, temp.TemperatureC, test.ShouldEqual, 20.0)

	// the same change spread over a longer time is accepted
	mock.Add(maxJumpInterval)
	s.handle([]byte(`{"temperature":27}`))
	temp, _ = last[events.TemperatureReading](t, bus, events.TopicTemperature)
	test.That(t, temp.TemperatureC, test.ShouldEqual, 27.0)
}

func TestWeakPresenceEvidence(t *testing.T) {
	s, bus, _ := newService(t)
	s.handle([]byte(`{"occupancy":false}`))
	_, ok := bus.GetLast(events.TopicMotion)
	test.That(t, ok, test.ShouldBeFalse)

	s.handle([]byte(`{"action":"single"}`))
	m, ok := last[events.MotionEvent](t, bus, events.TopicMotion)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, m.Strong, test.ShouldBeFalse)
	test.That(t, m.Source, test.ShouldEqual, "action:single")
}

func TestLuxToLevel(t *testing.T) {
	test.That(t, LuxToLevel(0), test.ShouldEqual, uint8(0))
	test.That(t, LuxToLevel(-1), test.ShouldEqual, uint8(0))
	test.That(t, LuxToLevel(maxLevelLux), test.ShouldEqual, uint8(254))
	test.That(t, LuxToLevel(50000), test.ShouldEqual, uint8(254))
	prev := uint8(0)
	for lux := 1.0; lux < maxLevelLux; lux *= 1.5 {
		l := LuxToLevel(lux)
		test.That(t, l, test.ShouldBeGreaterThanOrEqualTo, prev)
		prev = l
	}
}

func TestRunSubscribesAndForwards(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	conf := &config.Config{EventBus: bus}
	conf.MQTT.SensorTopic = "zigbee2mqtt/+"
	fake := mqttlink.NewFake()
	s := New(conf, fake, clock.NewMock())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	temps, _ := bus.Subscribe(ctx, events.TopicTemperature, false)
	go s.Run(ctx)

	deadline := time.After(2 * time.Second)
	for !fake.Deliver("zigbee2mqtt/lounge", []byte(`{"temperature":19.25}`)) {
		select {
		case <-deadline:
			t.Fatal("never subscribed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	select {
	case ev := <-temps:
		test.That(t, ev.(events.TemperatureReading).TemperatureC, test.ShouldEqual, 19.25)
	case <-deadline:
		t.Fatal("no temperature event")
	}
}

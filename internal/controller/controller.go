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

package controller

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"radvalve/v2/internal/ambient"
	"radvalve/v2/internal/config"
	"radvalve/v2/internal/events"
	"radvalve/v2/internal/occupancy"
	"radvalve/v2/internal/radvalve"
	"radvalve/v2/internal/schedule"
	"radvalve/v2/internal/stats"
	"radvalve/v2/internal/tempcontrol"
	"radvalve/v2/internal/uiactivity"
	"radvalve/v2/internal/valvemode"
	"radvalve/v2/pkg/c16"
	"radvalve/v2/pkg/logger"
	"radvalve/v2/pkg/nvstore"
)

// Layout of the non-volatile byte store.
const (
	nvScheduleBase = 2
	NVStoreSize    = nvScheduleBase + schedule.MaxSimpleSchedules
)

var (
	ErrNoDial       = errors.New("temperature is not set by a dial")
	ErrNoOverride   = errors.New("temperature overrides are not enabled")
	ErrOutOfRange   = errors.New("value out of range")
	ErrBadSlot      = errors.New("bad schedule slot")
	ErrNotStartedUp = errors.New("no valve status yet")
)

// Deps are the collaborators built outside the controller.
type Deps struct {
	// Valve may be nil, in which case the model runs without an actuator.
	Valve radvalve.PhysicalValve
	Store nvstore.ByteStore
	Clock clock.Clock
}

// roomTemp holds the latest accepted room temperature. It is only touched
// by the control goroutine.
type roomTemp struct {
	v  c16.Temp
	ok bool
}

func (r *roomTemp) TempC16() c16.Temp { return r.v }

// Controller runs the valve model once per tick, feeding it the latest
// sensor readings from the event bus and publishing the result.
type Controller struct {
	conf  *config.Config
	log   *logger.Logger
	clock clock.Clock

	mode  *valvemode.Mode
	tc    tempcontrol.TempControl
	dial  *tempcontrol.Dial
	nv    *tempcontrol.NVOverride
	sched *schedule.Schedule
	occ   *occupancy.Tracker
	light *ambient.Light
	rh    *ambient.Humidity
	ui    *uiactivity.Tracker

	stats   *stats.ByHour
	updater *stats.Updater

	valve *radvalve.ModelledRadValve
	temp  roomTemp

	lockoutM  int
	lastHour  int
	lastTick  atomic.Int64
	tickCount atomic.Int64

	// model serialises ticks with user commands
	model sync.Mutex

	mu   sync.RWMutex
	last events.ValveUpdate
	have bool
}

func New(conf *config.Config, d Deps) (*Controller, error) {
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Store == nil {
		d.Store = nvstore.NewRAM(NVStoreSize)
	}
	p := conf.ValveParams()

	c := &Controller{
		conf:     conf,
		log:      logger.New("Controller"),
		clock:    d.Clock,
		mode:     valvemode.New(),
		sched:    schedule.New(d.Store, nvScheduleBase),
		occ:      occupancy.New(),
		light:    ambient.NewLight(conf.Valve.DarkThreshold),
		rh:       ambient.NewHumidity(),
		ui:       uiactivity.New(),
		stats:    stats.New(d.Clock),
		lockoutM: conf.Valve.SetbackLockoutDays * 24 * 60,
		lastHour: -1,
	}
	c.updater = stats.NewUpdater(c.stats)

	switch conf.TempControl.Kind {
	case "dial":
		c.dial = tempcontrol.NewDial(p)
		c.tc = c.dial
	case "nv":
		c.nv = tempcontrol.NewNVOverride(p, d.Store)
		c.tc = c.nv
	default:
		warm := conf.TempControl.WarmC
		if warm == 0 {
			warm = p.TempScaleMid()
		}
		c.tc = tempcontrol.NewFixed(p, warm)
	}

	// config schedule seeds the store only when nothing was persisted
	if !c.sched.IsAnySet() {
		for slot, s := range conf.Schedule.On {
			mm, err := config.ParseClock(s)
			if err != nil {
				return nil, err
			}
			c.sched.SetSchedule(mm, slot)
		}
	}

	if conf.DataDir != "" {
		n, err := c.stats.Load(c.snapshotPath())
		if err != nil {
			c.log.Error("stats snapshot: %v", err)
		} else if n > 0 {
			c.log.Info("restored %d stats sets", n)
		}
	}

	env := radvalve.TargetEnv{
		Params:         p,
		TempControl:    c.tc,
		Schedule:       c.sched,
		Occupancy:      c.occ,
		Stats:          c.stats,
		Light:          c.light,
		Humidity:       c.rh,
		UI:             c.ui,
		SetbackLockout: c.lockoutM > 0,
	}
	vcfg := radvalve.Config{MaxPCOpen: conf.Valve.MaxPCOpen, Glacial: conf.Valve.Glacial}
	c.valve = radvalve.New(vcfg, env, c.mode, &c.temp, d.Valve)
	return c, nil
}

func (c *Controller) snapshotPath() string {
	return filepath.Join(c.conf.DataDir, stats.SnapshotFilename)
}

func (c *Controller) Run(ctx context.Context) {
	c.log.Info("Running...")
	defer c.log.Info("Stopped")

	bus := c.conf.EventBus
	tempEvents, _ := bus.Subscribe(ctx, events.TopicTemperature, true)
	rhEvents, _ := bus.Subscribe(ctx, events.TopicHumidity, true)
	lightEvents, _ := bus.Subscribe(ctx, events.TopicLight, true)
	motionEvents, _ := bus.Subscribe(ctx, events.TopicMotion, false)

	period := time.Duration(c.conf.Controller.TickSeconds) * time.Second
	ticker := c.clock.Ticker(period)
	defer ticker.Stop()

	defer c.saveStats()

	for {
		select {
		case ev, ok := <-tempEvents:
			if ok {
				c.handleTemperature(ev.(events.TemperatureReading))
			}
		case ev, ok := <-rhEvents:
			if ok {
				c.handleHumidity(ev.(events.HumidityReading))
			}
		case ev, ok := <-lightEvents:
			if ok {
				c.light.Set(ev.(events.LightReading).Level)
			}
		case ev, ok := <-motionEvents:
			if ok {
				c.handleMotion(ev.(events.MotionEvent))
			}
		case now := <-ticker.C:
			c.tick(now)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) handleTemperature(ev events.TemperatureReading) {
	c.temp.v = c16.FromFloat(ev.TemperatureC)
	if !c.temp.ok {
		c.log.Info("first room temperature %.2f°C", ev.TemperatureC)
	}
	c.temp.ok = true
}

func (c *Controller) handleHumidity(ev events.HumidityReading) {
	rh := ev.RHPercent + 0.5
	if rh < 0 || rh > 100 {
		return
	}
	c.rh.Set(uint8(rh))
}

func (c *Controller) handleMotion(ev events.MotionEvent) {
	c.log.Debug("motion from %s strong=%v", ev.Source, ev.Strong)
	if ev.Strong {
		c.occ.MarkOccupied()
	} else {
		c.occ.MarkPossiblyOccupied()
	}
}

// tick runs one control step. Nothing happens until a room temperature
// has been received.
func (c *Controller) tick(now time.Time) {
	c.model.Lock()
	defer c.model.Unlock()

	if !c.temp.ok {
		c.log.Debug("tick: waiting for room temperature")
		return
	}
	mm := now.Hour()*60 + now.Minute()

	if c.ui.TakeUsed() {
		c.occ.MarkOccupied()
	}
	if c.light.Tick() {
		c.occ.MarkPossiblyOccupied()
	}
	if c.rh.Tick() {
		c.occ.MarkJustPossiblyOccupied()
	}
	if c.sched.ApplyUserSchedule(c.mode, mm) {
		c.log.Info("schedule set mode %s", c.mode.Current())
	}

	c.valve.SetSetbackLockout(c.lockoutM > 0)
	st := c.valve.Tick(mm)

	c.mode.Tick()
	c.occ.Tick()
	c.ui.Tick()
	if c.lockoutM > 0 {
		c.lockoutM--
	}

	c.recordStats(now)

	up := events.ValveUpdate{
		Status:       st,
		WarmTargetC:  c.tc.WarmTargetC(),
		FrostTargetC: c.tc.FrostTargetC(),
		Occupancy:    c.occ.OccupancyPercent(),
		VacancyH:     c.occ.VacancyH(),
		Dark:         c.light.IsRoomDark(),
		RHPercent:    c.rh.RHPercent(),
		Schedule:     c.sched.String(),
		BakeRemainM:  c.mode.BakeRemainingM(),
		Time:         now,
	}
	c.mu.Lock()
	c.last = up
	c.have = true
	c.mu.Unlock()
	c.lastTick.Store(now.Unix())
	c.tickCount.Add(1)

	if st.ValveMoved || st.Event != radvalve.EventNone.String() {
		c.log.Info("tick: ref=%.2f°C target=%d°C valve=%d%% event=%s heat=%v",
			c16.ToFloat(st.RefTempC16), st.TargetTempC, st.ValvePC, st.Event, st.CallForHeat)
	} else {
		c.log.Debug("tick: ref=%.2f°C target=%d°C valve=%d%%",
			c16.ToFloat(st.RefTempC16), st.TargetTempC, st.ValvePC)
	}

	if c.conf.EventBus != nil {
		c.conf.EventBus.Publish(events.TopicValve, up)
	}
}

// recordStats feeds the hourly statistics, committing the previous hour
// when the clock rolls into a new one.
func (c *Controller) recordStats(now time.Time) {
	hour := now.Hour()
	if c.lastHour >= 0 && hour != c.lastHour {
		if c.updater.Commit(c.lastHour) {
			c.saveStats()
		}
	}
	c.lastHour = hour

	c.updater.Add(stats.Sample{
		TempC16:  c.temp.v,
		AmbLight: c.light.Level(),
		OccPC:    c.occ.OccupancyPercent(),
		RHPC:     c.rh.RHPercent(),
		HasRH:    c.rh.IsAvailable(),
	})
}

func (c *Controller) saveStats() {
	if c.conf.DataDir == "" {
		return
	}
	if err := c.stats.Save(c.snapshotPath()); err != nil {
		c.log.Error("save stats: %v", err)
	}
}

// Status returns the update published by the last tick.
func (c *Controller) Status() (events.ValveUpdate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.have {
		return events.ValveUpdate{}, ErrNotStartedUp
	}
	return c.last, nil
}

// LastTick is when the control loop last ran, zero before the first tick.
func (c *Controller) LastTick() time.Time {
	s := c.lastTick.Load()
	if s == 0 {
		return time.Time{}
	}
	return time.Unix(s, 0)
}

// TickCount is the number of completed control steps.
func (c *Controller) TickCount() int64 {
	return c.tickCount.Load()
}

// Stats exposes the hourly statistics for display.
func (c *Controller) Stats() *stats.ByHour {
	return c.stats
}

// The methods below are user commands and may be called from any
// goroutine. Each one counts as UI use.

// SetWarmMode selects WARM or FROST. A request that bounces straight back
// is held for a couple of minutes before it takes effect.
func (c *Controller) SetWarmMode(warm bool) {
	c.model.Lock()
	defer c.model.Unlock()
	if !c.mode.SetWarmModeDebounced(warm) {
		c.log.Debug("mode change to warm=%v held", warm)
	}
	c.ui.MarkUsed()
}

func (c *Controller) StartBake() {
	c.model.Lock()
	defer c.model.Unlock()
	c.mode.StartBake()
	c.ui.MarkUsed()
}

func (c *Controller) CancelBake() {
	c.model.Lock()
	defer c.model.Unlock()
	c.mode.CancelBake()
	c.ui.MarkUsed()
}

// MarkOccupied is an explicit "I'm here" from the user.
func (c *Controller) MarkOccupied() {
	c.model.Lock()
	defer c.model.Unlock()
	c.ui.MarkUsed()
}

func (c *Controller) SetDial(pot uint8) error {
	c.model.Lock()
	defer c.model.Unlock()

	if c.dial == nil {
		return ErrNoDial
	}
	wasLow, wasHigh := c.dial.AtLowEndStop(), c.dial.AtHighEndStop()
	c.dial.SetPot(pot)
	// turning onto an end stop selects FROST or BAKE
	switch {
	case c.dial.AtLowEndStop() && !wasLow:
		c.mode.SetWarmMode(false)
	case c.dial.AtHighEndStop() && !wasHigh:
		c.mode.StartBake()
	}
	c.ui.MarkUsed()
	return nil
}

// SetHolidayMode marks the room long vacant so the deepest setback can
// apply at once. It does not count as UI use, which would mark the room
// occupied again.
func (c *Controller) SetHolidayMode() {
	c.model.Lock()
	defer c.model.Unlock()
	c.occ.SetHolidayMode()
	c.log.Info("holiday mode")
}

// Wiggle moves the actuator slightly so the user can see it responds.
func (c *Controller) Wiggle() {
	c.model.Lock()
	defer c.model.Unlock()
	c.valve.Wiggle()
	c.ui.MarkUsed()
}

func (c *Controller) SetWarmTargetC(t uint8) error {
	c.model.Lock()
	defer c.model.Unlock()

	if c.nv == nil {
		return ErrNoOverride
	}
	if !c.nv.SetWarmTargetC(t) {
		return fmt.Errorf("warm %d°C: %w", t, ErrOutOfRange)
	}
	c.ui.MarkUsed()
	return nil
}

func (c *Controller) SetFrostTargetC(t uint8) error {
	c.model.Lock()
	defer c.model.Unlock()

	if c.nv == nil {
		return ErrNoOverride
	}
	if !c.nv.SetFrostTargetC(t) {
		return fmt.Errorf("frost %d°C: %w", t, ErrOutOfRange)
	}
	c.ui.MarkUsed()
	return nil
}

// SetSchedule sets slot to start at "HH:MM"; an empty start clears it.
func (c *Controller) SetSchedule(slot int, start string) error {
	c.model.Lock()
	defer c.model.Unlock()

	if start == "" {
		if !c.sched.ClearSchedule(slot) {
			return fmt.Errorf("slot %d: %w", slot, ErrBadSlot)
		}
		c.ui.MarkUsed()
		return nil
	}
	mm, err := config.ParseClock(start)
	if err != nil {
		return err
	}
	if !c.sched.SetSchedule(mm, slot) {
		return fmt.Errorf("slot %d: %w", slot, ErrBadSlot)
	}
	c.ui.MarkUsed()
	return nil
}

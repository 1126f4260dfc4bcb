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

package main

import (
	"context"
	"os"
	"path/filepath"
	"radvalve/v2/internal/boiler"
	"radvalve/v2/internal/config"
	"radvalve/v2/internal/controller"
	"radvalve/v2/internal/mqttlink"
	"radvalve/v2/internal/pir"
	"radvalve/v2/internal/radvalve"
	"radvalve/v2/internal/sensors"
	"radvalve/v2/internal/valvedrv"
	"radvalve/v2/internal/webui"
	"radvalve/v2/pkg/appctx"
	"radvalve/v2/pkg/eventbus"
	"radvalve/v2/pkg/logger"
	"radvalve/v2/pkg/modbus"
	"radvalve/v2/pkg/nvstore"
	"radvalve/v2/pkg/rootserv"
	"radvalve/v2/pkg/service"
	"radvalve/v2/pkg/sysmon"
	"time"
)

func main() {

	rootdir := os.Getenv("PROJECT_ROOT")
	if rootdir == "" {
		rootdir = "."
	}

	log := logger.New("Main")
	if err := logger.Init(filepath.Join(rootdir, "var/logs/radvalve.log")); err != nil {
		log.Error("log file: %v", err)
	}

	appConf := config.LoadFile(filepath.Join(rootdir, "var/config/radvalve.json"))

	// use conf to pass eventbus to whoever needs it
	appConf.EventBus = eventbus.New()
	appConf.DataDir = filepath.Join(rootdir, "var/cache")
	appConf.RootDir = rootdir

	if err := os.MkdirAll(appConf.DataDir, 0o755); err != nil {
		log.Fatal("data dir: %v", err)
	}

	ctx, ctxCancel := appctx.New()

	var services []service.Runnable

	// valve actuator
	var valve radvalve.PhysicalValve
	switch appConf.Driver.Kind {
	case "modbus":
		mapFile := filepath.Join(rootdir, "var/config", appConf.Driver.ModbusMap)
		modbusConf, err := modbus.LoadConfig(mapFile)
		if err != nil {
			log.Fatal("modbus map: %v", err)
		}
		client, err := modbus.NewClient(ctx, modbusConf)
		if err != nil {
			log.Fatal("modbus connect: %v", err)
		}
		drv, err := valvedrv.NewModbus(client, modbusConf, nil)
		if err != nil {
			log.Fatal("modbus valve: %v", err)
		}
		valve = drv
		services = append(services, drv, service.RunFunc(func(ctx context.Context) {
			<-ctx.Done()
			client.Close()
		}))
	default:
		sim := valvedrv.NewSim(nil, appConf.Driver.SimPCPerSecond)
		valve = sim
		services = append(services, sim)
	}

	store, err := nvstore.OpenFile(filepath.Join(appConf.DataDir, "nv.bin"), controller.NVStoreSize)
	if err != nil {
		log.Fatal("nv store: %v", err)
	}

	controllerService, err := controller.New(appConf, controller.Deps{Valve: valve, Store: store})
	if err != nil {
		log.Fatal("controller: %v", err)
	}
	services = append(services, controllerService)

	// room sensors and boiler over mqtt
	if appConf.MQTT.Broker != "" {
		client, err := mqttlink.Dial(appConf.MQTT.Broker, appConf.MQTT.ClientID, appConf.MQTT.ClientID+"/status")
		if err != nil {
			log.Fatal("mqtt: %v", err)
		}
		if appConf.MQTT.SensorTopic != "" {
			services = append(services, sensors.New(appConf, client, nil))
		}
		if appConf.MQTT.BoilerTopic != "" {
			services = append(services, boiler.New(appConf, client, nil))
		}
		// close after the services above have stopped publishing
		services = append(services, service.RunFunc(func(ctx context.Context) {
			<-ctx.Done()
			time.Sleep(time.Second)
			client.Close()
		}))
	}

	if appConf.ZWave.Addr != "" {
		services = append(services, sensors.NewZWave(appConf, nil))
	}
	if appConf.MQTT.SensorTopic == "" && appConf.ZWave.Addr == "" {
		log.Warn("no room sensor source configured: valve stays idle")
	}

	if appConf.PIR.Enabled {
		gpio, err := pir.Open(appConf.PIR.Chip, appConf.PIR.Line)
		if err != nil {
			log.Error("pir disabled: %v", err)
		} else {
			services = append(services, pir.New(gpio, appConf.EventBus, nil))
		}
	}

	tick := time.Duration(appConf.Controller.TickSeconds) * time.Second
	webService := webui.New(appConf, controllerService)
	sysMonitorService := sysmon.New(appConf.DataDir, tick, controllerService, appConf.EventBus, nil)

	// attach web handler enabled services
	server := rootserv.New(appConf.Web.Addr)
	server.Attach("/", "Valve", webService.Handler())
	server.Attach("/logger", "Logger", logger.WebService())
	server.Attach("/monitor", "System Monitor", sysMonitorService)

	services = append(services, webService, server)

	// waits for all services to stop
	exitCode := <-service.Start(ctx, ctxCancel, services)
	appConf.EventBus.Close()
	logger.Close()
	os.Exit(exitCode)
}

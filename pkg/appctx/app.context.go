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

package appctx

import (
	"context"
	"os"
	"os/signal"
	"radvalve/v2/pkg/logger"
	"syscall"
)

// New returns a context that is canceled on SIGINT or SIGTERM, plus a
// cancel function you can call manually.
func New() (context.Context, context.CancelFunc) {
	return WithSignals(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// WithSignals derives a context canceled by the first of sigs. Signal
// delivery stops once the context is done.
func WithSignals(parent context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	go func() {
		defer signal.Stop(ch)
		log := logger.New("SigHandler")
		select {
		case sig := <-ch:
			log.Info("Received signal: %s", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

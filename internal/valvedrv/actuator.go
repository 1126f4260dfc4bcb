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

package valvedrv

import (
	"context"
	"fmt"
	"radvalve/v2/pkg/logger"
	"time"
)

// Actuator pushes a valve opening to the hardware.
type Actuator func(ctx context.Context, pc uint8) error

// retrier retries an Actuator a few times before giving up.
type retrier struct {
	actuate    Actuator
	maxRetries int
	retryDelay time.Duration
	log        *logger.Logger
}

func newRetrier(actuate Actuator, log *logger.Logger) *retrier {
	return &retrier{
		actuate:    actuate,
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
		log:        log,
	}
}

func (r *retrier) set(ctx context.Context, pc uint8) error {
	var err error
	for i := range r.maxRetries {
		if err = r.actuate(ctx, pc); err == nil {
			return nil
		}
		r.log.Error("attempt %d/%d: %v", i+1, r.maxRetries, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retryDelay):
		}
	}
	return fmt.Errorf("write failed after %d attempts: %w", r.maxRetries, err)
}

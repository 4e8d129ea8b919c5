// Copyright (C) 2020 Markus L. Noga
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

package motioncorrect

import (
	"errors"

	"github.com/princeton-ecs/motioncorrect/internal/errs"
)

// Error codes from the exit surface (spec §6). UnsupportedFormat and
// InconsistentStack are defined in internal/pixel and internal/source
// respectively; ErrUsage and ErrArguments are the shared sentinels from
// internal/errs, re-exported here since Run is this module's primary entry
// point; ErrInvalidInput and ErrCancelled are specific to the
// motion-correction loop.
var (
	// ErrUsage marks a malformed CLI command at the cmd/motioncorrect
	// boundary; it is re-exported so callers can match it with errors.Is.
	// Run itself does not return it.
	ErrUsage = errs.ErrUsage

	// ErrArguments marks an input-shape validation failure caught before
	// any kernel work runs (spec §7): a non-positive width/height, a
	// negative maxShift, or a frame whose length does not match
	// width*height.
	ErrArguments = errs.ErrArguments

	// ErrInvalidInput is fatal: fewer than 3 total pixels, or a uniform
	// (min==max) stack, makes registration undefined.
	ErrInvalidInput = errors.New("invalid input: degenerate frame or stack")

	// ErrCancelled is returned when the caller's cancellation token fires;
	// the partially-populated MotionResult's Iteration field reflects the
	// last iteration completed before cancellation.
	ErrCancelled = errors.New("motion correction cancelled")
)

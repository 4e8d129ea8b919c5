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

// Package errs defines the shared sentinel errors of the exit surface
// (spec §6) that more than one package needs to wrap: Usage, for malformed
// command invocations, and Arguments, for input-shape boundary validation
// (spec §7) caught before any kernel work runs. The remaining exit-surface
// codes are closer to a single owning package and live there instead:
// UnsupportedFormat in internal/pixel, InconsistentStack in internal/source,
// InvalidInput and Cancelled in internal/motioncorrect.
package errs

import "errors"

// ErrUsage marks a malformed command invocation (missing command, missing
// required arguments) caught at the CLI boundary.
var ErrUsage = errors.New("usage error")

// ErrArguments marks an input-shape validation failure: wrong
// dimensionality, a non-odd mask size, a mask/selection buffer whose length
// does not match the image it is applied to, or a missing paired argument.
// Reported before any kernel work runs (spec §7).
var ErrArguments = errors.New("invalid arguments")

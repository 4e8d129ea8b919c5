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
	"encoding/json"

	"github.com/princeton-ecs/motioncorrect/internal/registration"
	"github.com/princeton-ecs/motioncorrect/internal/warp"
)

// Params is the JSON-configurable parameter set for one motion-correction
// run, following the teacher's Op*/UnmarshalJSON-with-defaults idiom
// (internal/ops/pre/preprocess.go, internal/ops/stack/stack.go in the
// teacher repo): populate defaults first, then overlay whatever the caller
// supplied.
type Params struct {
	MaxShift       int                    `json:"maxShift"`
	MaxIter        int                    `json:"maxIter"`
	StopBelowShift float64                `json:"stopBelowShift"`
	MethodCorr     registration.CorrMethod `json:"methodCorr"`
	MethodInterp   warp.Interpolation      `json:"methodInterp"`
	Subpixel       bool                    `json:"subpixel"`
	BlackTolerance float64                 `json:"blackTolerance"` // 0 disables black-frame detection
	MedianRebin    int                     `json:"medianRebin"`
	FrameSkip      int                     `json:"frameSkip"` // process every (frameSkip+1)-th frame
	EmptyValue     float32                 `json:"emptyValue"`
	MaxThreads     int                     `json:"maxThreads"` // 0 = use runtime.NumCPU()
	KeepSurfaces   bool                    `json:"keepSurfaces"`
}

// NewParamsDefault returns the default parameter set, matching the
// defaults spec.md's scenarios exercise.
func NewParamsDefault() *Params {
	return &Params{
		MaxShift:       5,
		MaxIter:        10,
		StopBelowShift: 0.05,
		MethodCorr:     registration.NormCorrCoeffNormed,
		MethodInterp:   warp.Linear,
		Subpixel:       true,
		BlackTolerance: 0,
		MedianRebin:    1,
		FrameSkip:      0,
		EmptyValue:     0,
		MaxThreads:     0,
		KeepSurfaces:   true,
	}
}

// UnmarshalJSON populates defaults for any field missing from data.
func (p *Params) UnmarshalJSON(data []byte) error {
	type defaults Params
	def := defaults(*NewParamsDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*p = Params(def)
	return nil
}

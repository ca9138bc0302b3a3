/*
Copyright 2025 The windco Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package gluecode

import (
	"fmt"

	"github.com/windco-project/windco/pkg/control"
	"github.com/windco-project/windco/pkg/turbine"
	"github.com/windco-project/windco/pkg/windio"
)

// Model bundles everything derived from a turbine deck that the
// simulation backends need: the coefficient surface, the steady
// operating schedule and the tuned controller.
type Model struct {
	Turbine  *windio.Turbine
	Surface  *turbine.Surface
	Schedule *turbine.Schedule
	Tuning   *control.Tuning
}

// BuildModel derives the model for a turbine under one set of modeling
// options: coefficient surface, operating schedule, controller tuning,
// in that order. Each stage feeds the next, so the first failure names
// the stage that broke.
func BuildModel(tb *windio.Turbine, modeling *windio.ModelingOptions) (*Model, error) {
	surf, err := turbine.FromTurbine(tb)
	if err != nil {
		return nil, fmt.Errorf("coefficient surface: %w", err)
	}
	sched, err := turbine.ComputeSchedule(tb, surf, modeling.Simulation.WindSpeedStep)
	if err != nil {
		return nil, fmt.Errorf("operating schedule: %w", err)
	}
	tuning, err := control.Tune(tb, surf, sched, modeling.Controller)
	if err != nil {
		return nil, fmt.Errorf("controller tuning: %w", err)
	}
	return &Model{Turbine: tb, Surface: surf, Schedule: sched, Tuning: tuning}, nil
}

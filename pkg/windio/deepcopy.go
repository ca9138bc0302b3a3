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

package windio

// DeepCopyInto copies the receiver into out, duplicating all nested
// slices and pointers.
func (in *Turbine) DeepCopyInto(out *Turbine) {
	*out = *in
	if in.Components.Blade.Stations != nil {
		out.Components.Blade.Stations = make([]BladeStation, len(in.Components.Blade.Stations))
		copy(out.Components.Blade.Stations, in.Components.Blade.Stations)
	}
	if in.Airfoils != nil {
		out.Airfoils = make([]Airfoil, len(in.Airfoils))
		for i := range in.Airfoils {
			out.Airfoils[i] = in.Airfoils[i]
			if in.Airfoils[i].Polars != nil {
				out.Airfoils[i].Polars = make([]PolarPoint, len(in.Airfoils[i].Polars))
				copy(out.Airfoils[i].Polars, in.Airfoils[i].Polars)
			}
		}
	}
	if in.Performance != nil {
		out.Performance = in.Performance.deepCopy()
	}
}

// DeepCopy returns a fully independent copy of the turbine deck.
func (in *Turbine) DeepCopy() *Turbine {
	if in == nil {
		return nil
	}
	out := new(Turbine)
	in.DeepCopyInto(out)
	return out
}

func (in *PerformanceTables) deepCopy() *PerformanceTables {
	out := new(PerformanceTables)
	out.PitchGridDeg = copyFloats(in.PitchGridDeg)
	out.TSRGrid = copyFloats(in.TSRGrid)
	out.Cp = copyGrid(in.Cp)
	out.Ct = copyGrid(in.Ct)
	out.Cq = copyGrid(in.Cq)
	return out
}

// DeepCopyInto copies the receiver into out, duplicating all nested
// slices and pointers.
func (in *ModelingOptions) DeepCopyInto(out *ModelingOptions) {
	*out = *in
	if in.Controller.WindEstimator.Enabled != nil {
		v := *in.Controller.WindEstimator.Enabled
		out.Controller.WindEstimator.Enabled = &v
	}
	if in.Execution.Retries != nil {
		v := *in.Execution.Retries
		out.Execution.Retries = &v
	}
	if in.DLCs.Cases != nil {
		out.DLCs.Cases = make([]DLCEntry, len(in.DLCs.Cases))
		for i := range in.DLCs.Cases {
			out.DLCs.Cases[i] = in.DLCs.Cases[i]
			out.DLCs.Cases[i].WindSpeeds = copyFloats(in.DLCs.Cases[i].WindSpeeds)
			if in.DLCs.Cases[i].Duration != nil {
				v := *in.DLCs.Cases[i].Duration
				out.DLCs.Cases[i].Duration = &v
			}
			if in.DLCs.Cases[i].TransientTime != nil {
				v := *in.DLCs.Cases[i].TransientTime
				out.DLCs.Cases[i].TransientTime = &v
			}
		}
	}
}

// DeepCopy returns a fully independent copy of the modeling deck.
func (in *ModelingOptions) DeepCopy() *ModelingOptions {
	if in == nil {
		return nil
	}
	out := new(ModelingOptions)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies the receiver into out, duplicating all nested
// slices and pointers.
func (in *AnalysisOptions) DeepCopyInto(out *AnalysisOptions) {
	*out = *in
	if in.DesignVariables != nil {
		out.DesignVariables = make([]DesignVariable, len(in.DesignVariables))
		for i := range in.DesignVariables {
			out.DesignVariables[i] = in.DesignVariables[i]
			if in.DesignVariables[i].Init != nil {
				v := *in.DesignVariables[i].Init
				out.DesignVariables[i].Init = &v
			}
		}
	}
	if in.Constraints != nil {
		out.Constraints = make([]Constraint, len(in.Constraints))
		for i := range in.Constraints {
			out.Constraints[i] = in.Constraints[i]
			if in.Constraints[i].Min != nil {
				v := *in.Constraints[i].Min
				out.Constraints[i].Min = &v
			}
			if in.Constraints[i].Max != nil {
				v := *in.Constraints[i].Max
				out.Constraints[i].Max = &v
			}
		}
	}
}

// DeepCopy returns a fully independent copy of the analysis deck.
func (in *AnalysisOptions) DeepCopy() *AnalysisOptions {
	if in == nil {
		return nil
	}
	out := new(AnalysisOptions)
	in.DeepCopyInto(out)
	return out
}

func copyFloats(in []float64) []float64 {
	if in == nil {
		return nil
	}
	out := make([]float64, len(in))
	copy(out, in)
	return out
}

func copyGrid(in [][]float64) [][]float64 {
	if in == nil {
		return nil
	}
	out := make([][]float64, len(in))
	for i := range in {
		out[i] = copyFloats(in[i])
	}
	return out
}

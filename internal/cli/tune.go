package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/windco-project/windco/internal/gluecode"
	"github.com/windco-project/windco/pkg/windio"
)

// tuneReport is the printable slice of a controller synthesis. The
// struct tags fix the json output names.
type tuneReport struct {
	Turbine        string  `json:"turbine"`
	RatedWind      float64 `json:"rated_wind"`      // m/s
	RatedSpeedRPM  float64 `json:"rated_speed_rpm"` // rotor side
	RatedTorque    float64 `json:"rated_torque"`    // N m, rotor side
	CpMax          float64 `json:"cp_max"`
	TSROpt         float64 `json:"tsr_opt"`
	FinePitchDeg   float64 `json:"fine_pitch_deg"`
	TorqueOptimalK float64 `json:"torque_optimal_k"` // N m s^2, generator side
	TorqueKp       float64 `json:"torque_kp"`
	TorqueKi       float64 `json:"torque_ki"`
	PitchPoints    int     `json:"pitch_points"`
	PitchKpAtRated float64 `json:"pitch_kp_at_rated"`
	PitchKiAtRated float64 `json:"pitch_ki_at_rated"`
}

func (a *app) tuneCmd() *cobra.Command {
	var turbinePath, modelingPath, format string

	c := &cobra.Command{
		Use:   "tune",
		Short: "Derive the operating schedule and controller tuning for a turbine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tb, err := windio.LoadTurbine(a.fs, turbinePath)
			if err != nil {
				return err
			}
			mo, err := windio.LoadModelingOptions(a.fs, modelingPath)
			if err != nil {
				return err
			}
			model, err := gluecode.BuildModel(tb, mo)
			if err != nil {
				return err
			}

			sched, tuning := model.Schedule, model.Tuning
			rep := tuneReport{
				Turbine:        tb.Name,
				RatedWind:      sched.RatedWind,
				RatedSpeedRPM:  sched.RatedSpeed * 30 / math.Pi,
				RatedTorque:    sched.RatedTorque,
				CpMax:          sched.CpMax,
				TSROpt:         sched.TSROpt,
				FinePitchDeg:   sched.FinePitch,
				TorqueOptimalK: tuning.Torque.OptimalK,
				TorqueKp:       tuning.Torque.Kp,
				TorqueKi:       tuning.Torque.Ki,
				PitchPoints:    len(tuning.Pitch.WindSpeed),
				PitchKpAtRated: tuning.Pitch.Kp[0],
				PitchKiAtRated: tuning.Pitch.Ki[0],
			}
			return printTune(a.out, rep, format)
		},
	}

	c.Flags().StringVarP(&turbinePath, "turbine", "t", "", "turbine deck (required)")
	c.Flags().StringVarP(&modelingPath, "modeling", "m", "", "modeling options deck (required)")
	c.Flags().StringVar(&format, "format", "pretty", "output format: pretty|json")

	_ = c.MarkFlagRequired("turbine")
	_ = c.MarkFlagRequired("modeling")
	return c
}

func printTune(w io.Writer, rep tuneReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "pretty", "":
		fmt.Fprintf(w, "Turbine:      %s\n", rep.Turbine)
		fmt.Fprintf(w, "Rated wind:   %.2f m/s\n", rep.RatedWind)
		fmt.Fprintf(w, "Rated speed:  %.2f rpm\n", rep.RatedSpeedRPM)
		fmt.Fprintf(w, "Rated torque: %.3g N m (rotor side)\n", rep.RatedTorque)
		fmt.Fprintf(w, "Cp max:       %.3f at TSR %.2f, fine pitch %.1f deg\n",
			rep.CpMax, rep.TSROpt, rep.FinePitchDeg)
		fmt.Fprintf(w, "Torque law:   K=%.4g N m s^2, PI kp=%.4g ki=%.4g\n",
			rep.TorqueOptimalK, rep.TorqueKp, rep.TorqueKi)
		fmt.Fprintf(w, "Pitch loop:   %d above-rated points, kp=%.4g ki=%.4g at rated\n",
			rep.PitchPoints, rep.PitchKpAtRated, rep.PitchKiAtRated)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", format)
	}
}

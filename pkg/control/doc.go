// Package control synthesizes and runs the turbine regulation loops.
//
// Tune linearizes the aerodynamic torque around every steady operating
// point and places the closed-loop poles of the pitch and torque PI
// loops at the damping ratio and natural frequency requested in the
// modeling deck, producing wind-scheduled gain tables. Controller wraps
// those tables into the runtime loop used by the reduced-order model and
// exported to the aeroelastic toolchain: optimal-torque tracking below
// rated, constant-power feathering above, with saturation, rate limits
// and integrator anti-windup. WindEstimator supplies the gain-scheduling
// variable with an extended Kalman filter on the drivetrain state.
package control

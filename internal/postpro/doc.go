// Package postpro reduces simulated load case output to the scalar
// quantities the optimization drivers and reports consume: per-channel
// statistics, rainflow-counted damage-equivalent loads, factored
// campaign extremes and annual energy production over the site wind
// distribution.
package postpro

// Package render draws trajectories and analysis results. PNG output goes
// through gonum/plot; interactive pages through go-echarts.
package render

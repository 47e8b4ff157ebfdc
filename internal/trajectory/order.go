package trajectory

import (
	"sort"
	"time"

	"github.com/banshee-data/pose.report/internal/poselog"
)

// SortByTime returns a copy of poses in timestamp order. Equal timestamps
// keep their input order.
func SortByTime(poses []poselog.Pose) []poselog.Pose {
	out := append([]poselog.Pose(nil), poses...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// UniqueTimes returns the distinct pose times truncated to whole seconds, sorted.
func UniqueTimes(poses []poselog.Pose) []time.Time {
	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, p := range poses {
		t := p.Time.Truncate(time.Second)
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// UniqueTypes returns the distinct localization type codes, sorted.
func UniqueTypes(poses []poselog.Pose) []int {
	seen := make(map[int]bool)
	var out []int
	for _, p := range poses {
		if !seen[p.Type] {
			seen[p.Type] = true
			out = append(out, p.Type)
		}
	}
	sort.Ints(out)
	return out
}

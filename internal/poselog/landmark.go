package poselog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// landmarkNumber tokenises every number on a landmark line. Timestamp digits
// are included, so configured indices count them too.
var landmarkNumber = regexp.MustCompile(`[-+]?\d*\.\d+|\d+`)

// ExtractLandmarks returns one landmark per configured keyword found on the line.
// A keyword whose indices fall outside the numbers on the line is dropped,
// as is every keyword on a line holding a number that does not parse.
func ExtractLandmarks(line string, lineNo int, configs []LandmarkConfig) []Landmark {
	var out []Landmark
	var nums []float64
	parsed := false
	for _, cfg := range configs {
		if cfg.Keyword == "" || !strings.Contains(line, cfg.Keyword) {
			continue
		}
		if !parsed {
			var err error
			if nums, err = lineNumbers(line); err != nil {
				tracef("line %d: landmark %q dropped: %v", lineNo, cfg.Keyword, err)
				return nil
			}
			parsed = true
		}
		ix, iy := cfg.Indices[0], cfg.Indices[1]
		if ix < 0 || iy < 0 || ix >= len(nums) || iy >= len(nums) {
			tracef("line %d: landmark %q wants indices (%d,%d), line has %d numbers", lineNo, cfg.Keyword, ix, iy, len(nums))
			continue
		}
		out = append(out, Landmark{Keyword: cfg.Keyword, X: nums[ix], Y: nums[iy], Line: lineNo})
	}
	return out
}

// lineNumbers parses every numeric token on the line. Positions matter, so a
// token that fails to parse fails the whole line.
func lineNumbers(line string) ([]float64, error) {
	tokens := landmarkNumber.FindAllString(line, -1)
	nums := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("number %d: %w", i, err)
		}
		nums[i] = v
	}
	return nums, nil
}

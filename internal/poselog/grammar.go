package poselog

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DefaultStateKeyword is the field name carrying the localization state.
const DefaultStateKeyword = "Location_state"

// minTupleValues is the number of tuple values a pose needs: x y z roll pitch yaw.
const minTupleValues = 6

// Variant identifies which line grammar produced a pose.
type Variant int

const (
	// VariantNone means no grammar matched.
	VariantNone Variant = iota
	// VariantState is "<state_keyword> = <token> ... type = <int> ... ( v1 .. v6 )".
	VariantState
	// VariantType is "type = <int> ( v1 .. v6 )" with no state token.
	VariantType
	// VariantExport is the export format "ts state type x y theta".
	VariantExport
)

func (v Variant) String() string {
	switch v {
	case VariantState:
		return "state"
	case VariantType:
		return "type"
	case VariantExport:
		return "export"
	default:
		return "none"
	}
}

var (
	timestampPattern = regexp.MustCompile(`(?P<date>\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})(?:,(?P<ms>\d{3}))?`)
	typeTuplePattern = regexp.MustCompile(`type\s*=\s*(?P<type>\d+)\s*\((?P<tuple>[^()]*)\)`)
	tuplePattern     = regexp.MustCompile(`\((?P<tuple>[^()]*)\)`)
	exportPattern    = regexp.MustCompile(`^(?P<date>\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:,\d{3})?)\s+(?P<state>\S+)\s+(?P<type>\S+)\s+(?P<x>\S+)\s+(?P<y>\S+)\s+(?P<theta>\S+)\s*$`)
)

// Grammar holds the compiled line grammars for one state keyword.
type Grammar struct {
	stateKeyword string
	statePattern *regexp.Regexp
}

// NewGrammar compiles the grammars. An empty keyword selects DefaultStateKeyword.
func NewGrammar(stateKeyword string) *Grammar {
	if stateKeyword == "" {
		stateKeyword = DefaultStateKeyword
	}
	return &Grammar{
		stateKeyword: stateKeyword,
		statePattern: regexp.MustCompile(regexp.QuoteMeta(stateKeyword) +
			`\s*=\s*(?P<state>[\w:]+).*?type\s*=\s*(?P<type>\d+)`),
	}
}

// StateKeyword returns the state field name the grammar matches.
func (g *Grammar) StateKeyword() string { return g.stateKeyword }

// ParseLine tries every log grammar in order and returns the first pose found.
func (g *Grammar) ParseLine(line string) (Pose, Variant, bool) {
	if p, ok := g.parseStateLine(line); ok {
		return p, VariantState, true
	}
	if p, ok := g.parseTypeLine(line); ok {
		return p, VariantType, true
	}
	return Pose{}, VariantNone, false
}

// parseStateLine handles the explicit-state variant. The tuple is the first
// parenthesised group after the type code.
func (g *Grammar) parseStateLine(line string) (Pose, bool) {
	if !strings.Contains(line, g.stateKeyword) {
		return Pose{}, false
	}
	ts, t, ok := parseTimestamp(line)
	if !ok {
		return Pose{}, false
	}
	loc := g.statePattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return Pose{}, false
	}
	state := submatch(line, loc, g.statePattern.SubexpIndex("state"))
	typeCode, err := strconv.Atoi(submatch(line, loc, g.statePattern.SubexpIndex("type")))
	if err != nil {
		return Pose{}, false
	}

	rest := line[loc[1]:]
	m := tuplePattern.FindStringSubmatch(rest)
	if m == nil {
		return Pose{}, false
	}
	values, ok := parseTuple(m[tuplePattern.SubexpIndex("tuple")])
	if !ok {
		return Pose{}, false
	}
	return newPose(ts, t, state, typeCode, values), true
}

// parseTypeLine handles the bare "type = N ( ... )" variant.
func (g *Grammar) parseTypeLine(line string) (Pose, bool) {
	ts, t, ok := parseTimestamp(line)
	if !ok {
		return Pose{}, false
	}
	m := typeTuplePattern.FindStringSubmatch(line)
	if m == nil {
		return Pose{}, false
	}
	typeCode, err := strconv.Atoi(m[typeTuplePattern.SubexpIndex("type")])
	if err != nil {
		return Pose{}, false
	}
	values, ok := parseTuple(m[typeTuplePattern.SubexpIndex("tuple")])
	if !ok {
		return Pose{}, false
	}
	return newPose(ts, t, "", typeCode, values), true
}

// ParseExportLine parses one line written by the trajectory exporter.
// A "--" state means the pose had no state token.
func ParseExportLine(line string) (Pose, bool) {
	m := exportPattern.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if m == nil {
		return Pose{}, false
	}
	ts, t, ok := parseTimestamp(m[exportPattern.SubexpIndex("date")])
	if !ok {
		return Pose{}, false
	}
	typeCode, err := strconv.Atoi(m[exportPattern.SubexpIndex("type")])
	if err != nil {
		return Pose{}, false
	}
	var xyt [3]float64
	for i, name := range []string{"x", "y", "theta"} {
		v, ok := parseFinite(m[exportPattern.SubexpIndex(name)])
		if !ok {
			return Pose{}, false
		}
		xyt[i] = v
	}
	state := m[exportPattern.SubexpIndex("state")]
	if state == "--" {
		state = ""
	}
	return Pose{
		Timestamp: ts,
		Time:      t,
		State:     state,
		Type:      typeCode,
		X:         xyt[0],
		Y:         xyt[1],
		Theta:     xyt[2],
	}, true
}

func newPose(ts string, t time.Time, state string, typeCode int, values []float64) Pose {
	p := Pose{
		Timestamp: ts,
		Time:      t,
		State:     state,
		Type:      typeCode,
		X:         values[0],
		Y:         values[1],
		Z:         values[2],
		Roll:      values[3],
		Pitch:     values[4],
		Theta:     values[5],
	}
	if len(values) > minTupleValues {
		p.Aux = append([]float64(nil), values[minTupleValues:]...)
	}
	return p
}

// parseTimestamp finds the first timestamp on the line and returns its raw
// text together with the parsed time.
func parseTimestamp(line string) (string, time.Time, bool) {
	m := timestampPattern.FindStringSubmatch(line)
	if m == nil {
		return "", time.Time{}, false
	}
	t, err := time.ParseInLocation(TimestampLayout, m[timestampPattern.SubexpIndex("date")], time.UTC)
	if err != nil {
		return "", time.Time{}, false
	}
	if ms := m[timestampPattern.SubexpIndex("ms")]; ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil {
			return "", time.Time{}, false
		}
		t = t.Add(time.Duration(n) * time.Millisecond)
	}
	return m[0], t, true
}

// parseTuple splits on whitespace and commas. Every token must be a finite float.
func parseTuple(body string) ([]float64, bool) {
	fields := strings.FieldsFunc(body, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields) < minTupleValues {
		return nil, false
	}
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, ok := parseFinite(f)
		if !ok {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func submatch(s string, loc []int, idx int) string {
	if idx < 0 || 2*idx+1 >= len(loc) || loc[2*idx] < 0 {
		return ""
	}
	return s[loc[2*idx]:loc[2*idx+1]]
}

// FormatTimestamp renders t in the log timestamp format with milliseconds.
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%s,%03d", t.Format(TimestampLayout), t.Nanosecond()/int(time.Millisecond))
}

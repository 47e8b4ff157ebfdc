package api

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/banshee-data/pose.report/internal/trajectory"
)

var errBadParam = errors.New("invalid parameter")

func paramInt(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", errBadParam, key, v)
	}
	return n, nil
}

func paramFloat(q url.Values, key string) (float64, error) {
	v := q.Get(key)
	if v == "" {
		return 0, fmt.Errorf("%w: missing %s", errBadParam, key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", errBadParam, key, v)
	}
	return f, nil
}

func paramRequired(q url.Values, key string) (string, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return "", fmt.Errorf("%w: missing %s", errBadParam, key)
	}
	return v, nil
}

// paramList splits a comma-separated value, dropping empty entries.
func paramList(q url.Values, key string) []string {
	var out []string
	for _, part := range strings.Split(q.Get(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// paramWindow reads from, to and type.
func paramWindow(q url.Values) (trajectory.Window, error) {
	var w trajectory.Window
	var err error
	if w.From, err = trajectory.ParseTime(q.Get("from")); err != nil {
		return w, err
	}
	if w.To, err = trajectory.ParseTime(q.Get("to")); err != nil {
		return w, err
	}
	if q.Get("type") != "" {
		typ, err := paramInt(q, "type", 0)
		if err != nil {
			return w, err
		}
		w.Type = &typ
	}
	return w, nil
}

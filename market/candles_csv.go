package market

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Candle files are one bar per line, semicolon separated:
//
//	time;open;high;low;close[;volume]
//
// time is RFC 3339 or "20060102 150405" in UTC. A header line starting with
// "time" is skipped, as are blank lines.
const csvTimeLayout = "20060102 150405"

// ReadCandles parses a candle file and returns the bars oldest first.
// Duplicate timestamps keep the last bar seen.
func ReadCandles(r io.Reader) ([]Candle, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	byTime := map[int64]Candle{}
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(strings.ToLower(text), "time") {
			continue
		}
		c, err := parseCandleLine(text)
		if err != nil {
			return nil, fmt.Errorf("candles line %d: %w", line, err)
		}
		byTime[c.Time.Unix()] = c
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read candles: %w", err)
	}

	out := make([]Candle, 0, len(byTime))
	for _, c := range byTime {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func parseCandleLine(s string) (Candle, error) {
	parts := strings.Split(s, ";")
	if len(parts) < 5 {
		return Candle{}, fmt.Errorf("want at least 5 fields, got %d", len(parts))
	}

	t, err := parseCandleTime(parts[0])
	if err != nil {
		return Candle{}, err
	}

	var v [5]float64
	n := len(parts) - 1
	if n > 5 {
		n = 5
	}
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		if err != nil {
			return Candle{}, fmt.Errorf("field %d: %w", i+2, err)
		}
		v[i] = f
	}

	c := Candle{Time: t, Open: v[0], High: v[1], Low: v[2], Close: v[3], Volume: v[4]}
	if c.High < c.Low {
		return Candle{}, fmt.Errorf("high %.8g below low %.8g", c.High, c.Low)
	}
	return c, nil
}

func parseCandleTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(csvTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q", s)
	}
	return t, nil
}

var timeframes = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// ParseTimeframe returns the bar length of an exchange timeframe string
// such as "15m" or "4h".
func ParseTimeframe(tf string) (time.Duration, error) {
	d, ok := timeframes[strings.ToLower(strings.TrimSpace(tf))]
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe: %q", tf)
	}
	return d, nil
}

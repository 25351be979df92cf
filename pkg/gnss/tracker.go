package gnss

import (
	"fmt"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// knotsToMPS converts speed over ground to m/s.
const knotsToMPS = 0.514444

// Fix is the latest position solution.
type Fix struct {
	Time       time.Time `json:"time"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lon"`
	Altitude   float64   `json:"alt"`
	Speed      float64   `json:"speed"`
	Course     float64   `json:"course"`
	Satellites int       `json:"sats"`
	InView     int       `json:"in_view"`
	Quality    string    `json:"quality"`
	HDOP       float64   `json:"hdop"`
	Valid      bool      `json:"valid"`
}

func (f Fix) String() string {
	if !f.Valid {
		return fmt.Sprintf("no fix (%d/%d sats)", f.Satellites, f.InView)
	}
	return fmt.Sprintf("%.6f,%.6f alt=%.1fm speed=%.1fm/s sats=%d %s",
		f.Latitude, f.Longitude, f.Altitude, f.Speed, f.Satellites, f.Time.Format(time.RFC3339))
}

// Tracker maintains the fix from a stream of NMEA sentences.
type Tracker struct {
	lock sync.RWMutex
	fix  Fix
	date nmea.Date
}

// Fix returns a copy of the current fix.
func (t *Tracker) Fix() Fix {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.fix
}

// Feed parses one sentence and merges it into the fix.
// updated reports a position change, i.e. a valid GGA, RMC or GLL.
func (t *Tracker) Feed(sentence string) (updated bool, err error) {
	sentence = strings.TrimSpace(sentence)
	if sentence == "" {
		return false, nil
	}
	s, err := nmea.Parse(sentence)
	if err != nil {
		return false, err
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	switch m := s.(type) {
	case nmea.GGA:
		t.fix.Quality = m.FixQuality
		t.fix.Satellites = int(m.NumSatellites)
		t.fix.HDOP = m.HDOP
		if m.FixQuality == nmea.Invalid {
			t.fix.Valid = false
			return false, nil
		}
		t.fix.Latitude, t.fix.Longitude = m.Latitude, m.Longitude
		t.fix.Altitude = m.Altitude
		t.setTime(m.Time)
		t.fix.Valid = true
		return true, nil
	case nmea.RMC:
		if m.Date.Valid {
			t.date = m.Date
		}
		if m.Validity != nmea.ValidRMC {
			t.fix.Valid = false
			return false, nil
		}
		t.fix.Latitude, t.fix.Longitude = m.Latitude, m.Longitude
		t.fix.Speed = m.Speed * knotsToMPS
		t.fix.Course = m.Course
		t.setTime(m.Time)
		t.fix.Valid = true
		return true, nil
	case nmea.GLL:
		if m.Validity != nmea.ValidGLL {
			return false, nil
		}
		t.fix.Latitude, t.fix.Longitude = m.Latitude, m.Longitude
		t.setTime(m.Time)
		t.fix.Valid = true
		return true, nil
	case nmea.GSA:
		if m.FixType == nmea.FixNone {
			t.fix.Valid = false
		}
	case nmea.GSV:
		t.fix.InView = int(m.NumberSVsInView)
	}
	return false, nil
}

func (t *Tracker) setTime(tm nmea.Time) {
	if !tm.Valid {
		return
	}
	year, month, day := 1970, time.January, 1
	if t.date.Valid {
		year, month, day = 2000+t.date.YY, time.Month(t.date.MM), t.date.DD
	}
	t.fix.Time = time.Date(year, month, day,
		tm.Hour, tm.Minute, tm.Second, tm.Millisecond*int(time.Millisecond), time.UTC)
}

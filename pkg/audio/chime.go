package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// SampleRate of the generated chime, mono signed 16-bit little endian.
const SampleRate = 44100

const chimePause = 1500 * time.Millisecond

type note struct {
	freq float64
	dur  time.Duration
}

// Two descending notes, E6 then C6.
var chimeNotes = []note{
	{freq: 1318.51, dur: 180 * time.Millisecond},
	{freq: 1046.50, dur: 320 * time.Millisecond},
}

// Chime renders the alert chime as PCM.
func Chime() []byte {
	var total int
	for _, n := range chimeNotes {
		total += samples(n.dur)
	}

	buf := make([]byte, 0, total*2)
	for _, n := range chimeNotes {
		buf = appendTone(buf, n.freq, samples(n.dur))
	}
	return buf
}

func samples(d time.Duration) int {
	return int(d.Seconds() * SampleRate)
}

// appendTone writes a sine with a short attack and an exponential decay so
// the notes do not click.
func appendTone(buf []byte, freq float64, n int) []byte {
	const amplitude = 0.35 * math.MaxInt16
	attack := n / 50
	var sample [2]byte
	for i := 0; i < n; i++ {
		env := math.Exp(-4 * float64(i) / float64(n))
		if i < attack {
			env *= float64(i) / float64(attack)
		}
		v := amplitude * env * math.Sin(2*math.Pi*freq*float64(i)/SampleRate)
		binary.LittleEndian.PutUint16(sample[:], uint16(int16(v)))
		buf = append(buf, sample[:]...)
	}
	return buf
}

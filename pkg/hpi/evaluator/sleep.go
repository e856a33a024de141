//go:build !(js && wasm)

package evaluator

import (
	"math"
	"time"
)

// sleepSeconds blocks for the given number of seconds. Negative and NaN
// durations do not block.
func (in *Interpreter) sleepSeconds(secs float64) Value {
	if math.IsNaN(secs) || secs <= 0 {
		return UNIT
	}
	d := time.Duration(math.Min(secs*float64(time.Second), math.MaxInt64))
	in.sleep(d)
	return UNIT
}

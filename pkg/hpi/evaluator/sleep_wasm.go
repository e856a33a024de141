//go:build js && wasm

package evaluator

// sleepSeconds cannot block the browser's only thread.
func (in *Interpreter) sleepSeconds(secs float64) Value {
	return in.newError("SLEEP-0001", nil)
}

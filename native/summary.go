package native

// summarize calls a native summary entry point, which prints to stdout,
// and returns what it printed.
func summarize(lib *Lib, fn func(uintptr), ptr uintptr, symbol string) (string, error) {
	if fn == nil {
		return "", missing(symbol)
	}
	c, err := lib.StartCapture()
	if err != nil {
		return "", err
	}
	fn(ptr)
	return c.Close()
}

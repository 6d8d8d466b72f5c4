package h

import "fmt"

// DataInit runs the given Datastar expression once the element is loaded.
func DataInit(format string, a ...any) H {
	return Data("init", fmt.Sprintf(format, a...))
}

// DataSignals seeds a single Datastar signal with a string value.
func DataSignals(name, value string) H {
	return Data("signals", fmt.Sprintf("{'%s':'%s'}", name, value))
}

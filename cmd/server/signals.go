package main

import "os"

// shutdownSignals trigger graceful shutdown. SIGTERM is appended by
// signals_unix.go on non-Windows platforms.
var shutdownSignals = []os.Signal{os.Interrupt}

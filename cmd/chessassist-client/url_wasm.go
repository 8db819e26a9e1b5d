//go:build js && wasm

package main

import "syscall/js"

// Derive the API base from the page origin at runtime. Behind a reverse proxy
// the editor API is expected under /chessassist on the same host.
var defaultAPIBase = js.Global().Get("location").Get("origin").String() + "/chessassist"

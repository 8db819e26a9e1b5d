// FILE: lixenwraith/chessassist/cmd/chessassist-client/url_native.go
//go:build !js && !wasm

package main

var defaultAPIBase = "http://localhost:8080"

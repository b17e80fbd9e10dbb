// Package main is the entry point for the shapewire CLI. It lists the
// registered shapes, encodes and decodes CBOR against them, and invokes
// operations over HTTP.
package main

func main() {
	Execute()
}

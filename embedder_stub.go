//go:build !cgo || !onnx

package main

import "errors"

var errONNXNotBuilt = errors.New("ONNX runtime not compiled in (build with CGO_ENABLED=1 -tags onnx)")

// newONNXBackend always fails without the onnx build tag
func newONNXBackend(_ string) (EmbedderBackend, error) {
	return nil, errONNXNotBuilt
}

func isONNXAvailable() bool {
	return false
}

package utils

import (
	"bytes"

	"golang.org/x/text/transform"

	"github.com/sceneforge/raw2gltf/config"
)

// BytesToString decodes a possibly zero-terminated legacy-encoded name
// (node/material names in old assets are rarely UTF-8) using the charmap
// selected via config.SetEncoding.
func BytesToString(bs []byte) string {
	n := bytes.IndexByte(bs, 0)
	if n < 0 {
		n = len(bs)
	}

	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs[:n])
	if err != nil {
		panic(err)
	}

	return string(s)
}

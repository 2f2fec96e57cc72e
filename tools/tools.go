//go:build tools

// Package tools pins the versions of the lint and formatting tools used in
// development. None of these are imported by the application.
package tools

import (
	_ "github.com/daixiang0/gci"
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "mvdan.cc/gofumpt"
)

// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/mapaudit/mapaudit/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}

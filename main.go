// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jcodagnone/poibench/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}

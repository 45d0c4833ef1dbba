// Copyright (c) 2025 HYPR. PTE. LTD.
//
// Business Source License 1.1
// See LICENSE file in the project root for details.

//go:build !unix

package browser

import (
	"context"
	"errors"
	"os"
	"time"
)

// ExecSpawner is unavailable on this platform; the process strategy fails
// and provisioning moves on.
type ExecSpawner struct {
	Output *os.File
	Grace  time.Duration
}

func (ExecSpawner) Spawn(context.Context, string, []string) (Process, error) {
	return nil, errors.New("browser: raw process spawning is only supported on unix")
}

// Package cmd provides common initialization functions for the binaries.
package cmd

import (
	"log/slog"

	"github.com/flowd-io/flowd/pkg/registry"
)

func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	registry.RegisterDefaultRunners(reg)

	return reg
}

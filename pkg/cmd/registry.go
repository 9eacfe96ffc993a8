// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"log/slog"

	"github.com/guestflow/guestflow/pkg/delivery"
	"github.com/guestflow/guestflow/pkg/nodes/condition"
	"github.com/guestflow/guestflow/pkg/nodes/delay"
	"github.com/guestflow/guestflow/pkg/nodes/end"
	"github.com/guestflow/guestflow/pkg/nodes/guestform"
	"github.com/guestflow/guestflow/pkg/nodes/sendtemplate"
	"github.com/guestflow/guestflow/pkg/nodes/trigger"
	"github.com/guestflow/guestflow/pkg/nodes/updateguest"
	"github.com/guestflow/guestflow/pkg/nodes/waitreply"
	"github.com/guestflow/guestflow/pkg/registry"
	"github.com/guestflow/guestflow/pkg/repository"
)

// NewRegistry builds a registry with every native node type registered.
func NewRegistry(logger *slog.Logger, repos *repository.Repositories, dispatcher delivery.Dispatcher) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.Register(trigger.NewFactory())
	reg.Register(sendtemplate.NewFactory(repos.Templates, dispatcher))
	reg.Register(waitreply.NewFactory())
	reg.Register(condition.NewFactory())
	reg.Register(delay.NewFactory())
	reg.Register(guestform.NewFactory())
	reg.Register(updateguest.NewFactory(repos.Guests))
	reg.Register(end.NewFactory())

	return reg
}

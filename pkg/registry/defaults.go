package registry

import (
	"github.com/flowd-io/flowd/pkg/runners/agent"
	"github.com/flowd-io/flowd/pkg/runners/email"
	"github.com/flowd-io/flowd/pkg/runners/form"
	"github.com/flowd-io/flowd/pkg/runners/manual"
	"github.com/flowd-io/flowd/pkg/runners/telegram"
	"github.com/flowd-io/flowd/pkg/runners/waitforreply"
	"github.com/flowd-io/flowd/pkg/runners/webhook"
)

// RegisterDefaultRunners registers every built-in node type.
func RegisterDefaultRunners(registry *Registry) {
	registry.Register(manual.NewFactory())
	registry.Register(webhook.NewFactory())
	registry.Register(telegram.NewFactory())
	registry.Register(email.NewFactory())
	registry.Register(agent.NewFactory())
	registry.Register(form.NewFactory())
	registry.Register(waitforreply.NewFactory())
}

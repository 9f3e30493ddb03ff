package stage

import (
	"context"

	"aircheck/internal/registry"
)

// Handler describes the contract the pipeline driver needs from each stage.
type Handler interface {
	Prepare(context.Context, *registry.Job) error
	Execute(context.Context, *registry.Job) error
	HealthCheck(context.Context) Health
}

package contracts

import (
	"context"

	"github.com/julienschmidt/httprouter"
)

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// BackgroundTask is a long-running job owned by the application lifecycle.
type BackgroundTask interface {
	Start(ctx context.Context) error
	Stop()
}

package connect

import (
	"net/http"

	"connectrpc.com/connect"

	"github.com/osa030/hibiki/internal/api/queuev1"
)

// NewMux registers the queue service and, when present, the catalog service
// behind the token interceptor.
func NewMux(queueSvc *QueueService, catalogSvc *CatalogService, token string) *http.ServeMux {
	interceptors := connect.WithInterceptors(NewTokenInterceptor(token))

	mux := http.NewServeMux()
	queuePath, queueHandler := queuev1.NewQueueServiceHandler(queueSvc, interceptors)
	mux.Handle(queuePath, queueHandler)

	if catalogSvc != nil {
		catalogPath, catalogHandler := queuev1.NewCatalogServiceHandler(catalogSvc, interceptors)
		mux.Handle(catalogPath, catalogHandler)
	}
	return mux
}

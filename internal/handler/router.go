package handler

import (
	"net/http"
	"time"

	"holderscan/internal/svc"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeromicro/go-zero/rest"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodPost,
				Path:    "/holders",
				Handler: TokenHoldersHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/balance",
				Handler: BalanceHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api/"),
		// a cold holders scan walks the whole chain history
		rest.WithTimeout(time.Hour),
	)

	server.AddRoute(rest.Route{
		Method:  http.MethodGet,
		Path:    "/metrics",
		Handler: promhttp.Handler().ServeHTTP,
	})
}

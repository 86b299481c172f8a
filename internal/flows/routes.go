package flows

// Mediator routes.
const (
	RouteLoginFetch       = "/login/fetch"
	RouteMatrixLoginFetch = "/matrix/login/fetch"
	RouteDataCreate       = "/data/create"
	RouteDataResponse     = "/data/response"
	RouteTransactCreate   = "/transaction/v2/create"
	RouteTransactAdd      = "/transaction/v2/add"
	RouteTransactResponse = "/transaction/v2/response"
	RouteTransactNext     = "/transaction/v2/next"
)

// Protocol versions advertised in deeplink payloads.
const (
	LoginVersion       = 1
	MatrixLoginVersion = 1
	DataVersion        = 1
	TransactVersion    = 2
)

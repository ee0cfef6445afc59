package constants

const (
	APIFieldRequestID = "request_id"
)

const (
	ContentTypeJSON = "application/json"
)

const (
	HeaderAccept                    = "Accept"
	HeaderAuthorization             = "Authorization"
	HeaderContentLength             = "Content-Length"
	HeaderContentType               = "Content-Type"
	HeaderOrigin                    = "Origin"
	HeaderAccessControlAllowHeaders = "Access-Control-Allow-Headers"
	HeaderXRequestedWith            = "X-Requested-With"
	HeaderXRequestID                = "X-Request-ID"
)

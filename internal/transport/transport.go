package transport

// Constants shared between the server and the CLI client.
const (
	// DefaultServerPort is the default port the server listens on.
	DefaultServerPort = ":8082"
	// DefaultServerURL is the default URL for the server.
	DefaultServerURL = "http://localhost:8082"

	// CSRFHeader carries the anti-forgery token on mutating requests.
	CSRFHeader = "X-CSRF-Token"
	// CSRFCookie is the double-submit cookie name.
	CSRFCookie = "csrf_token"
)

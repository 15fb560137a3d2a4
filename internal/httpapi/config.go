package httpapi

// maxBodyBytes controls the maximum allowed request body size for JSON
// endpoints. Uploads have their own, larger limit.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum JSON body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// maxUploadBytes bounds multipart audio uploads on /transcribe.
var maxUploadBytes int64 = 256 << 20

// SetMaxUploadBytes configures the upload limit (0 or negative resets
// to the 256 MiB default).
func SetMaxUploadBytes(n int64) {
	if n <= 0 {
		maxUploadBytes = 256 << 20
		return
	}
	maxUploadBytes = n
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}

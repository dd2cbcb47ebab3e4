package constants

// Transport names.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// PocketBase collection names.
const (
	SuperusersCollection  = "_superusers"
	DefaultAuthCollection = "users"
)

// Import modes.
const (
	ImportCreate = "create"
	ImportUpdate = "update"
	ImportUpsert = "upsert"
)

// DefaultImpersonateDuration is the impersonation token lifetime in seconds.
const DefaultImpersonateDuration = 3600

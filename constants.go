package client

import "time"

const (
	ServiceName       = "prizmdoc"
	DefaultBaseURL    = "https://api.accusoft.com"
	DefaultTimeout    = 5 * time.Minute
	ProcessingTimeout = time.Duration(0)
	APIVersion        = "v2"

	DefaultPollInterval    = 500 * time.Millisecond
	DefaultMaxPollInterval = 5 * time.Second
	DefaultUploadWorkers   = 4
)

// Request and response headers.
const (
	AffinityTokenHeader = "Accusoft-Affinity-Token"
	APIKeyHeader        = "Acs-Api-Key"
)

// Process states reported by the server.
const (
	StateProcessing = "processing"
	StateComplete   = "complete"
	StateError      = "error"
)

// API endpoints
const (
	EndpointWorkFile          = "/PCCIS/V1/WorkFile"
	EndpointContentConverters = "/" + APIVersion + "/contentConverters"
	EndpointMarkupBurner      = "/PCCIS/V1/MarkupBurner"
)

package storage

import "mermaidrender/internal/ports"

// Provider is the archive contract used by the render pipeline and the
// history endpoints.
type Provider = ports.StorageProvider

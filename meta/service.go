package meta

import "sync"

var (
	serviceName    string    //nolint:gochecknoglobals // process-wide service identity
	serviceVersion string    //nolint:gochecknoglobals // process-wide service identity
	once           sync.Once //nolint:gochecknoglobals // ensures SetServiceInfo is called once
)

// SetServiceInfo sets the global service name and version.
// Subsequent calls are ignored.
func SetServiceInfo(name, version string) {
	once.Do(func() {
		serviceName = name
		serviceVersion = version
	})
}

// ServiceInfo returns the service name and version as metadata, skipping unset values.
func ServiceInfo() map[ContextKey]string {
	info := make(map[ContextKey]string, 2) //nolint:mnd // name and version
	if serviceName != "" {
		info[ServiceName] = serviceName
	}
	if serviceVersion != "" {
		info[ServiceVersion] = serviceVersion
	}
	return info
}

package ir

// Managed API connections are called through the management proxy.
const (
	ManagementProxyBase    = "https://management.azure.com"
	ManagementProxySuffix  = "/extensions/proxy"
	ManagementProxyVersion = "2018-07-01-preview"
)

// ManagementProxyURI joins a connection id and a path into the URI of a
// managed connection call.
func ManagementProxyURI(connection, path string) string {
	return ManagementProxyBase + connection + ManagementProxySuffix + path + "?api-version=" + ManagementProxyVersion
}

// ConnectionName reads host.connection.name from ApiConnection inputs.
func ConnectionName(inputs map[string]any) string {
	host, _ := inputs["host"].(map[string]any)
	conn, _ := host["connection"].(map[string]any)
	name, _ := conn["name"].(string)
	return name
}

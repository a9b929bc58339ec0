package discovery

// Options carries the caller-supplied parameters of one discovery request.
// It is an immutable value: the service copies and fills defaults rather
// than mutating the caller's instance.
type Options struct {
	// MSISDN is the subscriber number, when known. Its presence switches
	// the discovery request from GET to a form POST.
	MSISDN string

	// IdentifiedMCC/IdentifiedMNC are operator codes identified from the
	// network; they take precedence over the selected pair for caching.
	IdentifiedMCC string
	IdentifiedMNC string

	// SelectedMCC/SelectedMNC are operator codes chosen by the end user
	// through the operator selection UI.
	SelectedMCC string
	SelectedMNC string

	// UsingMobileData hints that the request originates on a mobile data
	// connection, enabling header-based operator identification.
	UsingMobileData bool

	// LocalClientIP is the device's local IP, forwarded when known.
	LocalClientIP string

	// ClientIP is the end user's public IP, forwarded as X-Source-IP
	// when the caller proxies the discovery request.
	ClientIP string

	// XRedirect controls the discovery service's redirect behavior for
	// the operator selection flow.
	XRedirect string

	// UseCorrelationID attaches a freshly generated correlation id to the
	// request and requires the response to echo it.
	UseCorrelationID bool
}

// cacheMCC and cacheMNC return the operator codes used as the discovery
// cache key, preferring identified values over selected ones.
func (o Options) cacheMCC() string {
	if o.IdentifiedMCC != "" {
		return o.IdentifiedMCC
	}
	return o.SelectedMCC
}

func (o Options) cacheMNC() string {
	if o.IdentifiedMNC != "" {
		return o.IdentifiedMNC
	}
	return o.SelectedMNC
}

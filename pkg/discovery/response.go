package discovery

// Wire types for the discovery API. Field names are protocol-mandated.

// Link is a single rel/href pair from a discovery response.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// Link rel values the discovery API uses for operator endpoints.
const (
	RelAuthorization     = "authorization"
	RelToken             = "token"
	RelTokenRefresh      = "tokenrefresh"
	RelTokenRevoke       = "tokenrevoke"
	RelUserInfo          = "userinfo"
	RelPremiumInfo       = "premiuminfo"
	RelProviderMetadata  = "openid-configuration"
	RelJWKS              = "jwks"
	RelOperatorSelection = "operatorSelection"
)

// OperatorID carries the operator's endpoint links.
type OperatorID struct {
	Link []Link `json:"link"`
}

// APIs nests the operatorid link collection.
type APIs struct {
	OperatorID *OperatorID `json:"operatorid,omitempty"`
}

// ResponseData is the nested "response" object of a successful discovery
// payload: the operator-scoped client credentials and endpoint links.
type ResponseData struct {
	ServingOperator string `json:"serving_operator,omitempty"`
	Country         string `json:"country,omitempty"`
	Currency        string `json:"currency,omitempty"`
	ClientID        string `json:"client_id,omitempty"`
	ClientSecret    string `json:"client_secret,omitempty"`
	ClientName      string `json:"client_name,omitempty"`
	SubscriberID    string `json:"subscriber_id,omitempty"`
	Apis            *APIs  `json:"apis,omitempty"`
}

// Response is the raw discovery payload, success or error.
type Response struct {
	TTL           int64         `json:"ttl,omitempty"`
	ResponseCode  int           `json:"response_code,omitempty"`
	SubscriberID  string        `json:"subscriber_id,omitempty"`
	CorrelationID string        `json:"correlation_id,omitempty"`
	Error         string        `json:"error,omitempty"`
	Description   string        `json:"description,omitempty"`
	Response      *ResponseData `json:"response,omitempty"`
	Links         []Link        `json:"links,omitempty"`
}

// links returns every link the payload carries, top level and nested.
func (r *Response) links() []Link {
	var all []Link
	all = append(all, r.Links...)
	if r.Response != nil && r.Response.Apis != nil && r.Response.Apis.OperatorID != nil {
		all = append(all, r.Response.Apis.OperatorID.Link...)
	}
	return all
}

// linkFor returns the href of the first link with the given rel, or "".
func (r *Response) linkFor(rel string) string {
	for _, link := range r.links() {
		if link.Rel == rel {
			return link.Href
		}
	}
	return ""
}

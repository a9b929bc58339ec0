package mobileconnect

import (
	"github.com/openmobileid/mobileconnect/pkg/discovery"
	mcerrors "github.com/openmobileid/mobileconnect/pkg/errors"
	"github.com/openmobileid/mobileconnect/pkg/token"
)

// StatusType discriminates the outcome of an orchestrator call and tells
// the caller what to do next.
type StatusType string

const (
	// StatusError terminates the flow; ErrorCode and ErrorMessage explain.
	StatusError StatusType = "error"
	// StatusOperatorSelection means the operator could not be identified
	// automatically; redirect the end user to URL to pick one.
	StatusOperatorSelection StatusType = "operator_selection"
	// StatusStartAuthentication means the operator is resolved; proceed to
	// StartAuthentication with the carried discovery result.
	StatusStartAuthentication StatusType = "start_authentication"
	// StatusStartDiscovery means the flow must restart from discovery,
	// typically because a discovery result was missing or unusable.
	StatusStartDiscovery StatusType = "start_discovery"
	// StatusAuthentication carries the authorization URL to redirect the
	// end user to, plus the state and nonce the caller must retain.
	StatusAuthentication StatusType = "authentication"
	// StatusComplete carries the token response of a finished flow.
	StatusComplete StatusType = "complete"
	// StatusUserInfo carries an identity or userinfo response.
	StatusUserInfo StatusType = "user_info"
)

// Status is the discriminated result every orchestrator entry point
// returns. Internal failures are translated into an Error status rather
// than surfaced as Go errors; callers branch on Type, then on ErrorCode.
type Status struct {
	Type StatusType

	ErrorCode    string
	ErrorMessage string

	// URL is the next redirect target for OperatorSelection and
	// Authentication statuses.
	URL string

	State string
	Nonce string

	// SDKSession is the opaque id the discovery result was cached under,
	// when session caching is enabled.
	SDKSession string

	// EncryptedMSISDN is the encrypted subscriber id discovery (or the
	// operator selection callback) returned, for use as a login hint.
	EncryptedMSISDN string

	DiscoveryResult  *discovery.Result
	TokenResponse    *token.Response
	IdentityResponse *IdentityResponse

	// Outcome reports the result of operations without a payload, such as
	// token revocation.
	Outcome string
}

// ErrorStatus builds an Error status from a code and message.
func ErrorStatus(code mcerrors.ErrorCode, message string) *Status {
	return &Status{
		Type:         StatusError,
		ErrorCode:    string(code),
		ErrorMessage: message,
	}
}

// errorStatusFrom converts an internal error into an Error status. This is
// the single point where errors cross the orchestrator boundary.
func errorStatusFrom(err error) *Status {
	return ErrorStatus(mcerrors.GetErrorCode(err), err.Error())
}

func operatorSelectionStatus(url string) *Status {
	return &Status{Type: StatusOperatorSelection, URL: url}
}

func startAuthenticationStatus(result *discovery.Result, sdkSession string) *Status {
	return &Status{
		Type:            StatusStartAuthentication,
		DiscoveryResult: result,
		SDKSession:      sdkSession,
	}
}

func startDiscoveryStatus(message string) *Status {
	return &Status{Type: StatusStartDiscovery, ErrorMessage: message}
}

func authenticationStatus(url, state, nonce, sdkSession string) *Status {
	return &Status{
		Type:       StatusAuthentication,
		URL:        url,
		State:      state,
		Nonce:      nonce,
		SDKSession: sdkSession,
	}
}

func completeStatus(response *token.Response) *Status {
	return &Status{Type: StatusComplete, TokenResponse: response}
}

func userInfoStatus(identity *IdentityResponse) *Status {
	return &Status{Type: StatusUserInfo, IdentityResponse: identity}
}

// validationErrorCode maps a failed token validation outcome onto the
// stable error code taxonomy.
func validationErrorCode(result token.ValidationResult) mcerrors.ErrorCode {
	switch result {
	case token.TokenMissing:
		return mcerrors.ErrCodeTokenMissing
	case token.TokenExpired, token.MaxAgeExceeded:
		return mcerrors.ErrCodeTokenExpired
	case token.InvalidNonce:
		return mcerrors.ErrCodeInvalidNonce
	case token.NoMatchingKey:
		return mcerrors.ErrCodeNoMatchingKey
	case token.InvalidSignature:
		return mcerrors.ErrCodeInvalidSignature
	case token.AccessTokenMissing:
		return mcerrors.ErrCodeAccessTokenMissing
	case token.AccessTokenExpired:
		return mcerrors.ErrCodeAccessTokenExpired
	default:
		return mcerrors.ErrCodeTokenInvalid
	}
}

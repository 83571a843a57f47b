package errors

// Kind is the normalized category of a failure.
type Kind string

const (
	// KindNetwork indicates the request never got a response.
	KindNetwork Kind = "network"
	// KindValidation indicates the server rejected the input.
	KindValidation Kind = "validation"
	// KindPermission indicates missing authentication or authorization.
	KindPermission Kind = "permission"
	// KindNotFound indicates the requested resource does not exist.
	KindNotFound Kind = "not_found"
	// KindServer indicates a 5xx response.
	KindServer Kind = "server"
	// KindClient indicates a failure raised on this side of the wire.
	KindClient Kind = "client"
	// KindUnknown is used for values that are not errors at all.
	KindUnknown Kind = "unknown"
)

// Kinds lists every Kind in a stable order.
var Kinds = []Kind{KindNetwork, KindValidation, KindPermission, KindNotFound, KindServer, KindClient, KindUnknown}

// String returns the wire name of the kind.
func (k Kind) String() string { return string(k) }

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Terminal reports whether the kind can never be made retryable by an
// action refinement.
func (k Kind) Terminal() bool {
	return k == KindNotFound || k == KindPermission
}

// Transient reports whether a failure of this kind is likely to go away on
// its own.
func (k Kind) Transient() bool {
	return k == KindNetwork || k == KindServer
}

// SuggestedAction is the recovery step offered to the user.
type SuggestedAction string

const (
	ActionNone            SuggestedAction = ""
	ActionRetry           SuggestedAction = "retry"
	ActionGoBack          SuggestedAction = "go_back"
	ActionRefresh         SuggestedAction = "refresh"
	ActionContactSupport  SuggestedAction = "contact_support"
	ActionLogin           SuggestedAction = "login"
	ActionCheckInput      SuggestedAction = "check_input"
	ActionCheckConnection SuggestedAction = "check_connection"
)

// String returns the wire name of the action.
func (a SuggestedAction) String() string { return string(a) }

var retryableKinds = map[Kind]bool{
	KindNetwork: true,
	KindServer:  true,
	KindClient:  true,
}

// IsRetryableKind returns the default retryability of a kind.
func IsRetryableKind(k Kind) bool {
	return retryableKinds[k]
}

// User-facing messages.
const (
	MsgNetwork        = "Unable to reach the server. Please check your internet connection."
	MsgServer         = "The server is busy right now. Please try again shortly."
	MsgNotFound       = "The requested item could not be found."
	MsgForbidden      = "You don't have permission to perform this action."
	MsgUnauthorized   = "Your session has expired. Please log in again."
	MsgValidation     = "The request was invalid. Please check your input and try again."
	MsgClient         = "Something went wrong. Please try again."
	MsgUnknown        = "An unexpected error occurred."
	MsgCanceled       = "The operation was canceled."
	MsgPermissionText = "You don't have permission to access this resource."
)

var defaultMessages = map[Kind]string{
	KindNetwork:    MsgNetwork,
	KindValidation: MsgValidation,
	KindPermission: MsgForbidden,
	KindNotFound:   MsgNotFound,
	KindServer:     MsgServer,
	KindClient:     MsgClient,
	KindUnknown:    MsgUnknown,
}

var defaultActions = map[Kind]SuggestedAction{
	KindNetwork:    ActionCheckConnection,
	KindValidation: ActionCheckInput,
	KindPermission: ActionContactSupport,
	KindNotFound:   ActionGoBack,
	KindServer:     ActionRetry,
	KindClient:     ActionRetry,
	KindUnknown:    ActionRefresh,
}

// DefaultMessage returns the generic user-facing message for a kind.
func DefaultMessage(k Kind) string {
	if m, ok := defaultMessages[k]; ok {
		return m
	}
	return MsgUnknown
}

// DefaultAction returns the generic suggested action for a kind.
func DefaultAction(k Kind) SuggestedAction {
	return defaultActions[k]
}

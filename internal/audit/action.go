package audit

// Action identifies what kind of operation an audit entry records.
type Action string

const (
	ActionCreate                Action = "CREATE"
	ActionUpdate                Action = "UPDATE"
	ActionDelete                Action = "DELETE"
	ActionView                  Action = "VIEW"
	ActionDownload              Action = "DOWNLOAD"
	ActionLogin                 Action = "LOGIN"
	ActionLogout                Action = "LOGOUT"
	ActionLoginFailed           Action = "LOGIN_FAILED"
	ActionPasswordConfirmed     Action = "PASSWORD_CONFIRMED"
	ActionPasswordConfirmFailed Action = "PASSWORD_CONFIRM_FAILED"
	ActionShare                 Action = "SHARE"
)

// Severity classifies how sensitive a recorded action is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// defaultSeverities is the base action→severity mapping used when an
// entity does not provide its own.
var defaultSeverities = map[Action]Severity{
	ActionCreate:   SeverityLow,
	ActionUpdate:   SeverityLow,
	ActionDelete:   SeverityHigh,
	ActionView:     SeverityLow,
	ActionDownload: SeverityMedium,
	ActionLogin:    SeverityLow,
	ActionLogout:   SeverityLow,
}

// defaultActions is the lifecycle action set audited when an entity does
// not configure its own.
var defaultActions = []Action{ActionCreate, ActionUpdate, ActionDelete}

// Verb returns the human form of the action used in default descriptions,
// e.g. "Create" for CREATE or "Login failed" for LOGIN_FAILED.
func (a Action) Verb() string {
	switch a {
	case ActionCreate:
		return "Create"
	case ActionUpdate:
		return "Update"
	case ActionDelete:
		return "Delete"
	case ActionView:
		return "View"
	case ActionDownload:
		return "Download"
	case ActionLogin:
		return "Login"
	case ActionLogout:
		return "Logout"
	case ActionLoginFailed:
		return "Login failed"
	case ActionPasswordConfirmed:
		return "Password confirmed"
	case ActionPasswordConfirmFailed:
		return "Password confirmation failed"
	case ActionShare:
		return "Share"
	}
	return string(a)
}

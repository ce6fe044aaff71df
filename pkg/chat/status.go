package chat

// Status is the session state shown to the user. Exactly one value is
// active at a time; it gates sending (NewChat and Ready only) and tells
// the renderer whether the trailing assistant message is still partial
// (Working).
type Status int

const (
	StatusNewChat Status = iota
	StatusDisconnected
	StatusOffline
	StatusBuilding
	StatusReady
	StatusWorking
	StatusConnecting
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusNewChat:
		return "NEW_CHAT"
	case StatusDisconnected:
		return "DISCONNECTED"
	case StatusOffline:
		return "OFFLINE"
	case StatusBuilding:
		return "BUILDING"
	case StatusReady:
		return "READY"
	case StatusWorking:
		return "WORKING"
	case StatusConnecting:
		return "CONNECTING"
	default:
		return "UNKNOWN"
	}
}

// CanSend reports whether the user may submit a message in this state
func (s Status) CanSend() bool {
	return s == StatusNewChat || s == StatusReady
}

// IsStreaming reports whether the trailing assistant message should be
// treated as partial
func (s Status) IsStreaming() bool {
	return s == StatusWorking
}

// StatusFromSandbox maps the service's sandbox status strings onto the
// client enum. The service has intermediate states the client does not
// distinguish: BUILDING_WAITING renders as BUILDING and WORKING_APPLYING
// as WORKING.
func StatusFromSandbox(sandboxStatus string) Status {
	switch sandboxStatus {
	case "OFFLINE":
		return StatusOffline
	case "BUILDING", "BUILDING_WAITING":
		return StatusBuilding
	case "READY":
		return StatusReady
	case "WORKING", "WORKING_APPLYING":
		return StatusWorking
	default:
		return StatusOffline
	}
}

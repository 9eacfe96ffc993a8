package persistence

import "strings"

// Entity kinds used in record keys.
const (
	KindGuest      = "guest"
	KindChatflow   = "chatflow"
	KindCampaign   = "campaign"
	KindExecution  = "execution"
	KindSession    = "session"
	KindInvitation = "invitation"
	KindTemplate   = "template"
	KindMessage    = "message"
	KindIndex      = "index"
)

const keySeparator = ":"

// Key builds a namespaced record key: "<kind>:<project>:<id>".
func Key(kind, projectID, id string) string {
	return strings.Join([]string{kind, projectID, id}, keySeparator)
}

// Prefix builds a scan prefix covering every record of a kind in a project.
func Prefix(kind, projectID string) string {
	return kind + keySeparator + projectID + keySeparator
}

// IndexKey builds the key of an ordered-id index. Scope parts further
// qualify the index, e.g. IndexKey("execution", project, "campaign", id).
func IndexKey(kind, projectID string, scope ...string) string {
	parts := append([]string{KindIndex, kind, projectID}, scope...)

	return strings.Join(parts, keySeparator)
}

package store

import (
	"fmt"

	"github.com/google/uuid"
)

// Entity IDs are UUIDv5 values derived from the mention that created the
// entity. Replaying an archive in arrival order therefore reproduces the
// exact same IDs, which is what makes rebuild verifiable against a live
// registry.
var (
	personNamespace   = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://redcorridor.dev/intel/person"))
	incidentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://redcorridor.dev/intel/incident"))
)

// PersonID returns the ID for a person first created by the given mention.
func PersonID(reportID string, mentionIndex int) string {
	return uuid.NewSHA1(personNamespace, []byte(mentionKey(reportID, mentionIndex))).String()
}

// IncidentID returns the ID for an incident first created by the given mention.
func IncidentID(reportID string, mentionIndex int) string {
	return uuid.NewSHA1(incidentNamespace, []byte(mentionKey(reportID, mentionIndex))).String()
}

func mentionKey(reportID string, mentionIndex int) string {
	return fmt.Sprintf("%s#%d", reportID, mentionIndex)
}

package hermes

const (
	SubjectCatalogUpdated = "compass.catalog.updated"
	SubjectStats          = "compass.stats"

	StreamName   = "COMPASS_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

// streamSubjects are captured by the COMPASS_EVENTS stream.
var streamSubjects = []string{"compass.attempt.>", SubjectCatalogUpdated, SubjectStats}

func SubjectAttemptStarted(attemptID string) string {
	return "compass.attempt." + attemptID + ".started"
}

func SubjectAttemptCompleted(attemptID string) string {
	return "compass.attempt." + attemptID + ".completed"
}

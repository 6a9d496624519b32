package domain

// Artifact is an object uploaded to media storage during a request.
// It is ephemeral: either a persisted User ends up referencing its URL,
// or the object is deleted before the request completes.
type Artifact struct {
	Key string `json:"public_id"`
	URL string `json:"url"`
}

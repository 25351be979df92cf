package shadow

import "fmt"

// TopicRoot is the prefix of all thing topics.
const TopicRoot = "$aws/things/"

// Topics derives the shadow topics of a thing.
type Topics struct {
	Thing string
}

// Base is the root of the thing's shadow topics.
func (t Topics) Base() string {
	return fmt.Sprintf("%s%s/shadow", TopicRoot, t.Thing)
}

// Get is published to request the document.
func (t Topics) Get() string { return t.Base() + "/get" }

// GetAccepted receives the document.
func (t Topics) GetAccepted() string { return t.Base() + "/get/accepted" }

// GetRejected receives the get error.
func (t Topics) GetRejected() string { return t.Base() + "/get/rejected" }

// Update is published to update the document.
func (t Topics) Update() string { return t.Base() + "/update" }

// UpdateAccepted receives the update result.
func (t Topics) UpdateAccepted() string { return t.Base() + "/update/accepted" }

// UpdateRejected receives the update error.
func (t Topics) UpdateRejected() string { return t.Base() + "/update/rejected" }

// UpdateDelta receives differences between desired and reported state.
func (t Topics) UpdateDelta() string { return t.Base() + "/update/delta" }

// Received are the topics a device subscribes.
func (t Topics) Received() []string {
	return []string{t.GetAccepted(), t.GetRejected(), t.UpdateDelta()}
}

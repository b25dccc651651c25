package procstatus

import "strings"

// Category is a display grouping for agent labels. It never affects
// lifecycle operations.
type Category string

const (
	CategoryUser        Category = "user"
	CategoryApplication Category = "application"
	CategorySystem      Category = "system"
)

// userMarkers identify agents a person created directly, through this
// tool's installer flow or by hand.
var userMarkers = []string{"installation-", "custom", "com.kioskops."}

// systemPrefixes are reverse-DNS roots used by the OS and the services
// bundled with it.
var systemPrefixes = []string{"com.apple.", "com.openssh.", "org.cups."}

// Categorize assigns a display grouping to a label. Rules run in order:
// user markers win over vendor prefixes, so a label like
// "installation-custom-agent" never lands in the system bucket. Everything
// unmatched is a third-party application agent.
func Categorize(label string) Category {
	lower := strings.ToLower(label)

	for _, marker := range userMarkers {
		if strings.Contains(lower, marker) {
			return CategoryUser
		}
	}
	for _, prefix := range systemPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return CategorySystem
		}
	}
	return CategoryApplication
}

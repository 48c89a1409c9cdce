package api

import (
	"fmt"
	"net/url"
	"strings"
)

// ResourcePath returns the collection path for a resource:
// "rooms" -> "/api/rooms/".
func ResourcePath(resource string) string {
	return "/api/" + cleanSegment(resource) + "/"
}

// ItemPath returns the path of a single entity: "/api/rooms/42/".
func ItemPath(resource, id string) string {
	return ResourcePath(resource) + url.PathEscape(strings.TrimSpace(id)) + "/"
}

// ActionPath returns the path of a sub-action, scoped to an entity when id
// is set: "/api/housekeeping/tasks/7/start/" or "/api/notifications/mark-all-read/".
func ActionPath(resource, id, action string) string {
	base := ResourcePath(resource)
	if strings.TrimSpace(id) != "" {
		base = ItemPath(resource, id)
	}
	return base + cleanSegment(action) + "/"
}

// ValidateResource rejects names that cannot be mapped to a path.
func ValidateResource(resource string) error {
	name := cleanSegment(resource)
	if name == "" {
		return ValidationError{Message: "resource name is required"}
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ValidationError{Message: fmt.Sprintf("invalid resource name: %q", resource)}
		}
	}
	return nil
}

func cleanSegment(s string) string {
	return strings.Trim(strings.TrimSpace(s), "/")
}

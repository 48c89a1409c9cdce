package pms

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Action is a named sub-action of a resource, such as
// POST /api/housekeeping/tasks/{id}/start/.
type Action struct {
	Name        string
	Method      string
	ItemLevel   bool
	Description string
}

// Path returns the action path relative to the resource, with {id} as
// placeholder for item-level actions.
func (a Action) Path() string {
	if a.ItemLevel {
		return "{id}/" + a.Name
	}
	return a.Name
}

// FindAction returns a registered action of a known resource.
func FindAction(resource, name string) (Action, bool) {
	s, ok := Lookup(resource)
	if !ok {
		return Action{}, false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	for _, a := range s.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

// ResolveAction checks an action invocation against the registry and
// fills in the method. Unknown resources and actions pass through with
// the method given (POST when empty), since the server may know more
// actions than the registry. A registered action called with or without
// an id against its scope is rejected.
func ResolveAction(resource, id, name, method string) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Action{}, fmt.Errorf("action name is required")
	}
	method = strings.ToUpper(strings.TrimSpace(method))

	a, ok := FindAction(resource, name)
	if !ok {
		if method == "" {
			method = http.MethodPost
		}
		return Action{Name: name, Method: method, ItemLevel: strings.TrimSpace(id) != ""}, nil
	}

	hasID := strings.TrimSpace(id) != ""
	switch {
	case a.ItemLevel && !hasID:
		return Action{}, fmt.Errorf("action %q on %s requires an id", name, NormalizeResource(resource))
	case !a.ItemLevel && hasID:
		return Action{}, fmt.Errorf("action %q on %s does not take an id", name, NormalizeResource(resource))
	}
	if method != "" {
		a.Method = method
	}
	return a, nil
}

// ActionNames lists the registered action names of a resource.
func ActionNames(resource string) []string {
	s, ok := Lookup(resource)
	if !ok {
		return nil
	}
	names := make([]string, len(s.Actions))
	for i, a := range s.Actions {
		names[i] = a.Name
	}
	sort.Strings(names)
	return names
}

package importer

import (
	"strings"

	"lcaparam/internal/store"
)

// ResolveCode scans activities for an exchange whose formula contains name
// as a substring and whose group equals group. Scanning stops at the first
// match within an activity but continues across activities, so the last
// matching activity's code is returned.
func ResolveCode(activities []store.Activity, name, group string) (string, bool) {
	var code string
	found := false
	for _, activity := range activities {
		for _, exchange := range activity.Exchanges {
			if exchange.Formula == nil || !strings.Contains(*exchange.Formula, name) {
				continue
			}
			if exchange.Group == group {
				code = activity.Code
				found = true
				break
			}
		}
	}
	return code, found
}

// firstParametrized returns the activity's first exchange carrying a formula.
func firstParametrized(activity store.Activity) (store.Exchange, bool) {
	for _, exchange := range activity.Exchanges {
		if exchange.Parametrized() {
			return exchange, true
		}
	}
	return store.Exchange{}, false
}

func hasParametrizedInGroup(activity store.Activity, group string) bool {
	for _, exchange := range activity.Exchanges {
		if exchange.Parametrized() && exchange.Group == group {
			return true
		}
	}
	return false
}

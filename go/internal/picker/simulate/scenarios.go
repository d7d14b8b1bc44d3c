package simulate

import (
	"sort"
	"time"
)

var scenarios = map[string]Script{
	"single": {
		Name:        "single",
		Description: "three fingers join in quick succession and one is picked",
		Steps: []Step{
			{At: 0, Action: ActionBegin, ID: 1, X: 120, Y: 300},
			{At: 200 * time.Millisecond, Action: ActionBegin, ID: 2, X: 360, Y: 420},
			{At: 400 * time.Millisecond, Action: ActionBegin, ID: 3, X: 600, Y: 240},
		},
	},
	"late-join": {
		Name:        "late-join",
		Description: "a third finger arrives mid-countdown and restarts it",
		Steps: []Step{
			{At: 0, Action: ActionBegin, ID: 1, X: 100, Y: 100},
			{At: 0, Action: ActionBegin, ID: 2, X: 500, Y: 100},
			{At: 4500 * time.Millisecond, Action: ActionBegin, ID: 3, X: 300, Y: 500},
		},
	},
	"early-release": {
		Name:        "early-release",
		Description: "a finger lifts before the countdown ends, then a new one joins",
		Steps: []Step{
			{At: 0, Action: ActionBegin, ID: 1, X: 200, Y: 200},
			{At: 0, Action: ActionBegin, ID: 2, X: 400, Y: 200},
			{At: 2 * time.Second, Action: ActionEnd, ID: 2},
			{At: 3 * time.Second, Action: ActionBegin, ID: 3, X: 300, Y: 600},
		},
	},
	"lone-finger": {
		Name:        "lone-finger",
		Description: "a single finger waits and nothing is ever picked",
		Steps: []Step{
			{At: 0, Action: ActionBegin, ID: 1, X: 300, Y: 300},
			{At: time.Second, Action: ActionMove, ID: 1, X: 320, Y: 310},
		},
	},
	"group": {
		Name:        "group",
		Description: "five fingers split into teams and one team wins",
		Steps: []Step{
			{At: 0, Action: ActionMode, Mode: "group"},
			{At: 0, Action: ActionBegin, ID: 1, X: 100, Y: 100},
			{At: 100 * time.Millisecond, Action: ActionBegin, ID: 2, X: 300, Y: 100},
			{At: 200 * time.Millisecond, Action: ActionBegin, ID: 3, X: 500, Y: 100},
			{At: 300 * time.Millisecond, Action: ActionBegin, ID: 4, X: 200, Y: 400},
			{At: 400 * time.Millisecond, Action: ActionBegin, ID: 5, X: 400, Y: 400},
		},
	},
	"cancel": {
		Name:        "cancel",
		Description: "the system cancels touches mid-round",
		Steps: []Step{
			{At: 0, Action: ActionBegin, ID: 1, X: 100, Y: 100},
			{At: 0, Action: ActionBegin, ID: 2, X: 400, Y: 400},
			{At: 4500 * time.Millisecond, Action: ActionCancel},
		},
	},
}

// Scenario returns a built-in script by name.
func Scenario(name string) (Script, bool) {
	s, ok := scenarios[name]
	return s, ok
}

// Scenarios returns the built-in scripts sorted by name.
func Scenarios() []Script {
	out := make([]Script, 0, len(scenarios))
	for _, s := range scenarios {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

package geometry

import "reactorcad/config"

// Additional thread fittings supported by this builder. Registered as a
// catalog fragment so user catalogs can still override them by name.
const threadOverlay = `
tops: [
	{name: "gl14", label: "GL14 threaded", threaded: true, thread_radius: 7.0},
	{name: "gl18", label: "GL18 threaded", threaded: true, thread_radius: 9.0},
]
`

func init() {
	config.MustRegisterOverlayString("geometry_threads.cue", threadOverlay)
}

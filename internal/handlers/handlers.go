package handlers

import (
	"time"

	"media-cloud/internal/library"
	"media-cloud/internal/memories"
	"media-cloud/internal/music"
	"media-cloud/internal/settings"
	"media-cloud/internal/tasks"
)

// Handlers serves the HTTP API over the library and the memory engine.
type Handlers struct {
	library   *library.Library
	settings  *settings.Store
	tasks     *tasks.Supervisor
	generator *memories.Generator
	results   *memories.ResultStore
	music     *music.Picker
	startTime time.Time
}

// Deps collects what the handlers serve.
type Deps struct {
	Library   *library.Library
	Settings  *settings.Store
	Tasks     *tasks.Supervisor
	Generator *memories.Generator
	Results   *memories.ResultStore
	Music     *music.Picker
}

// New creates Handlers over deps.
func New(deps Deps) *Handlers {
	return &Handlers{
		library:   deps.Library,
		settings:  deps.Settings,
		tasks:     deps.Tasks,
		generator: deps.Generator,
		results:   deps.Results,
		music:     deps.Music,
		startTime: time.Now(),
	}
}

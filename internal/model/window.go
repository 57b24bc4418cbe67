package model

// Window represents a top-level window of a running process.
type Window struct {
	PID       int    `yaml:"pid"                 json:"pid"`
	ID        int    `yaml:"id"                  json:"id"`
	Title     string `yaml:"title"               json:"title"`
	Bounds    [4]int `yaml:"bounds"              json:"bounds"`
	Focused   bool   `yaml:"focused,omitempty"   json:"focused,omitempty"`
	Main      bool   `yaml:"main,omitempty"      json:"main,omitempty"`      // Reported as the process's main window
	Available bool   `yaml:"available,omitempty" json:"available,omitempty"` // Window object reports itself live
}

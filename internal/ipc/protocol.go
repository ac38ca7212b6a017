package ipc

import "errors"

const (
	CommandStatus = "status"
	CommandStop   = "stop"
	CommandReset  = "reset"
)

// Commands lists every command the owner process answers.
var Commands = []string{CommandStatus, CommandStop, CommandReset}

type Request struct {
	Command string `json:"command"`
}

// Known reports whether the request names a supported command.
func (r Request) Known() bool {
	for _, command := range Commands {
		if r.Command == command {
			return true
		}
	}
	return false
}

type Response struct {
	OK          bool         `json:"ok"`
	State       string       `json:"state,omitempty"`
	Message     string       `json:"message,omitempty"`
	Error       string       `json:"error,omitempty"`
	Permission  string       `json:"permission,omitempty"`
	Failure     string       `json:"failure,omitempty"`
	Translation *Translation `json:"translation,omitempty"`
}

// Translation is the wire form of a finished result.
type Translation struct {
	Sound   string `json:"sound"`
	Meaning string `json:"meaning"`
	Mood    string `json:"mood"`
}

// Err converts a refused response into an error.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	if r.Error == "" {
		return errors.New("owner refused the command")
	}
	return errors.New(r.Error)
}

package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandListen     Command = "listen"
	CommandStop       Command = "stop"
	CommandReset      Command = "reset"
	CommandStatus     Command = "status"
	CommandPermission Command = "permission"
	CommandCatalog    Command = "catalog"
	CommandDevices    Command = "devices"
	CommandDoctor     Command = "doctor"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandListen:     {},
	CommandStop:       {},
	CommandReset:      {},
	CommandStatus:     {},
	CommandPermission: {},
	CommandCatalog:    {},
	CommandDevices:    {},
	CommandDoctor:     {},
	CommandVersion:    {},
	CommandHelp:       {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Platform   string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--platform":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--platform requires a value")
			}
			platform := strings.ToLower(strings.TrimSpace(args[i]))
			if platform != "web" && platform != "native" {
				return Parsed{}, fmt.Errorf("--platform must be web or native, got %q", args[i])
			}
			parsed.Platform = platform
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--platform web|native] <command>

Commands:
  listen      Listen for a cat sound and print its translation
  stop        Stop listening early and start analyzing
  reset       Discard the current result or cancel an active listen
  status      Print current state
  permission  Request microphone permission and print the result
  catalog     Print every known cat sound as YAML
  devices     List available input devices
  doctor      Run configuration and environment checks
  version     Print version information
  help        Show this help

Flags:
  --config PATH      Config file path (default: $XDG_CONFIG_HOME/meowspeak/config.jsonc)
  --platform NAME    Permission provider: web or native (overrides config)
  -h, --help         Show help
  --version          Show version
`, binaryName)
}

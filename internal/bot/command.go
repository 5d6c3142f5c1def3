package bot

import "strings"

// CommandKind enumerates the closed set of slash commands the bot accepts.
type CommandKind string

const (
	CmdStart          CommandKind = "start"
	CmdHelp           CommandKind = "help"
	CmdMyOrders       CommandKind = "myorders"
	CmdStatus         CommandKind = "status"
	CmdOrder          CommandKind = "order"
	CmdUpdateStatus   CommandKind = "updatestatus"
	CmdReport         CommandKind = "report"
	CmdUpdateProgress CommandKind = "updateprogress"
	CmdEvidence       CommandKind = "evidence"
	CmdCancel         CommandKind = "cancel"
	CmdUnknown        CommandKind = "unknown"
)

// Command is one parsed slash command with its arguments.
type Command struct {
	Kind CommandKind
	Args []string
}

// ParseCommand parses inbound text into a command. The second return is
// false when the text is not a slash command at all.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{Kind: CmdUnknown}, false
	}
	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")
	// strip the @botname suffix Telegram appends in group chats
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	name = strings.ToLower(name)
	// underscore aliases kept for muscle memory
	name = strings.ReplaceAll(name, "_", "")

	cmd := Command{Args: fields[1:]}
	switch name {
	case "start":
		cmd.Kind = CmdStart
	case "help":
		cmd.Kind = CmdHelp
	case "myorders":
		cmd.Kind = CmdMyOrders
	case "status":
		cmd.Kind = CmdStatus
	case "order", "neworder":
		cmd.Kind = CmdOrder
	case "updatestatus":
		cmd.Kind = CmdUpdateStatus
	case "report":
		cmd.Kind = CmdReport
	case "updateprogress":
		cmd.Kind = CmdUpdateProgress
	case "evidence":
		cmd.Kind = CmdEvidence
	case "cancel", "batal":
		cmd.Kind = CmdCancel
	default:
		cmd.Kind = CmdUnknown
	}
	return cmd, true
}
